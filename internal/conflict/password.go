package conflict

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kurobon/passync/internal/gpg"
)

// DecryptedPassword is the plaintext of one secret version split into lines.
// The first line is the password itself, the rest is free-form metadata.
// Edits only touch memory until the draft is passed to Password.Resolve.
type DecryptedPassword struct {
	Path       string
	Lines      []string
	Recipients []string
}

func parseSecret(path string, plaintext []byte, recipients []string) (*DecryptedPassword, error) {
	if !utf8.Valid(plaintext) {
		return nil, fmt.Errorf("%s: decrypted content is not valid UTF-8", path)
	}
	text := strings.TrimSuffix(string(plaintext), "\n")
	var lines []string
	if text != "" || len(plaintext) > 0 {
		lines = strings.Split(text, "\n")
	}
	return &DecryptedPassword{
		Path:       path,
		Lines:      lines,
		Recipients: append([]string(nil), recipients...),
	}, nil
}

// Clone returns a deep copy.
func (p *DecryptedPassword) Clone() *DecryptedPassword {
	if p == nil {
		return nil
	}
	return &DecryptedPassword{
		Path:       p.Path,
		Lines:      append([]string(nil), p.Lines...),
		Recipients: append([]string(nil), p.Recipients...),
	}
}

// Password returns the first line, or "" for an empty secret.
func (p *DecryptedPassword) Password() string {
	if len(p.Lines) == 0 {
		return ""
	}
	return p.Lines[0]
}

// InsertLine inserts line before index i. i == len(Lines) appends.
func (p *DecryptedPassword) InsertLine(i int, line string) error {
	if i < 0 || i > len(p.Lines) {
		return fmt.Errorf("%w: insert at %d of %d", ErrLineOutOfRange, i, len(p.Lines))
	}
	p.Lines = append(p.Lines, "")
	copy(p.Lines[i+1:], p.Lines[i:])
	p.Lines[i] = line
	return nil
}

// ReplaceLine overwrites line i.
func (p *DecryptedPassword) ReplaceLine(i int, line string) error {
	if i < 0 || i >= len(p.Lines) {
		return fmt.Errorf("%w: replace %d of %d", ErrLineOutOfRange, i, len(p.Lines))
	}
	p.Lines[i] = line
	return nil
}

// RemoveLine deletes line i.
func (p *DecryptedPassword) RemoveLine(i int) error {
	if i < 0 || i >= len(p.Lines) {
		return fmt.Errorf("%w: remove %d of %d", ErrLineOutOfRange, i, len(p.Lines))
	}
	p.Lines = append(p.Lines[:i], p.Lines[i+1:]...)
	return nil
}

// PrependLine inserts line before the first line.
func (p *DecryptedPassword) PrependLine(line string) {
	p.Lines = append([]string{line}, p.Lines...)
}

// AppendLine adds line after the last line.
func (p *DecryptedPassword) AppendLine(line string) {
	p.Lines = append(p.Lines, line)
}

// Bytes serializes the lines the way pass stores them: newline terminated.
func (p *DecryptedPassword) Bytes() []byte {
	if len(p.Lines) == 0 {
		return nil
	}
	return []byte(strings.Join(p.Lines, "\n") + "\n")
}

// Password is a conflict on an encrypted secret where every present side
// decrypted to text.
type Password struct {
	state
	ancestor *DecryptedPassword
	ours     *DecryptedPassword
	theirs   *DecryptedPassword
}

func newPassword(crypto gpg.Crypto, sides Sides) (*Password, error) {
	p := &Password{state: state{sides: sides}}
	for _, side := range []struct {
		entry *Entry
		dst   **DecryptedPassword
	}{
		{sides.Ancestor, &p.ancestor},
		{sides.Ours, &p.ours},
		{sides.Theirs, &p.theirs},
	} {
		if side.entry == nil {
			continue
		}
		plaintext, recipients, err := crypto.Decrypt(side.entry.Content)
		if err != nil {
			return nil, fmt.Errorf("%s (stage %d): %w", side.entry.Path, side.entry.Stage, err)
		}
		dp, err := parseSecret(side.entry.Path, plaintext, recipients)
		if err != nil {
			return nil, err
		}
		*side.dst = dp
	}
	return p, nil
}

// Kind reports KindPassword.
func (p *Password) Kind() Kind { return KindPassword }

// Ancestor returns a fresh copy of the ancestor's plaintext, or nil.
func (p *Password) Ancestor() *DecryptedPassword { return p.ancestor.Clone() }

// Ours returns a fresh copy of our plaintext, or nil.
func (p *Password) Ours() *DecryptedPassword { return p.ours.Clone() }

// Theirs returns a fresh copy of their plaintext, or nil.
func (p *Password) Theirs() *DecryptedPassword { return p.theirs.Clone() }

// Resolve encrypts draft for the recipients that apply to the secret in the
// merged index and stages it in place of every conflicting side. A nil draft
// deletes the secret.
func (p *Password) Resolve(r *Resolver, draft *DecryptedPassword) error {
	if err := p.begin(r); err != nil {
		return err
	}
	path := p.Path()

	if draft == nil {
		r.removePaths(path)
		p.resolved = true
		return nil
	}

	recipients, err := r.StagedRecipients(path)
	if err != nil {
		return err
	}
	ciphertext, err := r.crypto.Encrypt(recipients, draft.Bytes())
	if err != nil {
		return fmt.Errorf("failed to encrypt %s: %w", path, err)
	}
	if err := r.stage(path, ciphertext, p.sides.mode()); err != nil {
		return err
	}
	p.resolved = true
	return nil
}
