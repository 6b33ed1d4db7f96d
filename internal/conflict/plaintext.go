package conflict

import (
	"fmt"
	"unicode/utf8"
)

// TextVersion is one side of a PlainText conflict.
type TextVersion struct {
	Path    string
	Content string
}

// BinaryVersion is one side of a Binary conflict.
type BinaryVersion struct {
	Path    string
	Content []byte
}

// PlainText is a conflict on a file whose present sides are all UTF-8.
type PlainText struct {
	state
}

func newPlainText(sides Sides) (*PlainText, error) {
	for _, e := range sides.Present() {
		if !utf8.Valid(e.Content) {
			return nil, fmt.Errorf("%s (stage %d): not valid UTF-8", e.Path, e.Stage)
		}
	}
	return &PlainText{state: state{sides: sides}}, nil
}

// Kind reports KindPlainText.
func (p *PlainText) Kind() Kind { return KindPlainText }

// Ancestor, Ours and Theirs return the side as text, or nil when the side
// is absent.
func (p *PlainText) Ancestor() *TextVersion { return textVersion(p.sides.Ancestor) }
func (p *PlainText) Ours() *TextVersion     { return textVersion(p.sides.Ours) }
func (p *PlainText) Theirs() *TextVersion   { return textVersion(p.sides.Theirs) }

// Resolve stages content at target, which must be the path of one of the
// sides. Every side's conflict stages are cleared.
func (p *PlainText) Resolve(r *Resolver, content string, target string) error {
	if err := p.begin(r); err != nil {
		return err
	}
	if err := r.stageAs(p.sides, []byte(content), target); err != nil {
		return err
	}
	p.resolved = true
	return nil
}

func textVersion(e *Entry) *TextVersion {
	if e == nil {
		return nil
	}
	return &TextVersion{Path: e.Path, Content: string(e.Content)}
}

// Binary is the fallback conflict for content that is not text.
type Binary struct {
	state
}

func newBinary(sides Sides) *Binary {
	return &Binary{state: state{sides: sides}}
}

// Kind reports KindBinary.
func (b *Binary) Kind() Kind { return KindBinary }

// Ancestor, Ours and Theirs return the raw side, or nil when it is absent.
func (b *Binary) Ancestor() *BinaryVersion { return binaryVersion(b.sides.Ancestor) }
func (b *Binary) Ours() *BinaryVersion     { return binaryVersion(b.sides.Ours) }
func (b *Binary) Theirs() *BinaryVersion   { return binaryVersion(b.sides.Theirs) }

// Resolve stages content at target, which must be the path of one of the
// sides. Every side's conflict stages are cleared.
func (b *Binary) Resolve(r *Resolver, content []byte, target string) error {
	if err := b.begin(r); err != nil {
		return err
	}
	if err := r.stageAs(b.sides, content, target); err != nil {
		return err
	}
	b.resolved = true
	return nil
}

func binaryVersion(e *Entry) *BinaryVersion {
	if e == nil {
		return nil
	}
	return &BinaryVersion{Path: e.Path, Content: cloneBytes(e.Content)}
}
