package gpg

import (
	"encoding/hex"
	"fmt"
	"net/mail"
	"sort"
	"strings"
)

// ParseKeyID validates a single recipient identifier and returns its canonical
// form. Hex ids (8, 16, 40 or 64 digits, optional 0x prefix) are upper-cased;
// e-mail addresses, bare or in angle brackets, are lower-cased.
func ParseKeyID(s string) (string, error) {
	id := strings.TrimSpace(s)
	if id == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidKeyID)
	}

	if strings.Contains(id, "@") {
		addr, err := mail.ParseAddress(id)
		if err != nil {
			return "", fmt.Errorf("%w: %q: %v", ErrInvalidKeyID, s, err)
		}
		return strings.ToLower(addr.Address), nil
	}

	hexID := strings.TrimPrefix(strings.TrimPrefix(id, "0x"), "0X")
	switch len(hexID) {
	case 8, 16, 40, 64:
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKeyID, s)
	}
	if _, err := hex.DecodeString(hexID); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidKeyID, s)
	}
	return strings.ToUpper(hexID), nil
}

// KeySet is an unordered set of canonical recipient identifiers.
type KeySet map[string]struct{}

// NewKeySet returns a set holding ids. The ids are stored as given, callers
// that accept user input should go through ParseKeyID first.
func NewKeySet(ids ...string) KeySet {
	ks := make(KeySet, len(ids))
	for _, id := range ids {
		ks[id] = struct{}{}
	}
	return ks
}

// ParseKeySet parses recipient file content: one identifier per non-empty line.
// Any malformed line fails the whole parse.
func ParseKeySet(content string) (KeySet, error) {
	ks := KeySet{}
	for n, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		id, err := ParseKeyID(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n+1, err)
		}
		ks[id] = struct{}{}
	}
	return ks, nil
}

func (ks KeySet) Add(id string) {
	ks[id] = struct{}{}
}

func (ks KeySet) Has(id string) bool {
	_, ok := ks[id]
	return ok
}

func (ks KeySet) Len() int {
	return len(ks)
}

// Sorted returns the ids in lexical order.
func (ks KeySet) Sorted() []string {
	ids := make([]string, 0, len(ks))
	for id := range ks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (ks KeySet) Equal(other KeySet) bool {
	if len(ks) != len(other) {
		return false
	}
	for id := range ks {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

func (ks KeySet) Clone() KeySet {
	out := make(KeySet, len(ks))
	for id := range ks {
		out[id] = struct{}{}
	}
	return out
}

// Bytes serializes the set in recipient file format. Lines are sorted so the
// same set always produces the same blob.
func (ks KeySet) Bytes() []byte {
	if len(ks) == 0 {
		return nil
	}
	return []byte(strings.Join(ks.Sorted(), "\n") + "\n")
}

func (ks KeySet) String() string {
	return strings.Join(ks.Sorted(), ",")
}
