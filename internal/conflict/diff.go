package conflict

import (
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// OpKind is the kind of a line diff operation.
type OpKind int

const (
	// OpEqual lines are the same in both sequences.
	OpEqual OpKind = iota
	// OpDelete lines exist only in A.
	OpDelete
	// OpInsert lines exist only in B.
	OpInsert
	// OpReplace swaps a run of A lines for a run of B lines.
	OpReplace
)

func (k OpKind) String() string {
	switch k {
	case OpEqual:
		return "equal"
	case OpDelete:
		return "delete"
	case OpInsert:
		return "insert"
	case OpReplace:
		return "replace"
	}
	return "unknown"
}

// DiffOp covers a run of lines. A[AStart:AStart+ALen] maps to
// B[BStart:BStart+BLen]. Inserts have ALen 0 and AStart is the insertion
// point in A; deletes have BLen 0 and BStart is the matching point in B.
type DiffOp struct {
	Kind   OpKind
	AStart int
	ALen   int
	BStart int
	BLen   int
}

// Diff computes a minimal line diff turning a into b. Every line of a and b
// is covered by exactly one op, and ops appear in order. A delete directly
// followed by an insert is reported as a single replace.
func Diff(a, b []string) []DiffOp {
	ra, rb := linesToRunes(a, b)

	dmp := diffmatchpatch.New()
	// No deadline: fall back to the full Myers diff instead of a fast,
	// non-minimal one.
	dmp.DiffTimeout = 0
	diffs := dmp.DiffMainRunes(ra, rb, false)

	var ops []DiffOp
	ai, bi := 0, 0
	for i := 0; i < len(diffs); i++ {
		n := utf8.RuneCountInString(diffs[i].Text)
		if n == 0 {
			continue
		}
		switch diffs[i].Type {
		case diffmatchpatch.DiffEqual:
			ops = append(ops, DiffOp{Kind: OpEqual, AStart: ai, ALen: n, BStart: bi, BLen: n})
			ai += n
			bi += n
		case diffmatchpatch.DiffDelete:
			if i+1 < len(diffs) && diffs[i+1].Type == diffmatchpatch.DiffInsert {
				m := utf8.RuneCountInString(diffs[i+1].Text)
				ops = append(ops, DiffOp{Kind: OpReplace, AStart: ai, ALen: n, BStart: bi, BLen: m})
				ai += n
				bi += m
				i++
				continue
			}
			ops = append(ops, DiffOp{Kind: OpDelete, AStart: ai, ALen: n, BStart: bi})
			ai += n
		case diffmatchpatch.DiffInsert:
			if i+1 < len(diffs) && diffs[i+1].Type == diffmatchpatch.DiffDelete {
				m := utf8.RuneCountInString(diffs[i+1].Text)
				ops = append(ops, DiffOp{Kind: OpReplace, AStart: ai, ALen: m, BStart: bi, BLen: n})
				ai += m
				bi += n
				i++
				continue
			}
			ops = append(ops, DiffOp{Kind: OpInsert, AStart: ai, BStart: bi, BLen: n})
			bi += n
		}
	}
	return ops
}

// linesToRunes maps every distinct line to one rune so the character diff
// works on whole lines. Surrogate code points are skipped because they do not
// survive the rune to string conversions inside the diff.
func linesToRunes(a, b []string) ([]rune, []rune) {
	codes := make(map[string]rune)
	next := rune(1)
	encode := func(lines []string) []rune {
		out := make([]rune, len(lines))
		for i, line := range lines {
			r, ok := codes[line]
			if !ok {
				if next >= 0xD800 && next <= 0xDFFF {
					next = 0xE000
				}
				r = next
				codes[line] = r
				next++
			}
			out[i] = r
		}
		return out
	}
	return encode(a), encode(b)
}
