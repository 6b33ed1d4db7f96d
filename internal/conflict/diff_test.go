package conflict

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkPartition asserts ops walk both inputs in order without gaps and that
// applying them to a yields b.
func checkPartition(t *testing.T, a, b []string, ops []DiffOp) {
	t.Helper()
	ai, bi := 0, 0
	var rebuilt []string
	for _, op := range ops {
		require.Equal(t, ai, op.AStart, "op %+v", op)
		require.Equal(t, bi, op.BStart, "op %+v", op)
		switch op.Kind {
		case OpEqual:
			require.Equal(t, op.ALen, op.BLen)
			assert.Equal(t, a[op.AStart:op.AStart+op.ALen], b[op.BStart:op.BStart+op.BLen])
			rebuilt = append(rebuilt, a[op.AStart:op.AStart+op.ALen]...)
		case OpDelete:
			require.Zero(t, op.BLen)
			require.Positive(t, op.ALen)
		case OpInsert:
			require.Zero(t, op.ALen)
			require.Positive(t, op.BLen)
			rebuilt = append(rebuilt, b[op.BStart:op.BStart+op.BLen]...)
		case OpReplace:
			require.Positive(t, op.ALen)
			require.Positive(t, op.BLen)
			rebuilt = append(rebuilt, b[op.BStart:op.BStart+op.BLen]...)
		}
		ai += op.ALen
		bi += op.BLen
	}
	assert.Equal(t, len(a), ai)
	assert.Equal(t, len(b), bi)
	if len(b) == 0 {
		assert.Empty(t, rebuilt)
	} else {
		assert.Equal(t, b, rebuilt)
	}
}

func TestDiffInsertions(t *testing.T) {
	ancestor := []string{"A", "B"}
	ours := []string{"A", "B", "C"}
	theirs := []string{"A", "X", "B"}

	assert.Equal(t, []DiffOp{
		{Kind: OpEqual, AStart: 0, ALen: 2, BStart: 0, BLen: 2},
		{Kind: OpInsert, AStart: 2, BStart: 2, BLen: 1},
	}, Diff(ancestor, ours))

	assert.Equal(t, []DiffOp{
		{Kind: OpEqual, AStart: 0, ALen: 1, BStart: 0, BLen: 1},
		{Kind: OpInsert, AStart: 1, BStart: 1, BLen: 1},
		{Kind: OpEqual, AStart: 1, ALen: 1, BStart: 2, BLen: 1},
	}, Diff(ancestor, theirs))

	// Apply both sides' insertions to the ancestor, latest position first so
	// earlier indices stay valid.
	draft := &DecryptedPassword{Lines: append([]string(nil), ancestor...)}
	for _, side := range []struct {
		lines []string
		ops   []DiffOp
	}{
		{ours, Diff(ancestor, ours)},
		{theirs, Diff(ancestor, theirs)},
	} {
		for i := len(side.ops) - 1; i >= 0; i-- {
			op := side.ops[i]
			if op.Kind != OpInsert {
				continue
			}
			for j := op.BLen - 1; j >= 0; j-- {
				require.NoError(t, draft.InsertLine(op.AStart, side.lines[op.BStart+j]))
			}
		}
	}
	assert.Equal(t, []string{"A", "X", "B", "C"}, draft.Lines)
}

func TestDiffIdentical(t *testing.T) {
	x := []string{"pw", "user: me", "", "url: example.com"}
	assert.Equal(t, []DiffOp{{Kind: OpEqual, AStart: 0, ALen: 4, BStart: 0, BLen: 4}}, Diff(x, x))
	assert.Empty(t, Diff(nil, nil))
}

func TestDiffReplaceAndDelete(t *testing.T) {
	a := []string{"old-password", "user: me", "pin: 1234"}
	b := []string{"new-password", "user: me"}

	ops := Diff(a, b)
	assert.Equal(t, []DiffOp{
		{Kind: OpReplace, AStart: 0, ALen: 1, BStart: 0, BLen: 1},
		{Kind: OpEqual, AStart: 1, ALen: 1, BStart: 1, BLen: 1},
		{Kind: OpDelete, AStart: 2, ALen: 1, BStart: 2},
	}, ops)
	checkPartition(t, a, b, ops)
}

func TestDiffEmptySides(t *testing.T) {
	a := []string{"a", "b"}
	assert.Equal(t, []DiffOp{{Kind: OpDelete, AStart: 0, ALen: 2, BStart: 0}}, Diff(a, nil))
	assert.Equal(t, []DiffOp{{Kind: OpInsert, AStart: 0, BStart: 0, BLen: 2}}, Diff(nil, a))
}

func TestDiffPartitionsEveryLine(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := []string{"a", "b", "c", "d", "", "password", "a"}
	gen := func() []string {
		n := rng.Intn(12)
		out := make([]string, n)
		for i := range out {
			out[i] = alphabet[rng.Intn(len(alphabet))]
		}
		return out
	}

	for i := 0; i < 200; i++ {
		a, b := gen(), gen()
		checkPartition(t, a, b, Diff(a, b))
	}
}

func TestOpKindString(t *testing.T) {
	assert.Equal(t, "equal", OpEqual.String())
	assert.Equal(t, "replace", OpReplace.String())
	assert.Equal(t, "unknown", OpKind(99).String())
}
