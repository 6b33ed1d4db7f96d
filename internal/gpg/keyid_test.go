package gpg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeyID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"short id", "deadbeef", "DEADBEEF", false},
		{"long id with prefix", "0x0123456789abcdef", "0123456789ABCDEF", false},
		{"v4 fingerprint", "0123456789ABCDEF0123456789ABCDEF01234567", "0123456789ABCDEF0123456789ABCDEF01234567", false},
		{"v6 fingerprint", "0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF", "0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF", false},
		{"bare email", "Alice@Example.com", "alice@example.com", false},
		{"bracketed email", "<bob@example.com>", "bob@example.com", false},
		{"surrounding whitespace", "  DEADBEEF \r", "DEADBEEF", false},
		{"wrong length", "ABCDE", "", true},
		{"not hex", "ZZZZZZZZ", "", true},
		{"broken email", "bob@", "", true},
		{"empty", "   ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKeyID(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKeyID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseKeySet(t *testing.T) {
	ks, err := ParseKeySet("DEADBEEF\n\n  alice@example.com\nDEADBEEF\n")
	require.NoError(t, err)
	assert.True(t, ks.Equal(NewKeySet("DEADBEEF", "alice@example.com")))

	_, err = ParseKeySet("DEADBEEF\nnot a key\n")
	assert.ErrorIs(t, err, ErrInvalidKeyID)
	assert.Contains(t, err.Error(), "line 2")

	empty, err := ParseKeySet("")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
}

func TestKeySetBytesRoundTrip(t *testing.T) {
	ks := NewKeySet("K2ABCDEF", "0123ABCD", "bob@example.com")
	assert.Equal(t, "0123ABCD\nK2ABCDEF\nbob@example.com\n", string(ks.Bytes()))

	ks2 := NewKeySet("CAFEBABE", "DEADBEEF")
	parsed, err := ParseKeySet(string(ks2.Bytes()))
	require.NoError(t, err)
	assert.True(t, parsed.Equal(ks2))

	assert.Nil(t, KeySet{}.Bytes())
}

func TestKeySetClone(t *testing.T) {
	ks := NewKeySet("DEADBEEF")
	c := ks.Clone()
	c.Add("CAFEBABE")
	assert.Equal(t, 1, ks.Len())
	assert.True(t, c.Has("CAFEBABE"))
	assert.False(t, ks.Has("CAFEBABE"))
}
