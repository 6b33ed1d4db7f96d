// Package gpgtest generates throwaway OpenPGP identities for tests.
package gpgtest

import (
	"bytes"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"github.com/stretchr/testify/require"

	"github.com/kurobon/passync/internal/gpg"
)

// NewEntity generates an unlocked EdDSA/X25519 key, which is fast enough to
// create per test.
func NewEntity(t testing.TB, name, email string) *openpgp.Entity {
	t.Helper()
	e, err := openpgp.NewEntity(name, "", email, &packet.Config{Algorithm: packet.PubKeyAlgoEdDSA})
	require.NoError(t, err)
	return e
}

// Keyring builds a gpg.Keyring holding the given entities.
func Keyring(entities ...*openpgp.Entity) *gpg.Keyring {
	return gpg.NewKeyring(openpgp.EntityList(entities))
}

// ArmoredPrivate serializes e as an armored private key block. When
// passphrase is non-empty the private key material is locked with it.
func ArmoredPrivate(t testing.TB, e *openpgp.Entity, passphrase []byte) []byte {
	t.Helper()

	var signed bytes.Buffer
	require.NoError(t, e.SerializePrivate(&signed, nil))
	entities, err := openpgp.ReadKeyRing(&signed)
	require.NoError(t, err)
	copied := entities[0]

	if len(passphrase) > 0 {
		require.NoError(t, copied.EncryptPrivateKeys(passphrase, nil))
	}

	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PrivateKeyType, nil)
	require.NoError(t, err)
	require.NoError(t, copied.SerializePrivateWithoutSigning(w, nil))
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// Encrypt encrypts plaintext for entities, failing the test on error.
func Encrypt(t testing.TB, plaintext string, to ...*openpgp.Entity) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := openpgp.Encrypt(&buf, to, nil, nil, nil)
	require.NoError(t, err)
	_, err = w.Write([]byte(plaintext))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}
