package gpg

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

// Crypto is the encryption capability the conflict engine depends on.
type Crypto interface {
	// Decrypt returns the plaintext and the key ids the message was
	// encrypted to, formatted as 16 upper-case hex digits.
	Decrypt(ciphertext []byte) ([]byte, []string, error)
	// Encrypt encrypts plaintext for every recipient in the set.
	Encrypt(recipients KeySet, plaintext []byte) ([]byte, error)
}

// Keyring implements Crypto over an in-memory OpenPGP entity list.
type Keyring struct {
	entities openpgp.EntityList
	config   *packet.Config
}

var _ Crypto = (*Keyring)(nil)

// NewKeyring wraps already unlocked entities.
func NewKeyring(entities openpgp.EntityList) *Keyring {
	return &Keyring{entities: entities, config: &packet.Config{}}
}

// ReadKeyring reads an armored or binary keyring and unlocks any encrypted
// private keys with passphrase.
func ReadKeyring(r io.Reader, passphrase []byte) (*Keyring, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read keyring: %w", err)
	}

	var entities openpgp.EntityList
	if isArmored(data) {
		entities, err = openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	} else {
		entities, err = openpgp.ReadKeyRing(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse keyring: %w", err)
	}

	for _, e := range entities {
		if !hasEncryptedPrivateKey(e) {
			continue
		}
		if err := e.DecryptPrivateKeys(passphrase); err != nil {
			return nil, fmt.Errorf("failed to unlock key %016X: %w", e.PrimaryKey.KeyId, err)
		}
	}
	return NewKeyring(entities), nil
}

// LoadKeyring reads the keyring file at path.
func LoadKeyring(path string, passphrase []byte) (*Keyring, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}
	defer f.Close()
	return ReadKeyring(f, passphrase)
}

// NeedsPassphrase reports whether the keyring file holds locked private keys.
func NeedsPassphrase(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to open keyring: %w", err)
	}
	var entities openpgp.EntityList
	if isArmored(data) {
		entities, err = openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	} else {
		entities, err = openpgp.ReadKeyRing(bytes.NewReader(data))
	}
	if err != nil {
		return false, fmt.Errorf("failed to parse keyring: %w", err)
	}
	for _, e := range entities {
		if hasEncryptedPrivateKey(e) {
			return true, nil
		}
	}
	return false, nil
}

func (k *Keyring) Decrypt(ciphertext []byte) ([]byte, []string, error) {
	var r io.Reader = bytes.NewReader(ciphertext)
	if isArmored(ciphertext) {
		block, err := armor.Decode(r)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
		}
		r = block.Body
	}

	md, err := openpgp.ReadMessage(r, k.entities, nil, k.config)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	if !md.IsEncrypted {
		return nil, nil, fmt.Errorf("%w: message is not encrypted", ErrDecryptFailed)
	}

	// Reading to EOF is what checks the integrity tag.
	plaintext, err := io.ReadAll(md.UnverifiedBody)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}

	ids := make([]string, 0, len(md.EncryptedToKeyIds))
	for _, id := range md.EncryptedToKeyIds {
		ids = append(ids, fmt.Sprintf("%016X", id))
	}
	return plaintext, ids, nil
}

func (k *Keyring) Encrypt(recipients KeySet, plaintext []byte) ([]byte, error) {
	if recipients.Len() == 0 {
		return nil, fmt.Errorf("%w: no recipients", ErrInvalidRecipient)
	}

	now := k.config.Now()
	seen := make(map[uint64]bool)
	var to []*openpgp.Entity
	for _, id := range recipients.Sorted() {
		e := k.lookup(id)
		if e == nil {
			return nil, fmt.Errorf("%w: %s: no matching key", ErrInvalidRecipient, id)
		}
		if _, ok := e.EncryptionKey(now); !ok {
			return nil, fmt.Errorf("%w: %s: no usable encryption key", ErrInvalidRecipient, id)
		}
		if seen[e.PrimaryKey.KeyId] {
			continue
		}
		seen[e.PrimaryKey.KeyId] = true
		to = append(to, e)
	}

	var buf bytes.Buffer
	w, err := openpgp.Encrypt(&buf, to, nil, nil, k.config)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("failed to encrypt: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to encrypt: %w", err)
	}
	if buf.Len() == 0 {
		return nil, ErrEmptyCiphertext
	}
	return buf.Bytes(), nil
}

// lookup finds the entity a canonical id (see ParseKeyID) refers to.
func (k *Keyring) lookup(id string) *openpgp.Entity {
	if strings.Contains(id, "@") {
		for _, e := range k.entities {
			for _, ident := range e.Identities {
				if ident.UserId != nil && strings.EqualFold(ident.UserId.Email, id) {
					return e
				}
			}
		}
		return nil
	}

	for _, e := range k.entities {
		if matchesKey(e.PrimaryKey, id) {
			return e
		}
		for _, sub := range e.Subkeys {
			if matchesKey(sub.PublicKey, id) {
				return e
			}
		}
	}
	return nil
}

func matchesKey(pub *packet.PublicKey, id string) bool {
	if pub == nil {
		return false
	}
	switch len(id) {
	case 8:
		return fmt.Sprintf("%08X", uint32(pub.KeyId)) == id
	case 16:
		return fmt.Sprintf("%016X", pub.KeyId) == id
	default:
		return strings.ToUpper(hex.EncodeToString(pub.Fingerprint)) == id
	}
}

func hasEncryptedPrivateKey(e *openpgp.Entity) bool {
	if e.PrivateKey != nil && e.PrivateKey.Encrypted {
		return true
	}
	for _, sub := range e.Subkeys {
		if sub.PrivateKey != nil && sub.PrivateKey.Encrypted {
			return true
		}
	}
	return false
}

func isArmored(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(data), []byte("-----BEGIN PGP"))
}

// KeyID formats the primary key id of e the way Decrypt reports recipients.
func KeyID(e *openpgp.Entity) string {
	return fmt.Sprintf("%016X", e.PrimaryKey.KeyId)
}

// EncryptionKeyID is the id a message encrypted to e will list.
func EncryptionKeyID(e *openpgp.Entity) string {
	key, ok := e.EncryptionKey(time.Now())
	if !ok {
		return ""
	}
	return fmt.Sprintf("%016X", key.PublicKey.KeyId)
}
