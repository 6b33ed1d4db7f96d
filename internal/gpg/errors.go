package gpg

import "errors"

var (
	// ErrInvalidRecipient is returned when a recipient cannot be found in the
	// keyring or has no usable encryption key.
	ErrInvalidRecipient = errors.New("invalid recipient")

	// ErrEmptyCiphertext is returned when encryption produced no output.
	ErrEmptyCiphertext = errors.New("encryption produced empty ciphertext")

	// ErrDecryptFailed is returned when a message cannot be decrypted with the
	// loaded secret keys.
	ErrDecryptFailed = errors.New("decryption failed")

	// ErrInvalidKeyID is returned when a recipient line is neither a hex key id
	// nor an e-mail address.
	ErrInvalidKeyID = errors.New("invalid key id")
)
