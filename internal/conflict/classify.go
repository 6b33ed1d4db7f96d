package conflict

import (
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/kurobon/passync/internal/gpg"
)

const (
	DefaultSecretSuffix   = ".gpg"
	DefaultRecipientsFile = ".gpg-id"
)

// Classifier turns raw conflict sides into typed conflicts.
type Classifier struct {
	Crypto         gpg.Crypto
	SecretSuffix   string
	RecipientsFile string
	Logger         *zap.Logger
}

func (c *Classifier) suffix() string {
	if c.SecretSuffix == "" {
		return DefaultSecretSuffix
	}
	return c.SecretSuffix
}

func (c *Classifier) recipientsFile() string {
	if c.RecipientsFile == "" {
		return DefaultRecipientsFile
	}
	return c.RecipientsFile
}

func (c *Classifier) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// Classify tries, in order, Password, GpgID and PlainText, and falls back to
// Binary. A side that fails to decrypt or parse only drops the conflict to the
// next kind.
func (c *Classifier) Classify(sides Sides) Conflict {
	log := c.logger().With(zap.String("path", sides.Path()))

	if c.Crypto != nil && c.anyPath(sides, func(p string) bool { return strings.HasSuffix(p, c.suffix()) }) {
		pw, err := newPassword(c.Crypto, sides)
		if err == nil {
			return pw
		}
		log.Debug("secret conflict is not decryptable, falling back", zap.Error(err))
	}

	if c.anyPath(sides, func(p string) bool { return path.Base(p) == c.recipientsFile() }) {
		g, err := newGpgID(sides)
		if err == nil {
			return g
		}
		log.Debug("recipients conflict does not parse, falling back", zap.Error(err))
	}

	if pt, err := newPlainText(sides); err == nil {
		return pt
	}
	return newBinary(sides)
}

func (c *Classifier) anyPath(sides Sides, match func(string) bool) bool {
	for _, e := range sides.Present() {
		if match(e.Path) {
			return true
		}
	}
	return false
}
