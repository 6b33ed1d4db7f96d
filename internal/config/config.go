// Package config loads passync settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSecretSuffix   = ".gpg"
	DefaultRecipientsFile = ".gpg-id"
	DefaultLogLevel       = "info"
)

// Author is the identity stamped on merge commits.
type Author struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// Config holds application-wide configuration.
type Config struct {
	// StoreDir is the working tree of the password store.
	StoreDir string `yaml:"store_dir"`
	// Keyring is an OpenPGP secret keyring, armored or binary. Empty means
	// secrets cannot be decrypted and classify as binary.
	Keyring string `yaml:"keyring"`
	// SSHKey is a private key used for ssh remotes.
	SSHKey         string `yaml:"ssh_key"`
	SecretSuffix   string `yaml:"secret_suffix"`
	RecipientsFile string `yaml:"recipients_file"`
	Author         Author `yaml:"author"`
	LogLevel       string `yaml:"log_level"`
}

// DefaultConfig returns the default configuration, reading from environment variables.
func DefaultConfig() *Config {
	storeDir := os.Getenv("PASSWORD_STORE_DIR")
	if storeDir == "" {
		storeDir = "~/.password-store"
	}
	return &Config{
		StoreDir:       storeDir,
		SecretSuffix:   DefaultSecretSuffix,
		RecipientsFile: DefaultRecipientsFile,
		Author: Author{
			Name:  "passync",
			Email: "passync@localhost",
		},
		LogLevel: DefaultLogLevel,
	}
}

// DefaultPath is PASSYNC_CONFIG, or config.yaml under the user config dir.
func DefaultPath() string {
	if p := os.Getenv("PASSYNC_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "passync", "config.yaml")
}

// Load reads path on top of the defaults and then applies PASSYNC_*
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		key string
		dst *string
	}{
		{"PASSYNC_STORE_DIR", &c.StoreDir},
		{"PASSYNC_KEYRING", &c.Keyring},
		{"PASSYNC_SSH_KEY", &c.SSHKey},
		{"PASSYNC_SECRET_SUFFIX", &c.SecretSuffix},
		{"PASSYNC_RECIPIENTS_FILE", &c.RecipientsFile},
		{"PASSYNC_AUTHOR_NAME", &c.Author.Name},
		{"PASSYNC_AUTHOR_EMAIL", &c.Author.Email},
		{"PASSYNC_LOG_LEVEL", &c.LogLevel},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.key); v != "" {
			*o.dst = v
		}
	}
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.StoreDir, &c.Keyring, &c.SSHKey} {
		if *p != "~" && !strings.HasPrefix(*p, "~/") {
			continue
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to expand %s: %w", *p, err)
		}
		*p = filepath.Join(home, strings.TrimPrefix(*p, "~"))
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.StoreDir == "" {
		return errors.New("store_dir is required")
	}
	if c.SecretSuffix == "" {
		return errors.New("secret_suffix must not be empty")
	}
	if c.RecipientsFile == "" || strings.ContainsRune(c.RecipientsFile, '/') {
		return fmt.Errorf("recipients_file %q must be a plain file name", c.RecipientsFile)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	return nil
}

// Signature returns the author/committer signature for merge commits.
func (c *Config) Signature() *object.Signature {
	return &object.Signature{
		Name:  c.Author.Name,
		Email: c.Author.Email,
		When:  time.Now(),
	}
}
