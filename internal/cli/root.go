// Package cli implements the passync command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kurobon/passync/internal/config"
	"github.com/kurobon/passync/internal/gpg"
	"github.com/kurobon/passync/internal/logging"
	"github.com/kurobon/passync/internal/store"
)

// app is the state shared by every subcommand of one invocation.
type app struct {
	configPath string
	storeDir   string
	logLevel   string

	cfg *config.Config
	log *zap.Logger

	passphrase passphraseSource
}

// NewRootCommand builds the passync command tree.
func NewRootCommand() *cobra.Command {
	a := &app{passphrase: defaultPassphraseSource()}

	root := &cobra.Command{
		Use:   "passync",
		Short: "Synchronize a git-backed password store",
		Long: `passync fetches, merges and pushes a pass-style password store.

When a merge conflicts, the conflicting paths are classified as secrets,
recipient lists, text or binary files and reported. Merges without
conflicts are committed immediately.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.DefaultPath(), "config file")
	root.PersistentFlags().StringVarP(&a.storeDir, "store", "s", "", "password store directory (overrides config)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (overrides config)")

	root.AddCommand(
		newFetchCommand(a),
		newMergeCommand(a),
		newPullCommand(a),
		newPushCommand(a),
		newPassphraseCommand(a),
	)
	return root
}

// Execute runs the command tree and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, failure("Error: ")+err.Error())
		return 1
	}
	return 0
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.storeDir != "" {
		cfg.StoreDir = a.storeDir
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log
	return nil
}

// openStore opens the configured store with its keyring and ssh key.
func (a *app) openStore(cmd *cobra.Command) (*store.Store, error) {
	crypto, err := a.loadCrypto(cmd)
	if err != nil {
		return nil, err
	}
	auth, err := a.auth()
	if err != nil {
		return nil, err
	}
	a.log.Debug("opening store", zap.String("dir", a.cfg.StoreDir))
	return store.Open(a.cfg.StoreDir, store.Options{
		Crypto:         crypto,
		SecretSuffix:   a.cfg.SecretSuffix,
		RecipientsFile: a.cfg.RecipientsFile,
		Signature:      a.cfg.Signature,
		Auth:           auth,
		Logger:         a.log,
	})
}

// loadCrypto returns nil when no keyring is configured; secrets then
// classify as binary.
func (a *app) loadCrypto(cmd *cobra.Command) (gpg.Crypto, error) {
	path := a.cfg.Keyring
	if path == "" {
		a.log.Warn("no keyring configured, secrets cannot be decrypted")
		return nil, nil
	}
	locked, err := gpg.NeedsPassphrase(path)
	if err != nil {
		return nil, err
	}
	var pass []byte
	if locked {
		pass, err = a.passphrase.get(path, cmd.ErrOrStderr())
		if err != nil {
			return nil, err
		}
		defer clear(pass)
	}
	ring, err := gpg.LoadKeyring(path, pass)
	if err != nil {
		return nil, err
	}
	return ring, nil
}

func (a *app) auth() (transport.AuthMethod, error) {
	if a.cfg.SSHKey == "" {
		return nil, nil
	}
	if _, err := os.Stat(a.cfg.SSHKey); err != nil {
		return nil, fmt.Errorf("failed to read ssh key: %w", err)
	}
	keys, err := ssh.NewPublicKeysFromFile("git", a.cfg.SSHKey, os.Getenv("PASSYNC_SSH_PASSPHRASE"))
	if err != nil {
		return nil, fmt.Errorf("failed to load ssh key %s: %w", a.cfg.SSHKey, err)
	}
	return keys, nil
}
