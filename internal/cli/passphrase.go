package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"
	"golang.org/x/term"

	"github.com/kurobon/passync/internal/gpg"
)

const keyringService = "passync"

// ErrNoPassphrase is returned when a locked keyring has no passphrase in the
// environment or the OS keyring and stdin is not a terminal.
var ErrNoPassphrase = errors.New("keyring passphrase required: set PASSYNC_PASSPHRASE or run 'passync passphrase save'")

// passphraseSource finds the passphrase of a secret keyring: the
// environment, then the OS keyring, then an interactive prompt.
type passphraseSource struct {
	getenv   func(string) string
	lookup   func(service, user string) (string, error)
	terminal func() bool
	prompt   func() ([]byte, error)
}

func defaultPassphraseSource() passphraseSource {
	fd := int(os.Stdin.Fd())
	return passphraseSource{
		getenv:   os.Getenv,
		lookup:   keyring.Get,
		terminal: func() bool { return term.IsTerminal(fd) },
		prompt:   func() ([]byte, error) { return term.ReadPassword(fd) },
	}
}

func (p passphraseSource) get(keyringPath string, out io.Writer) ([]byte, error) {
	if v := p.getenv("PASSYNC_PASSPHRASE"); v != "" {
		return []byte(v), nil
	}
	if v, err := p.lookup(keyringService, keyringID(keyringPath)); err == nil {
		return []byte(v), nil
	}
	return p.ask(keyringPath, out)
}

func (p passphraseSource) ask(keyringPath string, out io.Writer) ([]byte, error) {
	if !p.terminal() {
		return nil, ErrNoPassphrase
	}
	fmt.Fprintf(out, "Passphrase for %s: ", keyringPath)
	pass, err := p.prompt()
	fmt.Fprintln(out)
	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	return pass, nil
}

// keyringID names an entry in the OS keyring by the absolute keyring path.
func keyringID(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func newPassphraseCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "passphrase",
		Short: "Manage the keyring passphrase stored in the OS keychain",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "save",
			Short: "Prompt for the keyring passphrase and store it in the OS keychain",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if a.cfg.Keyring == "" {
					return errors.New("no keyring configured")
				}
				pass, err := a.passphrase.ask(a.cfg.Keyring, cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				defer clear(pass)
				if _, err := gpg.LoadKeyring(a.cfg.Keyring, pass); err != nil {
					return err
				}
				if err := keyring.Set(keyringService, keyringID(a.cfg.Keyring), string(pass)); err != nil {
					return fmt.Errorf("failed to save passphrase: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), success("✓")+" Passphrase saved")
				return nil
			},
		},
		&cobra.Command{
			Use:   "forget",
			Short: "Remove the keyring passphrase from the OS keychain",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if a.cfg.Keyring == "" {
					return errors.New("no keyring configured")
				}
				err := keyring.Delete(keyringService, keyringID(a.cfg.Keyring))
				if err != nil && !errors.Is(err, keyring.ErrNotFound) {
					return fmt.Errorf("failed to remove passphrase: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), success("✓")+" Passphrase removed")
				return nil
			},
		},
	)
	return cmd
}
