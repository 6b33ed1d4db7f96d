package cli

import (
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// startSpinner shows message on stderr until the returned stop is called.
// Nothing is drawn when stderr is not a terminal or debug logs would
// interleave with it.
func (a *app) startSpinner(cmd *cobra.Command, message string) func() {
	if cmd.ErrOrStderr() != os.Stderr || !term.IsTerminal(int(os.Stderr.Fd())) {
		return func() {}
	}
	if a.log.Core().Enabled(zapcore.DebugLevel) {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message
	_ = s.Color("cyan")
	s.Start()
	return s.Stop
}
