package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/kurobon/passync/internal/conflict"
)

var (
	success = color.New(color.FgGreen).SprintFunc()
	failure = color.New(color.FgRed).SprintFunc()
	accent  = color.New(color.FgCyan).SprintFunc()
	muted   = color.New(color.Faint).SprintFunc()
)

// printSummary lists every conflict of r with its kind and present sides.
func printSummary(w io.Writer, r *conflict.Resolver) {
	fmt.Fprintf(w, "%s %d conflicting paths\n", failure("✗"), r.Len())
	for _, c := range r.Conflicts() {
		fmt.Fprintf(w, "  %-10s %s %s\n", accent(c.Kind()), c.Path(), muted("("+sidesLabel(c.Sides())+")"))
	}

	counts := r.Summary()
	var parts []string
	for _, k := range []conflict.Kind{conflict.KindPassword, conflict.KindGpgID, conflict.KindPlainText, conflict.KindBinary} {
		if n := counts[k]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, k))
		}
	}
	fmt.Fprintf(w, "%s %s\n", accent("→"), strings.Join(parts, ", "))
}

func sidesLabel(s conflict.Sides) string {
	var names []string
	if s.Ancestor != nil {
		names = append(names, "base")
	}
	if s.Ours != nil {
		names = append(names, "ours")
	}
	if s.Theirs != nil {
		names = append(names, "theirs")
	}
	return strings.Join(names, ", ")
}
