package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kurobon/passync/internal/store"
)

func newFetchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch refs and tags from every remote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			stop := a.startSpinner(cmd, "Fetching...")
			err = s.Fetch(cmd.Context())
			stop()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), success("✓")+" Fetched")
			return nil
		},
	}
}

func newMergeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Merge the upstream branch into the current branch",
		Long: `Merge the upstream of the current branch without fetching.

Fast-forwards and conflict-free merges are committed. Conflicts are
listed and the merge is abandoned, leaving the worktree untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.merge(cmd, "Merging...", (*store.Store).Merge)
		},
	}
}

func newPullCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Fetch every remote, then merge the upstream branch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.merge(cmd, "Pulling...", (*store.Store).Pull)
		},
	}
}

func newPushCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "push [remote]",
		Short: "Push the current branch",
		Long:  `Push the current branch to the given remote, or to its upstream remote.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			var remote string
			if len(args) == 1 {
				remote = args[0]
			}
			stop := a.startSpinner(cmd, "Pushing...")
			err = s.Push(cmd.Context(), remote)
			stop()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), success("✓")+" Pushed")
			return nil
		},
	}
}

type mergeFunc func(*store.Store, context.Context) (*store.MergeResult, error)

func (a *app) merge(cmd *cobra.Command, message string, run mergeFunc) error {
	s, err := a.openStore(cmd)
	if err != nil {
		return err
	}
	stop := a.startSpinner(cmd, message)
	res, err := run(s, cmd.Context())
	stop()
	if err != nil {
		return err
	}
	return a.complete(cmd, res)
}

// complete finishes a merge without conflicts. Otherwise it prints the
// conflicts and aborts, since resolving them needs a caller of the
// conflict API.
func (a *app) complete(cmd *cobra.Command, res *store.MergeResult) error {
	out := cmd.OutOrStdout()
	if res.Len() == 0 {
		if err := res.Finish(); err != nil {
			return err
		}
		a.log.Info("merge finished", zap.Stringer("strategy", res.Strategy))
		fmt.Fprintln(out, success("✓")+" "+strategyMessage(res.Strategy))
		return nil
	}

	printSummary(out, res.Resolver)
	if err := res.Abort(); err != nil {
		return err
	}
	return fmt.Errorf("merge aborted with %d unresolved conflicts", res.Len())
}

func strategyMessage(s store.Strategy) string {
	switch s {
	case store.StrategyUpToDate:
		return "Already up to date"
	case store.StrategyFastForward:
		return "Fast-forwarded"
	case store.StrategyUnborn:
		return "Checked out upstream"
	}
	return "Merged"
}
