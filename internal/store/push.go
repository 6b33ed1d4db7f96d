package store

import (
	"context"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"go.uber.org/zap"
)

// Push pushes the current branch to remote, or to the branch's upstream
// remote when remote is empty. Rejected pushes are not retried.
func (s *Store) Push(ctx context.Context, remote string) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	branch, err := s.currentBranch()
	if err != nil {
		return err
	}
	if remote == "" {
		if remote, _, err = s.upstream(branch); err != nil {
			return err
		}
	}

	spec := config.RefSpec(fmt.Sprintf("%s:%s", branch, branch))
	err = s.repo.PushContext(ctx, &gogit.PushOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{spec},
		Auth:       s.opts.Auth,
	})
	if err != nil && !isAlreadyUpToDate(err) {
		return fmt.Errorf("failed to push %s to %s: %w", branch.Short(), remote, err)
	}
	s.log.Info("pushed branch",
		zap.String("branch", branch.Short()),
		zap.String("remote", remote),
		zap.Bool("up_to_date", err != nil))
	return nil
}
