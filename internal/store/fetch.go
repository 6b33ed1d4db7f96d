package store

import (
	"context"
	"fmt"
	"sort"

	gogit "github.com/go-git/go-git/v5"
	"go.uber.org/zap"
)

// Fetch downloads refs and tags from every configured remote. The first
// failing remote aborts the fetch.
func (s *Store) Fetch(ctx context.Context) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	return s.fetch(ctx)
}

func (s *Store) fetch(ctx context.Context) error {
	remotes, err := s.repo.Remotes()
	if err != nil {
		return fmt.Errorf("failed to list remotes: %w", err)
	}
	sort.Slice(remotes, func(i, j int) bool {
		return remotes[i].Config().Name < remotes[j].Config().Name
	})

	for _, remote := range remotes {
		name := remote.Config().Name
		err := remote.FetchContext(ctx, &gogit.FetchOptions{
			RemoteName: name,
			Tags:       gogit.AllTags,
			Auth:       s.opts.Auth,
		})
		if err != nil && !isAlreadyUpToDate(err) {
			return fmt.Errorf("failed to fetch %s: %w", name, err)
		}
		s.log.Info("fetched remote", zap.String("remote", name), zap.Bool("up_to_date", err != nil))
	}
	return nil
}
