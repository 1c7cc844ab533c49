package connect

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/uwillc/backroom/internal/directory"
	"github.com/uwillc/backroom/internal/storage"
)

type lookup struct {
	profile directory.Profile
	err     error
}

type lookups map[string]lookup

// party returns the public view of id and, if the lookup failed, a
// description of the failure.
func (l lookups) party(id string) (Party, string) {
	res, ok := l[id]
	if !ok || res.err != nil {
		reason := "profile lookup skipped"
		switch {
		case ok && errors.Is(res.err, storage.ErrNotFound):
			reason = "profile no longer exists"
		case ok:
			reason = res.err.Error()
		}
		return Party{ID: id}, reason
	}
	p := res.profile
	return Party{ID: p.ID, Name: p.Name, Role: p.Role, Offers: p.Offers, Seeks: p.Seeks}, ""
}

// enrich fetches each distinct id concurrently. A failed lookup is recorded
// against its id and never fails the whole listing.
func (w *Workflow) enrich(ctx context.Context, ids []string) lookups {
	var (
		mu  sync.Mutex
		out = make(lookups, len(ids))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichLimit)

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		g.Go(func() error {
			p, err := w.profiles.GetProfile(gctx, id)
			if err != nil {
				slog.Warn("enrichment lookup failed", "profile", id, "error", err)
			}
			mu.Lock()
			out[id] = lookup{profile: p, err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}
