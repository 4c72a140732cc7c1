package usage

import (
	"context"
	"fmt"

	"github.com/suPer8Hu/genrelay/internal/logging"
)

// Sink stores one entry synchronously.
type Sink interface {
	Save(ctx context.Context, e Entry) error
}

// Mirror keeps a short list of recent entries outside the database.
type Mirror interface {
	PushUsage(ctx context.Context, e Entry) error
	RecentUsage(ctx context.Context, limit int) ([]Entry, error)
}

type Service struct {
	repo   *Repo
	mirror Mirror
}

// NewService builds the database-backed sink. mirror may be nil.
func NewService(repo *Repo, mirror Mirror) *Service {
	return &Service{repo: repo, mirror: mirror}
}

func (s *Service) Save(ctx context.Context, e Entry) error {
	rec, err := NewRecord(e)
	if err != nil {
		return fmt.Errorf("new usage record: %w", err)
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		return err
	}
	if s.mirror != nil {
		if err := s.mirror.PushUsage(ctx, rec.Entry()); err != nil {
			logging.Warnf("[usage] mirror push failed platform=%s err=%v", e.Provider, err)
		}
	}
	return nil
}

// Recent lists the newest entries. The mirror answers unfiltered queries it
// can fully satisfy; everything else goes to the database.
func (s *Service) Recent(ctx context.Context, provider string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	if s.mirror != nil && provider == "" {
		entries, err := s.mirror.RecentUsage(ctx, limit)
		if err == nil && len(entries) >= limit {
			return entries, nil
		}
		if err != nil {
			logging.Warnf("[usage] mirror read failed err=%v", err)
		}
	}

	recs, err := s.repo.ListRecent(ctx, provider, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].Entry())
	}
	return out, nil
}

func (s *Service) Totals(ctx context.Context) (map[string]int64, error) {
	return s.repo.CountByProvider(ctx)
}
