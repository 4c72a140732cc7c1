package usage

import (
	"context"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Insert(ctx context.Context, rec *Record) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

// ListRecent returns records newest first. An empty provider lists all.
func (r *Repo) ListRecent(ctx context.Context, provider string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	q := r.db.WithContext(ctx).Order("timestamp DESC").Order("id DESC").Limit(limit)
	if provider != "" {
		q = q.Where("provider = ?", provider)
	}
	var recs []Record
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// CountByProvider returns call totals per provider.
func (r *Repo) CountByProvider(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Provider string
		N        int64
	}
	if err := r.db.WithContext(ctx).Model(&Record{}).
		Select("provider, count(*) as n").
		Group("provider").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Provider] = row.N
	}
	return out, nil
}
