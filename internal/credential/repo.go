package credential

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, k *APIKey) error {
	return r.db.WithContext(ctx).Create(k).Error
}

// GetActive returns the oldest active key for a platform, or
// gorm.ErrRecordNotFound. Find keeps the miss out of gorm's error log since
// falling back to the environment is a normal path.
func (r *Repo) GetActive(ctx context.Context, platform string) (*APIKey, error) {
	var keys []APIKey
	if err := r.db.WithContext(ctx).
		Where("platform = ? AND is_active = ?", platform, true).
		Order("created_at ASC").
		Limit(1).
		Find(&keys).Error; err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &keys[0], nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*APIKey, error) {
	var k APIKey
	if err := r.db.WithContext(ctx).First(&k, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &k, nil
}

func (r *Repo) List(ctx context.Context) ([]APIKey, error) {
	var keys []APIKey
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

// Update applies column updates and returns the fresh row.
func (r *Repo) Update(ctx context.Context, id string, updates map[string]any) (*APIKey, error) {
	if len(updates) > 0 {
		res := r.db.WithContext(ctx).Model(&APIKey{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
	}
	return r.GetByID(ctx, id)
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&APIKey{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repo) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&APIKey{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
}

// ReplaceActive deactivates the platform's active keys and inserts k in one
// transaction, so a failed insert leaves the previous key active.
func (r *Repo) ReplaceActive(ctx context.Context, k *APIKey) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&APIKey{}).
			Where("platform = ? AND is_active = ?", k.Platform, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Create(k).Error
	})
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
