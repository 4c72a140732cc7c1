package credential

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/suPer8Hu/genrelay/internal/logging"
)

var (
	ErrInvalidPlatform = errors.New("invalid platform")
	ErrEmptyKey        = errors.New("api key is required")
)

// Sealer encrypts secrets at rest. *secret.Cipher satisfies it.
type Sealer interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(encoded string) (string, error)
}

type Service struct {
	repo   *Repo
	sealer Sealer
	getenv func(string) string
	now    func() time.Time
}

func NewService(repo *Repo, sealer Sealer) *Service {
	return &Service{repo: repo, sealer: sealer, getenv: os.Getenv, now: time.Now}
}

// Add stores a new active key for platform.
func (s *Service) Add(ctx context.Context, platform, apiKey, keyName string) (*APIKey, error) {
	k, err := s.seal(platform, apiKey, keyName)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, k); err != nil {
		return nil, err
	}
	return k, nil
}

// seal validates and encrypts a key without storing it.
func (s *Service) seal(platform, apiKey, keyName string) (*APIKey, error) {
	platform = strings.ToLower(strings.TrimSpace(platform))
	if !IsValidPlatform(platform) {
		return nil, ErrInvalidPlatform
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrEmptyKey
	}

	enc, err := s.sealer.Encrypt(apiKey)
	if err != nil {
		return nil, err
	}

	return &APIKey{
		ID:           uuid.NewString(),
		Platform:     platform,
		EncryptedKey: enc,
		KeyName:      strings.TrimSpace(keyName),
		IsActive:     true,
		CreatedAt:    s.now(),
	}, nil
}

func (s *Service) List(ctx context.Context) ([]KeyView, error) {
	keys, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]KeyView, 0, len(keys))
	for i := range keys {
		out = append(out, keys[i].View())
	}
	return out, nil
}

// KeyUpdate carries the fields PATCH may change; nil means unchanged.
type KeyUpdate struct {
	IsActive *bool
	KeyName  *string
}

func (s *Service) Update(ctx context.Context, id string, u KeyUpdate) (*APIKey, error) {
	updates := map[string]any{}
	if u.IsActive != nil {
		updates["is_active"] = *u.IsActive
	}
	if u.KeyName != nil && strings.TrimSpace(*u.KeyName) != "" {
		updates["key_name"] = strings.TrimSpace(*u.KeyName)
	}
	return s.repo.Update(ctx, id, updates)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Active returns the active stored key for a platform, or nil when none.
func (s *Service) Active(ctx context.Context, platform string) (*APIKey, error) {
	k, err := s.repo.GetActive(ctx, platform)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return k, nil
}

// Resolve returns the secret for platform: the active stored key first, then
// the platform's environment variable. ok is false when neither exists.
func (s *Service) Resolve(ctx context.Context, platform string) (string, bool, error) {
	k, err := s.Active(ctx, platform)
	if err != nil {
		logging.Warnf("[credential] active key lookup failed platform=%s err=%v", platform, err)
	}
	if k != nil {
		plain, err := s.sealer.Decrypt(k.EncryptedKey)
		if err == nil {
			if err := s.repo.TouchLastUsed(ctx, k.ID, s.now()); err != nil {
				logging.Warnf("[credential] touch last_used failed id=%s err=%v", k.ID, err)
			}
			return plain, true, nil
		}
		logging.Errorf("[credential] decrypt failed platform=%s id=%s err=%v", platform, k.ID, err)
	}

	if name := EnvVar(platform); name != "" {
		if v := strings.TrimSpace(s.getenv(name)); v != "" {
			logging.Debugf("[credential] using %s for platform=%s", name, platform)
			return v, true, nil
		}
	}
	return "", false, nil
}
