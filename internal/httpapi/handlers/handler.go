package handlers

import (
	"context"
	"time"

	"github.com/suPer8Hu/genrelay/internal/ai"
	"github.com/suPer8Hu/genrelay/internal/config"
	"github.com/suPer8Hu/genrelay/internal/credential"
	"github.com/suPer8Hu/genrelay/internal/usage"
)

// TokenStore revokes admin tokens on logout. *redisstore.Store satisfies it.
type TokenStore interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Deps is everything the handlers need; Tokens may be nil.
type Deps struct {
	Keys      *credential.Service
	Platforms *ai.Registry
	Recorder  usage.Recorder
	UsageLog  *usage.Service
	Tokens    TokenStore
}

type Handler struct {
	Cfg       config.Config
	Keys      *credential.Service
	Platforms *ai.Registry
	Recorder  usage.Recorder
	UsageLog  *usage.Service
	Tokens    TokenStore
}

func NewHandler(cfg config.Config, d Deps) *Handler {
	return &Handler{
		Cfg:       cfg,
		Keys:      d.Keys,
		Platforms: d.Platforms,
		Recorder:  d.Recorder,
		UsageLog:  d.UsageLog,
		Tokens:    d.Tokens,
	}
}
