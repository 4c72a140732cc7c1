package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/suPer8Hu/genrelay/internal/ai"
	"github.com/suPer8Hu/genrelay/internal/config"
	"github.com/suPer8Hu/genrelay/internal/credential"
	"github.com/suPer8Hu/genrelay/internal/db"
	"github.com/suPer8Hu/genrelay/internal/httpapi"
	"github.com/suPer8Hu/genrelay/internal/httpapi/handlers"
	"github.com/suPer8Hu/genrelay/internal/logging"
	"github.com/suPer8Hu/genrelay/internal/lro"
	"github.com/suPer8Hu/genrelay/internal/secret"
	"github.com/suPer8Hu/genrelay/internal/store/rabbitmq"
	"github.com/suPer8Hu/genrelay/internal/store/redisstore"
	"github.com/suPer8Hu/genrelay/internal/usage"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logging.Fatalf("config: %v", err)
	}
	if cfg.EncryptionKey == "default-key" {
		logging.Warnf("ENCRYPTION_KEY is not set, stored keys use the built-in default")
	}

	gdb := db.Connect(cfg.DBDSN)

	cipher, err := secret.FromPassphrase(cfg.EncryptionKey, cfg.EncryptionSalt)
	if err != nil {
		logging.Fatalf("cipher: %v", err)
	}
	keys := credential.NewService(credential.NewRepo(gdb), cipher)

	if cfg.AutoImportAPIKeys {
		for _, r := range keys.ImportFromEnv(context.Background(), true) {
			logging.Infof("auto-import %s", r.Message)
		}
	}

	// redis is optional: recent-usage mirror and token revocation
	var rds *redisstore.Store
	if cfg.RedisAddr != "" {
		rds, err = redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.UsageRecentLimit)
		if err != nil {
			logging.Warnf("redis unavailable, continuing without it: %v", err)
			rds = nil
		} else {
			defer rds.Close()
		}
	}

	var mirror usage.Mirror
	if rds != nil {
		mirror = rds
	}
	usageSvc := usage.NewService(usage.NewRepo(gdb), mirror)

	// with RabbitMQ the worker persists usage; without it we write in-process
	var sink usage.Sink = usageSvc
	if cfg.RabbitURL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			logging.Fatalf("rabbit publisher: %v", err)
		}
		defer pub.Close()
		sink = usage.NewQueueSink(pub)
		logging.Infof("usage records go to queue=%s", cfg.RabbitQueue)
	}
	recorder := usage.NewAsync(sink, 1024)
	defer recorder.Close()

	reg := ai.NewRegistry()
	reg.Register(ai.NewOpenAIProvider(cfg.OpenAIBaseURL, keys))
	reg.Register(ai.NewGeminiProvider(cfg.GeminiBaseURL, keys))
	reg.Register(ai.NewSeedreamProvider(cfg.SeedreamBaseURL, keys))
	reg.Register(ai.NewKlingProvider(cfg.KlingBaseURL, keys, lro.Config{
		Interval:    cfg.KlingPollInterval,
		MaxAttempts: cfg.KlingPollMaxAttempts,
		Action:      "Video",
	}))
	reg.Register(ai.NewVeoProvider(cfg.VeoBaseURL, keys, lro.Config{
		Interval:    cfg.VeoPollInterval,
		MaxAttempts: cfg.VeoPollMaxAttempts,
		Action:      "Video",
	}))

	deps := handlers.Deps{
		Keys:      keys,
		Platforms: reg,
		Recorder:  recorder,
		UsageLog:  usageSvc,
	}
	if rds != nil {
		deps.Tokens = rds
	}
	r := httpapi.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// video calls block for up to MaxAttempts*Interval
		WriteTimeout: 0,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logging.Infof("api listening on %s auth=%t", cfg.HTTPAddr, cfg.AuthEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	logging.Infof("api shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Errorf("shutdown: %v", err)
	}
}
