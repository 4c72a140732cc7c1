package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/suPer8Hu/genrelay/internal/config"
	"github.com/suPer8Hu/genrelay/internal/db"
	"github.com/suPer8Hu/genrelay/internal/logging"
	"github.com/suPer8Hu/genrelay/internal/store/rabbitmq"
	"github.com/suPer8Hu/genrelay/internal/store/redisstore"
	"github.com/suPer8Hu/genrelay/internal/usage"
)

const (
	maxAttempts = 5
	retryDelay  = 10 * time.Second
)

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func main() {
	cfg := config.Load()
	if cfg.RabbitURL == "" {
		logging.Fatalf("RABBIT_URL is required for the worker")
	}

	gdb := db.Connect(cfg.DBDSN)

	var mirror usage.Mirror
	if cfg.RedisAddr != "" {
		rds, err := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.UsageRecentLimit)
		if err != nil {
			logging.Warnf("redis unavailable, continuing without it: %v", err)
		} else {
			defer rds.Close()
			mirror = rds
		}
	}
	svc := usage.NewService(usage.NewRepo(gdb), mirror)

	//  strict concurrency control
	concurrency := workerConcurrency()

	consumer, err := rabbitmq.NewConsumer(cfg.RabbitURL, cfg.RabbitQueue, concurrency)
	if err != nil {
		logging.Fatalf("rabbit consumer: %v", err)
	}
	defer consumer.Close()

	pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		logging.Fatalf("rabbit publisher: %v", err)
	}
	defer pub.Close()

	msgs, err := consumer.Deliveries()
	if err != nil {
		logging.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Infof("worker started, queue=%s concurrency=%d", cfg.RabbitQueue, concurrency)

	// worker pool
	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				handleDelivery(ctx, workerID, svc, pub, d)
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			logging.Infof("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				logging.Errorf("delivery channel closed")
				close(jobs)
				wg.Wait()
				return
			}
			jobs <- d
		}
	}
}

func handleDelivery(ctx context.Context, workerID int, svc *usage.Service, pub *rabbitmq.Publisher, d amqp.Delivery) {
	var e usage.Entry
	if err := json.Unmarshal(d.Body, &e); err != nil || e.Provider == "" {
		logging.Errorf("worker=%d bad message: %v", workerID, err)
		_ = d.Nack(false, false)
		return
	}

	start := time.Now()
	if err := svc.Save(ctx, e); err != nil {
		attempt := rabbitmq.Attempt(d) + 1
		logging.Warnf("worker=%d save failed platform=%s attempt=%d/%d cost=%s err=%v",
			workerID, e.Provider, attempt, maxAttempts, time.Since(start), err)

		if attempt >= maxAttempts {
			// dead-letter
			_ = d.Nack(false, false)
			return
		}
		if err := pub.Retry(ctx, d.Body, attempt, retryDelay); err != nil {
			logging.Errorf("worker=%d retry publish failed err=%v", workerID, err)
			_ = d.Nack(false, true)
			return
		}
		_ = d.Ack(false)
		return
	}

	if err := d.Ack(false); err != nil {
		logging.Errorf("worker=%d ack failed platform=%s err=%v", workerID, e.Provider, err)
	}
}
