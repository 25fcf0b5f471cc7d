package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/linkmap/linkmap/internal/config"
	applog "github.com/linkmap/linkmap/internal/logger"
	"github.com/linkmap/linkmap/internal/model"
)

const (
	batchSize     = 100
	flushInterval = 2 * time.Second
)

// The worker drains click events from the queue and maintains aggregated
// per-code counts. It is a pure observability sidecar: the registry's own
// click history stays authoritative.
func main() {
	applog.InitFromEnv()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	if cfg.RabbitURL == "" || cfg.DatabaseURL == "" {
		slog.Error("analytics worker requires RABBITMQ_URL and DB_URL")
		os.Exit(1)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: applog.NewGormLogger(cfg.GormLogLevel),
	})
	if err != nil {
		slog.Error("unable to connect to database", "err", err)
		os.Exit(1)
	}
	if err := db.AutoMigrate(&model.CodeStats{}); err != nil {
		slog.Error("migration failed", "err", err)
		os.Exit(1)
	}

	conn, err := amqp091.Dial(cfg.RabbitURL)
	if err != nil {
		slog.Error("unable to connect to RabbitMQ", "err", err)
		os.Exit(1)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		slog.Error("unable to open RabbitMQ channel", "err", err)
		os.Exit(1)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(cfg.ClickQueue, true, false, false, false, nil)
	if err != nil {
		slog.Error("failed to declare queue", "queue", cfg.ClickQueue, "err", err)
		os.Exit(1)
	}

	if err := ch.Qos(batchSize, 0, false); err != nil {
		slog.Error("failed to set QoS", "err", err)
		os.Exit(1)
	}

	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		slog.Error("failed to register consumer", "err", err)
		os.Exit(1)
	}

	slog.Info("analytics worker started, waiting for click events", "queue", q.Name)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var events []model.ClickEvent
	var deliveries []amqp091.Delivery
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case d, ok := <-msgs:
			if !ok {
				slog.Warn("RabbitMQ channel closed")
				return
			}
			var ev model.ClickEvent
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				slog.Error("undecodable click event, rejecting", "err", err)
				d.Reject(false)
				continue
			}
			events = append(events, ev)
			deliveries = append(deliveries, d)

			if len(events) >= batchSize {
				processBatch(db, events, deliveries)
				events, deliveries = nil, nil
				ticker.Reset(flushInterval)
			}

		case <-ticker.C:
			if len(events) > 0 {
				slog.Info("timer flush", "count", len(events))
				processBatch(db, events, deliveries)
				events, deliveries = nil, nil
			}

		case <-ctx.Done():
			if len(events) > 0 {
				processBatch(db, events, deliveries)
			}
			slog.Info("analytics worker stopped")
			return
		}
	}
}

// processBatch folds the batch into per-code counts and upserts them in one
// transaction, acking on success and requeueing on failure.
func processBatch(db *gorm.DB, events []model.ClickEvent, deliveries []amqp091.Delivery) {
	if len(events) == 0 {
		return
	}

	counts := make(map[string]int64)
	for _, ev := range events {
		counts[ev.ShortCode]++
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		for code, count := range counts {
			rec := model.CodeStats{ShortCode: code, ClickCount: count}
			if err := tx.Clauses(
				clause.OnConflict{
					Columns: []clause.Column{{Name: "short_code"}},
					DoUpdates: clause.Assignments(map[string]interface{}{
						"click_count": gorm.Expr("code_stats.click_count + EXCLUDED.click_count"),
					}),
				},
			).Create(&rec).Error; err != nil {
				slog.Error("error upserting click count", "short_code", code, "err", err)
				return err
			}
		}
		return nil
	})

	if err != nil {
		slog.Error("batch transaction failed, requeueing", "err", err)
		for _, d := range deliveries {
			d.Nack(false, true)
		}
		return
	}

	for _, d := range deliveries {
		d.Ack(false)
	}
	slog.Info("batch processed", "events", len(events), "codes", len(counts))
}
