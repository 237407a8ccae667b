package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepexam/prepexam-backend/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	NotifyBatchSize    = 50
	NotifyBatchTimeout = 2 * time.Second
	NotifyPollTimeout  = 1 * time.Second
)

// NotificationWorker drains queued result notifications into the
// result_notifications outbox table, from which the mailer picks them up.
// Notification delivery is best effort end to end: a submission is complete
// the moment it is graded and stored, whether or not any of this succeeds.
type NotificationWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewNotificationWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *NotificationWorker {
	return &NotificationWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "notification_worker").Logger(),
	}
}

type notifyPayload struct {
	UserID   int    `json:"user_id"`
	TestID   string `json:"test_id"`
	Correct  int    `json:"correct"`
	Total    int    `json:"total"`
	Accuracy int    `json:"accuracy"`
	Points   int    `json:"points"`
}

func (w *NotificationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("NotificationWorker started")

	batch := make([]*notifyPayload, 0, NotifyBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= NotifyBatchSize || time.Since(lastFlush) >= NotifyBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, NotifyPollTimeout, config.WorkerKey.NotificationsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p notifyPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

func (w *NotificationWorker) flushSafe(ctx context.Context, batch []*notifyPayload) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk notification insert failed, using fallback")

		for _, p := range batch {
			if err := w.persistSingle(ctx, p); err != nil {
				w.log.Error().Err(err).Msg("persistSingle failed — requeueing")
				raw, _ := json.Marshal(p)
				w.rdb.RPush(ctx, config.WorkerKey.NotificationsQueue, raw)
			}
		}
	}
}

// bulkInsert writes a whole batch in one statement using UNNEST.
func (w *NotificationWorker) bulkInsert(ctx context.Context, batch []*notifyPayload) error {
	n := len(batch)

	testIDs := make([]uuid.UUID, 0, n)
	users := make([]int, 0, n)
	corrects := make([]int, 0, n)
	totals := make([]int, 0, n)
	accuracies := make([]int, 0, n)
	points := make([]int, 0, n)

	for _, p := range batch {
		tID, err := uuid.Parse(p.TestID)
		if err != nil {
			return err
		}
		testIDs = append(testIDs, tID)
		users = append(users, p.UserID)
		corrects = append(corrects, p.Correct)
		totals = append(totals, p.Total)
		accuracies = append(accuracies, p.Accuracy)
		points = append(points, p.Points)
	}

	query := `
		INSERT INTO result_notifications
			(test_id, user_id, correct_count, total_count, accuracy, points, status)
		SELECT u.test_id, u.user_id, u.correct_count, u.total_count, u.accuracy, u.points, 'PENDING'
		FROM UNNEST(
			$1::uuid[],
			$2::int[],
			$3::int[],
			$4::int[],
			$5::int[],
			$6::int[]
		) AS u (test_id, user_id, correct_count, total_count, accuracy, points)
	`

	_, err := w.pool.Exec(ctx, query, testIDs, users, corrects, totals, accuracies, points)
	return err
}

func (w *NotificationWorker) persistSingle(ctx context.Context, p *notifyPayload) error {
	tID, err := uuid.Parse(p.TestID)
	if err != nil {
		return err
	}

	_, err = w.pool.Exec(ctx,
		`INSERT INTO result_notifications
			(test_id, user_id, correct_count, total_count, accuracy, points, status)
		 VALUES ($1, $2, $3, $4, $5, $6, 'PENDING')`,
		tID, p.UserID, p.Correct, p.Total, p.Accuracy, p.Points,
	)
	return err
}
