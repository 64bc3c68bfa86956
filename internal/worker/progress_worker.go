package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/examplify/examplify-backend/internal/config"
	"github.com/examplify/examplify-backend/internal/model"
)

// ProgressWorker consumes the progress queue and merges partial answer maps
// into the registration ledger's draft column.
type ProgressWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewProgressWorker creates a new ProgressWorker.
func NewProgressWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ProgressWorker {
	return &ProgressWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "progress_worker").Logger(),
	}
}

type progressPayload struct {
	TakerID uuid.UUID      `json:"taker_id"`
	Code    string         `json:"code"`
	Answers map[string]int `json:"answers"`
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *ProgressWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *ProgressWorker) processNext(ctx context.Context) {
	// BLPop blocks until an item is available or timeout (1 second).
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.PersistProgressQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	var payload progressPayload
	if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	if err := w.persistProgress(ctx, &payload); err != nil {
		w.log.Error().Err(err).
			Str("taker_id", payload.TakerID.String()).
			Str("code", payload.Code).
			Msg("Persist error, retrying in 5s")
		// Push back to queue for retry.
		w.rdb.RPush(ctx, config.WorkerKey.PersistProgressQueue, result[1])
		time.Sleep(5 * time.Second)
	}
}

// persistProgress merges the payload's answers over whatever draft is already
// stored. Submitted entries are skipped: a late queue item must never touch a
// finalized attempt.
func (w *ProgressWorker) persistProgress(ctx context.Context, p *progressPayload) error {
	answers, err := json.Marshal(p.Answers)
	if err != nil {
		return err
	}

	_, err = w.pool.Exec(ctx,
		`UPDATE registrations
		 SET draft_answers = COALESCE(draft_answers, '{}'::jsonb) || $3::jsonb
		 WHERE taker_id = $1 AND code = $2 AND status <> $4`,
		p.TakerID, p.Code, answers, model.AttemptStatusSubmitted,
	)
	return err
}

// drain processes all remaining items in the queue before shutdown.
func (w *ProgressWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.PersistProgressQueue).Result()
		if err != nil {
			break
		}

		var payload progressPayload
		if err := json.Unmarshal([]byte(result), &payload); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.persistProgress(ctx, &payload); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, config.WorkerKey.PersistProgressQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
