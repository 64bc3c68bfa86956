package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/examplify/examplify-backend/internal/model"
)

// RegistrationRepository handles registration ledger data access.
type RegistrationRepository struct {
	pool *pgxpool.Pool
}

// NewRegistrationRepository creates a new RegistrationRepository.
func NewRegistrationRepository(pool *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{pool: pool}
}

// Create inserts a ledger entry with status unanswered. The UNIQUE
// (taker_id, code) constraint makes the existence-check-then-insert a single
// atomic statement; a duplicate surfaces as a unique violation the service
// converts to a conflict.
func (r *RegistrationRepository) Create(ctx context.Context, reg *model.Registration) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO registrations (taker_id, code, status)
		 VALUES ($1, $2, $3)
		 RETURNING id, registered_at`,
		reg.TakerID, reg.Code, model.AttemptStatusUnanswered,
	).Scan(&reg.ID, &reg.RegisteredAt)
}

// GetByTakerAndCode retrieves one taker's ledger entry for one exam code.
func (r *RegistrationRepository) GetByTakerAndCode(ctx context.Context, takerID uuid.UUID, code string) (*model.Registration, error) {
	reg := &model.Registration{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, taker_id, code, status, registered_at, started_at, submitted_at,
		        score, question_ids, draft_answers, result
		 FROM registrations
		 WHERE taker_id = $1 AND code = $2`, takerID, code,
	).Scan(&reg.ID, &reg.TakerID, &reg.Code, &reg.Status, &reg.RegisteredAt,
		&reg.StartedAt, &reg.SubmittedAt, &reg.Score, &reg.QuestionIDs,
		&reg.DraftAnswers, &reg.Result)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// MarkAttempted conditionally transitions unanswered → attempted, pinning the
// resolved question ids to the row. Returns false when the entry was already
// attempted or submitted, which keeps repeated start calls from regressing
// the status or swapping the draw.
func (r *RegistrationRepository) MarkAttempted(ctx context.Context, takerID uuid.UUID, code string, questionIDs []uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE registrations
		 SET status = $1, started_at = NOW(), question_ids = $2
		 WHERE taker_id = $3 AND code = $4 AND status = $5`,
		model.AttemptStatusAttempted, questionIDs, takerID, code, model.AttemptStatusUnanswered)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// StoreQuestionIDs pins a resolved draw to an in-flight attempt. Used when a
// started attempt carries no ids yet; submitted rows are never touched.
func (r *RegistrationRepository) StoreQuestionIDs(ctx context.Context, takerID uuid.UUID, code string, questionIDs []uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE registrations
		 SET question_ids = $1
		 WHERE taker_id = $2 AND code = $3 AND status <> $4`,
		questionIDs, takerID, code, model.AttemptStatusSubmitted)
	return err
}

// MarkSubmitted conditionally finalizes an attempt, storing the score and the
// opaque result payload. Returns false when the entry was already submitted;
// the stored payload is never overwritten.
func (r *RegistrationRepository) MarkSubmitted(ctx context.Context, takerID uuid.UUID, code string, score float64, result []byte, submittedAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE registrations
		 SET status = $1, score = $2, result = $3, submitted_at = $4, draft_answers = NULL
		 WHERE taker_id = $5 AND code = $6 AND status <> $1`,
		model.AttemptStatusSubmitted, score, result, submittedAt, takerID, code)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListByCode retrieves every taker's attempt summary for one exam code,
// joined with the identity mirror for display names.
func (r *RegistrationRepository) ListByCode(ctx context.Context, code string) ([]model.AttemptSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT reg.taker_id, u.name, reg.status, reg.score,
		        reg.registered_at, reg.started_at, reg.submitted_at
		 FROM registrations reg
		 JOIN users u ON u.id = reg.taker_id
		 WHERE reg.code = $1
		 ORDER BY u.name`, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []model.AttemptSummary
	for rows.Next() {
		var s model.AttemptSummary
		if err := rows.Scan(&s.TakerID, &s.TakerName, &s.Status, &s.Score,
			&s.RegisteredAt, &s.StartedAt, &s.SubmittedAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
