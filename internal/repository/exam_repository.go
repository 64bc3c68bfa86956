package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/examplify/examplify-backend/internal/model"
)

const examColumns = `id, creator_id, title, subject, open_at, close_at,
	        time_limit_minutes, directions, total_items, total_points,
	        passing_score, show_results, code, pool_id, status,
	        has_variable_points, created_at, updated_at`

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

func scanExam(row interface{ Scan(...any) error }) (*model.Exam, error) {
	e := &model.Exam{}
	err := row.Scan(&e.ID, &e.CreatorID, &e.Title, &e.Subject, &e.OpenAt, &e.CloseAt,
		&e.TimeLimitMinutes, &e.Directions, &e.TotalItems, &e.TotalPoints,
		&e.PassingScore, &e.ShowResults, &e.Code, &e.PoolID, &e.Status,
		&e.HasVariablePoints, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetByID retrieves an exam by its UUID.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1`, id))
}

// GetByCode retrieves an exam by its access code. Unpublished exams carry an
// empty code and are unreachable through this query.
func (r *ExamRepository) GetByCode(ctx context.Context, code string) (*model.Exam, error) {
	return scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE code = $1 AND code <> ''`, code))
}

// Create inserts a new exam. A duplicate access code surfaces as a
// unique-constraint violation from the partial index on (code); callers
// regenerate and retry.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exams (creator_id, title, subject, open_at, close_at,
		                    time_limit_minutes, directions, total_items, total_points,
		                    passing_score, show_results, code, pool_id, status,
		                    has_variable_points)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING id, created_at, updated_at`,
		e.CreatorID, e.Title, e.Subject, e.OpenAt, e.CloseAt,
		e.TimeLimitMinutes, e.Directions, e.TotalItems, e.TotalPoints,
		e.PassingScore, e.ShowResults, e.Code, e.PoolID, e.Status,
		e.HasVariablePoints,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// Update replaces an exam's metadata, totals, code and status, keyed on the
// status the caller read before mutating. A lifecycle trigger firing between
// that read and this write changes the status underneath the caller; the
// guard makes the stale write a no-op (false) instead of a silent regression.
func (r *ExamRepository) Update(ctx context.Context, e *model.Exam, expected model.ExamStatus) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exams
		 SET title = $1, subject = $2, open_at = $3, close_at = $4,
		     time_limit_minutes = $5, directions = $6, total_items = $7,
		     total_points = $8, passing_score = $9, show_results = $10,
		     code = $11, status = $12, has_variable_points = $13, updated_at = NOW()
		 WHERE id = $14 AND status = $15`,
		e.Title, e.Subject, e.OpenAt, e.CloseAt,
		e.TimeLimitMinutes, e.Directions, e.TotalItems,
		e.TotalPoints, e.PassingScore, e.ShowResults,
		e.Code, e.Status, e.HasVariablePoints, e.ID, expected)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateShowResults flips only the result-visibility flag. This is the one
// mutation still permitted after an exam closes.
func (r *ExamRepository) UpdateShowResults(ctx context.Context, id uuid.UUID, show bool) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exams SET show_results = $1, updated_at = NOW() WHERE id = $2`,
		show, id)
	return err
}

// TransitionStatus applies a conditional status update keyed on the expected
// prior state. It returns false when no row matched, which is how a late or
// duplicate scheduler firing (or a fire racing a delete) turns into a no-op.
func (r *ExamRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to model.ExamStatus) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exams SET status = $1, updated_at = NOW()
		 WHERE id = $2 AND status = $3`,
		to, id, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes an exam row.
func (r *ExamRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListByCreator retrieves all exams created by one author, newest first.
func (r *ExamRepository) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+examColumns+` FROM exams
		 WHERE creator_id = $1
		 ORDER BY created_at DESC`, creatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, *e)
	}
	return exams, rows.Err()
}

// ListByRegisteredTaker retrieves the exams whose codes a taker has redeemed,
// newest registration first. This backs the taker's lobby view.
func (r *ExamRepository) ListByRegisteredTaker(ctx context.Context, takerID uuid.UUID) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+examColumns+` FROM exams
		 WHERE code IN (SELECT code FROM registrations WHERE taker_id = $1)
		 ORDER BY created_at DESC`, takerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, *e)
	}
	return exams, rows.Err()
}

// ListScheduled returns all exams whose lifecycle is still in flight
// (posted or open). Used by the scheduler's startup reconciliation.
func (r *ExamRepository) ListScheduled(ctx context.Context) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+examColumns+` FROM exams
		 WHERE status = $1 OR status = $2
		 ORDER BY open_at`, model.ExamStatusPosted, model.ExamStatusOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, *e)
	}
	return exams, rows.Err()
}
