package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/examplify/examplify-backend/internal/model"
)

// PoolRepository handles question pool, question and pool reference access.
type PoolRepository struct {
	pool *pgxpool.Pool
}

// NewPoolRepository creates a new PoolRepository.
func NewPoolRepository(pool *pgxpool.Pool) *PoolRepository {
	return &PoolRepository{pool: pool}
}

// Create inserts a pool with its direct questions and references in one
// transaction, so a half-written composition never becomes visible.
func (r *PoolRepository) Create(ctx context.Context, p *model.QuestionPool, questions []model.Question, refs []model.PoolRef) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO question_pools (owner_id, title, exam_owned, total_direct_items, total_direct_points)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		p.OwnerID, p.Title, p.ExamOwned, p.TotalDirectItems, p.TotalDirectPoints,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return err
	}

	if err := insertQuestions(ctx, tx, p.ID, questions); err != nil {
		return err
	}
	if err := insertRefs(ctx, tx, p.ID, refs); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ReplaceContents swaps a pool's questions and references for new ones and
// refreshes the direct totals, all in one transaction.
func (r *PoolRepository) ReplaceContents(ctx context.Context, poolID uuid.UUID, title string, questions []model.Question, refs []model.PoolRef, totalItems, totalPoints int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE pool_id = $1`, poolID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM pool_refs WHERE pool_id = $1`, poolID); err != nil {
		return err
	}
	if err := insertQuestions(ctx, tx, poolID, questions); err != nil {
		return err
	}
	if err := insertRefs(ctx, tx, poolID, refs); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE question_pools
		 SET title = $1, total_direct_items = $2, total_direct_points = $3, updated_at = NOW()
		 WHERE id = $4`,
		title, totalItems, totalPoints, poolID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func insertQuestions(ctx context.Context, tx pgx.Tx, poolID uuid.UUID, questions []model.Question) error {
	for i, q := range questions {
		choices, err := json.Marshal(q.Choices)
		if err != nil {
			return err
		}
		tags, err := json.Marshal(q.Tags)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO questions (pool_id, prompt, choices, answer_index, points, tags, position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			poolID, q.Prompt, choices, q.AnswerIndex, q.Points, tags, i); err != nil {
			return err
		}
	}
	return nil
}

func insertRefs(ctx context.Context, tx pgx.Tx, poolID uuid.UUID, refs []model.PoolRef) error {
	for i, ref := range refs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO pool_refs (pool_id, target_pool_id, draw_count, position)
			 VALUES ($1, $2, $3, $4)`,
			poolID, ref.TargetPoolID, ref.DrawCount, i); err != nil {
			return err
		}
	}
	return nil
}

// GetByID retrieves a pool header by its UUID.
func (r *PoolRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.QuestionPool, error) {
	p := &model.QuestionPool{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, owner_id, title, exam_owned, total_direct_items, total_direct_points, created_at, updated_at
		 FROM question_pools WHERE id = $1`, id,
	).Scan(&p.ID, &p.OwnerID, &p.Title, &p.ExamOwned, &p.TotalDirectItems, &p.TotalDirectPoints, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListReusableByOwner retrieves an author's reusable pools, newest first.
// Exam-owned pools are excluded; they live and die with their exam.
func (r *PoolRepository) ListReusableByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.QuestionPool, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, owner_id, title, exam_owned, total_direct_items, total_direct_points, created_at, updated_at
		 FROM question_pools
		 WHERE owner_id = $1 AND exam_owned = FALSE
		 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pools []model.QuestionPool
	for rows.Next() {
		var p model.QuestionPool
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Title, &p.ExamOwned, &p.TotalDirectItems, &p.TotalDirectPoints, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		pools = append(pools, p)
	}
	return pools, rows.Err()
}

// ListQuestions retrieves a pool's direct questions in declaration order.
func (r *PoolRepository) ListQuestions(ctx context.Context, poolID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, pool_id, prompt, choices, answer_index, points, tags, position
		 FROM questions WHERE pool_id = $1
		 ORDER BY position`, poolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectQuestions(rows)
}

// GetQuestionsByIDs retrieves questions by id, answer keys included.
// Used for grading a submitted attempt against its resolved set.
func (r *PoolRepository) GetQuestionsByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, pool_id, prompt, choices, answer_index, points, tags, position
		 FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectQuestions(rows)
}

func collectQuestions(rows pgx.Rows) ([]model.Question, error) {
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var choices, tags []byte
		if err := rows.Scan(&q.ID, &q.PoolID, &q.Prompt, &choices, &q.AnswerIndex, &q.Points, &tags, &q.Position); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(choices, &q.Choices); err != nil {
			return nil, err
		}
		if len(tags) > 0 {
			if err := json.Unmarshal(tags, &q.Tags); err != nil {
				return nil, err
			}
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ListRefs retrieves a pool's references in declaration order.
func (r *PoolRepository) ListRefs(ctx context.Context, poolID uuid.UUID) ([]model.PoolRef, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT pool_id, target_pool_id, draw_count, position
		 FROM pool_refs WHERE pool_id = $1
		 ORDER BY position`, poolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []model.PoolRef
	for rows.Next() {
		var ref model.PoolRef
		if err := rows.Scan(&ref.PoolID, &ref.TargetPoolID, &ref.DrawCount, &ref.Position); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// IsReferenced reports whether any other pool's references point at this one.
func (r *PoolRepository) IsReferenced(ctx context.Context, poolID uuid.UUID) (bool, error) {
	var referenced bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM pool_refs WHERE target_pool_id = $1)`, poolID,
	).Scan(&referenced)
	return referenced, err
}

// Delete removes a pool; its questions and outgoing references cascade.
// Incoming references from other pools make the delete fail at the FK, so
// callers should probe IsReferenced first for a clean error.
func (r *PoolRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM question_pools WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
