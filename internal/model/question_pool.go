package model

import (
	"time"

	"github.com/google/uuid"
)

// QuestionPool is an ordered set of direct questions plus weighted references
// to other pools. A pool is either exam-owned (created to back exactly one
// exam) or reusable (author-managed and listed independently).
type QuestionPool struct {
	ID                uuid.UUID `json:"id"`
	OwnerID           uuid.UUID `json:"owner_id"`
	Title             string    `json:"title,omitempty"`
	ExamOwned         bool      `json:"exam_owned"`
	TotalDirectItems  int       `json:"total_direct_items"`
	TotalDirectPoints int       `json:"total_direct_points"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// PoolRef is a weighted reference from one pool to another: draw DrawCount
// questions from the target pool's direct questions at resolution time.
type PoolRef struct {
	PoolID       uuid.UUID `json:"pool_id"`
	TargetPoolID uuid.UUID `json:"target_pool_id"`
	DrawCount    int       `json:"draw_count"`
	Position     int       `json:"position"`
}

// PoolRefInput is the author-supplied form of a pool reference.
type PoolRefInput struct {
	TargetPoolID uuid.UUID `json:"target_pool_id" binding:"required"`
	DrawCount    int       `json:"draw_count" binding:"required,min=1,max=500"`
}

// CreatePoolRequest creates a reusable pool.
type CreatePoolRequest struct {
	Title     string          `json:"title" binding:"required,min=1,max=255"`
	Questions []QuestionInput `json:"questions" binding:"dive"`
	PoolRefs  []PoolRefInput  `json:"pool_refs" binding:"omitempty,dive"`
}

// UpdatePoolRequest replaces a pool's questions and references.
type UpdatePoolRequest struct {
	Title     string          `json:"title" binding:"omitempty,min=1,max=255"`
	Questions []QuestionInput `json:"questions" binding:"dive"`
	PoolRefs  []PoolRefInput  `json:"pool_refs" binding:"omitempty,dive"`
}

// PoolDetail is a pool with its direct questions and references loaded.
type PoolDetail struct {
	QuestionPool
	Questions []Question `json:"questions"`
	PoolRefs  []PoolRef  `json:"pool_refs"`
}

// ResolvedQuestionSet is the concrete question list produced for one exam
// attempt: the pool's references sampled in declaration order, followed by
// the pool's own direct questions. Sampling is fresh on every resolution.
type ResolvedQuestionSet struct {
	Code       string          `json:"code"`
	ExamID     uuid.UUID       `json:"exam_id"`
	Questions  []TakerQuestion `json:"questions"`
	TotalItems int             `json:"total_items"`
	ResolvedAt time.Time       `json:"resolved_at"`
}
