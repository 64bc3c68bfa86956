package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the lifecycle states of an exam.
// Transitions are one-directional: unposted → posted → open → closed.
type ExamStatus string

const (
	ExamStatusUnposted ExamStatus = "unposted"
	ExamStatusPosted   ExamStatus = "posted"
	ExamStatusOpen     ExamStatus = "open"
	ExamStatusClosed   ExamStatus = "closed"
)

// Available reports whether the exam is externally visible to takers.
func (s ExamStatus) Available() bool {
	return s == ExamStatusPosted || s == ExamStatusOpen
}

// Exam represents one assessment instance.
//
// TotalItems and TotalPoints are computed from the direct questions only;
// points contributed by referenced pools are excluded because the drawn
// subset is only resolved per attempt. HasVariablePoints flags that case.
type Exam struct {
	ID                uuid.UUID  `json:"id"`
	CreatorID         uuid.UUID  `json:"creator_id"`
	Title             string     `json:"title"`
	Subject           string     `json:"subject,omitempty"`
	OpenAt            *time.Time `json:"open_at,omitempty"`
	CloseAt           *time.Time `json:"close_at,omitempty"`
	TimeLimitMinutes  int        `json:"time_limit_minutes"`
	Directions        string     `json:"directions,omitempty"`
	TotalItems        int        `json:"total_items"`
	TotalPoints       int        `json:"total_points"`
	PassingScore      int        `json:"passing_score"`
	ShowResults       bool       `json:"show_results"`
	Code              string     `json:"code,omitempty"`
	PoolID            uuid.UUID  `json:"pool_id"`
	Status            ExamStatus `json:"status"`
	HasVariablePoints bool       `json:"has_variable_points"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ExamInput is the metadata portion of a create/update request.
type ExamInput struct {
	Title            string     `json:"title" binding:"required,min=3,max=255"`
	Subject          string     `json:"subject" binding:"omitempty,max=100"`
	OpenAt           *time.Time `json:"open_at" binding:"omitempty"`
	CloseAt          *time.Time `json:"close_at" binding:"omitempty,gtfield=OpenAt"`
	TimeLimitMinutes int        `json:"time_limit_minutes" binding:"omitempty,min=1,max=480"`
	Directions       string     `json:"directions" binding:"omitempty,max=5000"`
	PassingScore     int        `json:"passing_score" binding:"omitempty,min=0"`
	ShowResults      bool       `json:"show_results"`
}

// CreateExamRequest creates an exam together with its backing pool.
// Publish=true mints an access code and arms the lifecycle scheduler.
type CreateExamRequest struct {
	Exam      ExamInput       `json:"exam" binding:"required"`
	Questions []QuestionInput `json:"questions" binding:"dive"`
	PoolRefs  []PoolRefInput  `json:"pool_refs" binding:"omitempty,dive"`
	Publish   bool            `json:"publish"`
}

// UpdateExamRequest replaces an exam's metadata and composition.
type UpdateExamRequest struct {
	Exam      ExamInput       `json:"exam" binding:"required"`
	Questions []QuestionInput `json:"questions" binding:"dive"`
	PoolRefs  []PoolRefInput  `json:"pool_refs" binding:"omitempty,dive"`
	Publish   bool            `json:"publish"`
}

// ExamDetail is an exam with its backing pool loaded (creator view).
type ExamDetail struct {
	Exam Exam       `json:"exam"`
	Pool PoolDetail `json:"pool"`
}
