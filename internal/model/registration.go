package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates a taker's progress against one exam code.
// Transitions are monotonic: unanswered → attempted → submitted.
type AttemptStatus string

const (
	AttemptStatusUnanswered AttemptStatus = "unanswered"
	AttemptStatusAttempted  AttemptStatus = "attempted"
	AttemptStatusSubmitted  AttemptStatus = "submitted"
)

// Registration is one taker's relationship to one exam by access code.
// At most one row exists per (taker, code); submitted is terminal and the
// stored result payload is immutable thereafter.
//
// QuestionIDs is the resolved draw persisted at start, in asked order. It is
// the authoritative grading scope for the attempt; answer keys outside it are
// never scored.
type Registration struct {
	ID           uuid.UUID       `json:"id"`
	TakerID      uuid.UUID       `json:"taker_id"`
	Code         string          `json:"code"`
	Status       AttemptStatus   `json:"status"`
	RegisteredAt time.Time       `json:"registered_at"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	SubmittedAt  *time.Time      `json:"submitted_at,omitempty"`
	Score        *float64        `json:"score,omitempty"`
	QuestionIDs  []uuid.UUID     `json:"-"`
	DraftAnswers json.RawMessage `json:"draft_answers,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
}

// RegisterRequest redeems an access code.
type RegisterRequest struct {
	Code string `json:"code" binding:"required,min=4,max=20"`
}

// SaveProgressRequest autosaves a taker's in-flight answers.
// Keys are question ids, values are chosen choice indexes.
type SaveProgressRequest struct {
	Answers map[string]int `json:"answers" binding:"required"`
}

// SubmitExamRequest finalizes an attempt.
type SubmitExamRequest struct {
	Answers        map[string]int `json:"answers" binding:"required"`
	ElapsedSeconds int            `json:"elapsed_seconds" binding:"min=0"`
}

// ResultPayload is the opaque results document stored on submission.
type ResultPayload struct {
	Score          float64        `json:"score"`
	MaxPoints      int            `json:"max_points"`
	Passed         bool           `json:"passed"`
	Answers        map[string]int `json:"answers"`
	Correct        map[string]bool `json:"correct"`
	ElapsedSeconds int            `json:"elapsed_seconds"`
	SubmittedAt    time.Time      `json:"submitted_at"`
}

// AttemptSummary is one row of a creator's per-exam results listing.
type AttemptSummary struct {
	TakerID      uuid.UUID     `json:"taker_id"`
	TakerName    string        `json:"taker_name"`
	Status       AttemptStatus `json:"status"`
	Score        *float64      `json:"score,omitempty"`
	RegisteredAt time.Time     `json:"registered_at"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	SubmittedAt  *time.Time    `json:"submitted_at,omitempty"`
}
