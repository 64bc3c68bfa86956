package model

import (
	"github.com/google/uuid"
)

// Question is one assessable item embedded in a question pool.
// Once a pool backs a live exam its questions are treated as immutable.
type Question struct {
	ID          uuid.UUID `json:"id"`
	PoolID      uuid.UUID `json:"pool_id"`
	Prompt      string    `json:"prompt"`
	Choices     []string  `json:"choices"`
	AnswerIndex int       `json:"answer_index"`
	Points      int       `json:"points"`
	Tags        []string  `json:"tags,omitempty"`
	Position    int       `json:"position"`
}

// QuestionInput is the author-supplied form of a question.
type QuestionInput struct {
	Prompt      string   `json:"prompt" binding:"required,min=1,max=2000"`
	Choices     []string `json:"choices" binding:"required,min=2,max=6,dive,required"`
	AnswerIndex int      `json:"answer_index" binding:"min=0"`
	Points      int      `json:"points" binding:"omitempty,min=1,max=100"`
	Tags        []string `json:"tags" binding:"omitempty,dive,max=50"`
}

// TakerQuestion is a question as handed to a taker: no correct answer.
type TakerQuestion struct {
	ID       uuid.UUID `json:"id"`
	Prompt   string    `json:"prompt"`
	Choices  []string  `json:"choices"`
	Points   int       `json:"points"`
	Position int       `json:"position"`
}

// ForTaker strips the correct answer and classification tags.
func (q Question) ForTaker(position int) TakerQuestion {
	return TakerQuestion{
		ID:       q.ID,
		Prompt:   q.Prompt,
		Choices:  q.Choices,
		Points:   q.Points,
		Position: position,
	}
}
