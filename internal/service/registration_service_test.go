package service

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/examplify/examplify-backend/internal/model"
)

func TestGradeAttemptScoring(t *testing.T) {
	q1 := model.Question{ID: uuid.New(), AnswerIndex: 1, Points: 2}
	q2 := model.Question{ID: uuid.New(), AnswerIndex: 0, Points: 3}
	q3 := model.Question{ID: uuid.New(), AnswerIndex: 2, Points: 1}

	answers := map[string]int{
		q1.ID.String(): 1, // correct
		q2.ID.String(): 2, // wrong
		// q3 unanswered
	}

	payload := gradeAttempt([]model.Question{q1, q2, q3}, answers, 2)

	if payload.Score != 2 {
		t.Errorf("score = %v, want 2", payload.Score)
	}
	if payload.MaxPoints != 6 {
		t.Errorf("max points = %d, want 6", payload.MaxPoints)
	}
	if !payload.Passed {
		t.Errorf("score 2 with passing score 2 should pass")
	}
	if !payload.Correct[q1.ID.String()] {
		t.Errorf("q1 should be marked correct")
	}
	if payload.Correct[q2.ID.String()] {
		t.Errorf("q2 should be marked wrong")
	}
	if payload.Correct[q3.ID.String()] {
		t.Errorf("unanswered q3 should be marked wrong")
	}
}

func TestGradeAttemptEmptyAnswers(t *testing.T) {
	qs := []model.Question{
		{ID: uuid.New(), AnswerIndex: 0, Points: 4},
	}

	payload := gradeAttempt(qs, map[string]int{}, 1)

	if payload.Score != 0 {
		t.Errorf("score = %v, want 0", payload.Score)
	}
	if payload.Passed {
		t.Errorf("zero score with passing score 1 should not pass")
	}
}

func TestGradeAttemptZeroPassingScore(t *testing.T) {
	payload := gradeAttempt(nil, map[string]int{}, 0)
	if !payload.Passed {
		t.Errorf("passing score 0 should pass any attempt")
	}
}

func TestQuestionSetTTL(t *testing.T) {
	closeAt := time.Now().Add(2 * time.Hour)
	exam := &model.Exam{CloseAt: &closeAt, TimeLimitMinutes: 30}

	ttl := questionSetTTL(exam)
	if ttl < 3*time.Hour || ttl > 4*time.Hour {
		t.Errorf("ttl = %v, want close window + limit + an hour of slack", ttl)
	}
}

func TestQuestionSetTTLPastClose(t *testing.T) {
	closeAt := time.Now().Add(-48 * time.Hour)
	exam := &model.Exam{CloseAt: &closeAt}

	if ttl := questionSetTTL(exam); ttl != time.Hour {
		t.Errorf("ttl for a long-closed exam = %v, want the 1h floor", ttl)
	}
}

func TestQuestionSetTTLNoSchedule(t *testing.T) {
	if ttl := questionSetTTL(&model.Exam{}); ttl != 24*time.Hour {
		t.Errorf("ttl without a close instant = %v, want 24h", ttl)
	}
}

func TestGradeAttemptScopedToAskedQuestions(t *testing.T) {
	asked := model.Question{ID: uuid.New(), AnswerIndex: 1, Points: 2}

	// A taker may put any ids it likes in the answer map; only the asked
	// question enters the score and the max.
	answers := map[string]int{
		asked.ID.String(): 1,
		uuid.NewString():  0,
		uuid.NewString():  3,
	}

	payload := gradeAttempt([]model.Question{asked}, answers, 0)

	if payload.Score != 2 {
		t.Errorf("score = %v, want 2", payload.Score)
	}
	if payload.MaxPoints != 2 {
		t.Errorf("max points = %d, want 2", payload.MaxPoints)
	}
	if len(payload.Correct) != 1 {
		t.Errorf("correct map should cover only asked questions, got %d entries", len(payload.Correct))
	}
}

func TestQuestionSetIDsPreservesOrder(t *testing.T) {
	set := []model.TakerQuestion{
		{ID: uuid.New(), Position: 0},
		{ID: uuid.New(), Position: 1},
		{ID: uuid.New(), Position: 2},
	}

	ids := questionSetIDs(set)
	if len(ids) != 3 {
		t.Fatalf("got %d ids, want 3", len(ids))
	}
	for i, q := range set {
		if ids[i] != q.ID {
			t.Errorf("ids[%d] = %s, want %s", i, ids[i], q.ID)
		}
	}
}

func TestOrderForTakerRestoresPinnedOrder(t *testing.T) {
	q1 := model.Question{ID: uuid.New(), Prompt: "a"}
	q2 := model.Question{ID: uuid.New(), Prompt: "b"}
	q3 := model.Question{ID: uuid.New(), Prompt: "c"}

	pinned := []uuid.UUID{q3.ID, q1.ID, q2.ID}
	// The store returns rows in arbitrary order.
	fetched := []model.Question{q1, q2, q3}

	out := orderForTaker(pinned, fetched)
	if len(out) != 3 {
		t.Fatalf("got %d questions, want 3", len(out))
	}
	for i, id := range pinned {
		if out[i].ID != id {
			t.Errorf("out[%d].ID = %s, want %s", i, out[i].ID, id)
		}
		if out[i].Position != i {
			t.Errorf("out[%d].Position = %d, want %d", i, out[i].Position, i)
		}
	}
}

func TestOrderForTakerSkipsDeletedQuestions(t *testing.T) {
	q1 := model.Question{ID: uuid.New()}
	deleted := uuid.New()

	out := orderForTaker([]uuid.UUID{deleted, q1.ID}, []model.Question{q1})
	if len(out) != 1 {
		t.Fatalf("got %d questions, want 1", len(out))
	}
	if out[0].ID != q1.ID || out[0].Position != 0 {
		t.Errorf("surviving question should lead at position 0, got %s at %d", out[0].ID, out[0].Position)
	}
}
