package service

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/examplify/examplify-backend/internal/model"
)

func makeQuestions(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{ID: uuid.New(), Points: 1}
	}
	return qs
}

func TestSampleQuestionsDrawCount(t *testing.T) {
	qs := makeQuestions(10)

	got := sampleQuestions(qs, 4)
	if len(got) != 4 {
		t.Fatalf("expected 4 drawn, got %d", len(got))
	}

	// No replacement: every drawn id must be distinct.
	seen := make(map[uuid.UUID]bool)
	for _, q := range got {
		if seen[q.ID] {
			t.Fatalf("question %s drawn twice", q.ID)
		}
		seen[q.ID] = true
	}
}

func TestSampleQuestionsShortfall(t *testing.T) {
	qs := makeQuestions(3)

	got := sampleQuestions(qs, 10)
	if len(got) != 3 {
		t.Fatalf("expected all 3 available questions, got %d", len(got))
	}
}

func TestSampleQuestionsEmpty(t *testing.T) {
	if got := sampleQuestions(nil, 5); got != nil {
		t.Fatalf("expected nil for empty source, got %d questions", len(got))
	}
	if got := sampleQuestions(makeQuestions(5), 0); got != nil {
		t.Fatalf("expected nil for zero draw, got %d questions", len(got))
	}
}

func TestSampleQuestionsDoesNotMutateSource(t *testing.T) {
	qs := makeQuestions(8)
	original := make([]uuid.UUID, len(qs))
	for i, q := range qs {
		original[i] = q.ID
	}

	sampleQuestions(qs, 5)

	for i, q := range qs {
		if q.ID != original[i] {
			t.Fatalf("source slice mutated at index %d", i)
		}
	}
}

// graphLookup adapts an adjacency map to the lookup signature.
func graphLookup(graph map[uuid.UUID][]uuid.UUID) func(uuid.UUID) ([]uuid.UUID, error) {
	return func(id uuid.UUID) ([]uuid.UUID, error) {
		return graph[id], nil
	}
}

func TestCheckAcyclicAllowsDAG(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	// a → b → c, a → c: a diamond, no cycle.
	graph := map[uuid.UUID][]uuid.UUID{
		b: {c},
	}

	if err := checkAcyclic(a, []uuid.UUID{b, c}, graphLookup(graph)); err != nil {
		t.Fatalf("expected DAG to pass, got %v", err)
	}
}

func TestCheckAcyclicDetectsCycle(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	// Proposed: a → b. Stored: b → c → a. Closing the loop must fail.
	graph := map[uuid.UUID][]uuid.UUID{
		b: {c},
		c: {a},
	}

	err := checkAcyclic(a, []uuid.UUID{b}, graphLookup(graph))
	if !errors.Is(err, ErrPoolCycle) {
		t.Fatalf("expected ErrPoolCycle, got %v", err)
	}
}

func TestCheckAcyclicDepthLimit(t *testing.T) {
	// A straight chain one level past the limit.
	ids := make([]uuid.UUID, maxRefDepth+2)
	for i := range ids {
		ids[i] = uuid.New()
	}
	graph := make(map[uuid.UUID][]uuid.UUID)
	for i := 1; i < len(ids)-1; i++ {
		graph[ids[i]] = []uuid.UUID{ids[i+1]}
	}

	err := checkAcyclic(ids[0], []uuid.UUID{ids[1]}, graphLookup(graph))
	if !errors.Is(err, ErrRefTooDeep) {
		t.Fatalf("expected ErrRefTooDeep, got %v", err)
	}
}

func TestCheckAcyclicSharedTargetVisitedOnce(t *testing.T) {
	a, shared := uuid.New(), uuid.New()
	visits := 0
	lookup := func(id uuid.UUID) ([]uuid.UUID, error) {
		if id == shared {
			visits++
		}
		return nil, nil
	}

	if err := checkAcyclic(a, []uuid.UUID{shared, shared}, lookup); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if visits != 1 {
		t.Fatalf("shared target visited %d times, want 1", visits)
	}
}

func TestBuildQuestionsDefaultsPoints(t *testing.T) {
	inputs := []model.QuestionInput{
		{Prompt: "one", Choices: []string{"a", "b"}, AnswerIndex: 0},
		{Prompt: "two", Choices: []string{"a", "b"}, AnswerIndex: 1, Points: 5},
	}

	qs := buildQuestions(inputs)
	if qs[0].Points != 1 {
		t.Errorf("unset points should default to 1, got %d", qs[0].Points)
	}
	if qs[1].Points != 5 {
		t.Errorf("explicit points should survive, got %d", qs[1].Points)
	}
	if qs[0].Position != 0 || qs[1].Position != 1 {
		t.Errorf("positions should follow declaration order, got %d, %d", qs[0].Position, qs[1].Position)
	}
}

func TestSumDirect(t *testing.T) {
	qs := []model.Question{{Points: 2}, {Points: 3}, {Points: 1}}

	items, points := sumDirect(qs)
	if items != 3 || points != 6 {
		t.Fatalf("got items=%d points=%d, want 3 and 6", items, points)
	}
}

func TestValidateRefTarget(t *testing.T) {
	owner := uuid.New()

	cases := []struct {
		name   string
		target model.QuestionPool
		want   error
	}{
		{"own reusable pool", model.QuestionPool{OwnerID: owner}, nil},
		{"another author's pool", model.QuestionPool{OwnerID: uuid.New()}, ErrNotPoolOwner},
		{"own exam-owned pool", model.QuestionPool{OwnerID: owner, ExamOwned: true}, ErrRefExamOwned},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := validateRefTarget(&tc.target, owner); !errors.Is(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}
