package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/examplify/examplify-backend/internal/config"
	"github.com/examplify/examplify-backend/internal/model"
)

// fakeExamStore records conditional transitions against an in-memory status map.
type fakeExamStore struct {
	mu       sync.Mutex
	statuses map[uuid.UUID]model.ExamStatus
	exams    []model.Exam
}

func newFakeStore() *fakeExamStore {
	return &fakeExamStore{statuses: make(map[uuid.UUID]model.ExamStatus)}
}

func (f *fakeExamStore) ListScheduled(ctx context.Context) ([]model.Exam, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exams, nil
}

func (f *fakeExamStore) TransitionStatus(ctx context.Context, id uuid.UUID, from, to model.ExamStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statuses[id] != from {
		return false, nil
	}
	f.statuses[id] = to
	return true, nil
}

func (f *fakeExamStore) status(id uuid.UUID) model.ExamStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[id]
}

func testConfig() *config.Config {
	return &config.Config{
		SchedulerMaxRetries: 1,
		SchedulerRetryBase:  time.Millisecond,
	}
}

func waitForStatus(t *testing.T, store *fakeExamStore, id uuid.UUID, want model.ExamStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if store.status(id) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("exam never reached %s, stuck at %s", want, store.status(id))
}

func TestSchedulePastDueFiresImmediately(t *testing.T) {
	store := newFakeStore()
	s := New(store, testConfig(), zerolog.Nop())
	defer s.Stop()

	id := uuid.New()
	store.statuses[id] = model.ExamStatusPosted

	// Both instants already passed: open then close should fire back to back.
	s.Schedule(id, time.Now().Add(-time.Hour), time.Now().Add(-time.Minute))

	waitForStatus(t, store, id, model.ExamStatusClosed)
}

func TestScheduleOpensThenCloses(t *testing.T) {
	store := newFakeStore()
	s := New(store, testConfig(), zerolog.Nop())
	defer s.Stop()

	id := uuid.New()
	store.statuses[id] = model.ExamStatusPosted

	s.Schedule(id, time.Now().Add(20*time.Millisecond), time.Now().Add(80*time.Millisecond))

	waitForStatus(t, store, id, model.ExamStatusOpen)
	waitForStatus(t, store, id, model.ExamStatusClosed)
}

func TestCloseNeverLeavesExamPosted(t *testing.T) {
	store := newFakeStore()
	s := New(store, testConfig(), zerolog.Nop())
	defer s.Stop()

	id := uuid.New()
	store.statuses[id] = model.ExamStatusPosted

	// Fire close directly against a still-posted exam: it must pass through
	// open on the way down, never close from posted or stay posted.
	s.fireClose(id)

	if got := store.status(id); got != model.ExamStatusClosed {
		t.Fatalf("status = %s, want closed", got)
	}
}

func TestCancelStopsPendingTriggers(t *testing.T) {
	store := newFakeStore()
	s := New(store, testConfig(), zerolog.Nop())
	defer s.Stop()

	id := uuid.New()
	store.statuses[id] = model.ExamStatusPosted

	s.Schedule(id, time.Now().Add(50*time.Millisecond), time.Now().Add(100*time.Millisecond))
	s.Cancel(id)

	time.Sleep(200 * time.Millisecond)
	if got := store.status(id); got != model.ExamStatusPosted {
		t.Fatalf("cancelled exam transitioned to %s", got)
	}
}

func TestReconcileAppliesMissedTransitions(t *testing.T) {
	store := newFakeStore()

	past := time.Now().Add(-2 * time.Hour)
	pastClose := time.Now().Add(-time.Hour)
	futureOpen := time.Now().Add(time.Hour)
	futureClose := time.Now().Add(2 * time.Hour)

	missed := uuid.New()
	upcoming := uuid.New()
	midWindow := uuid.New()
	midClose := time.Now().Add(time.Hour)

	store.statuses[missed] = model.ExamStatusPosted
	store.statuses[upcoming] = model.ExamStatusPosted
	store.statuses[midWindow] = model.ExamStatusPosted
	store.exams = []model.Exam{
		{ID: missed, Status: model.ExamStatusPosted, OpenAt: &past, CloseAt: &pastClose},
		{ID: upcoming, Status: model.ExamStatusPosted, OpenAt: &futureOpen, CloseAt: &futureClose},
		{ID: midWindow, Status: model.ExamStatusPosted, OpenAt: &past, CloseAt: &midClose},
	}

	s := New(store, testConfig(), zerolog.Nop())
	defer s.Stop()

	if err := s.ReconcileOnStartup(context.Background()); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	waitForStatus(t, store, missed, model.ExamStatusClosed)
	waitForStatus(t, store, midWindow, model.ExamStatusOpen)
	if got := store.status(upcoming); got != model.ExamStatusPosted {
		t.Fatalf("upcoming exam transitioned early to %s", got)
	}
}

func TestDeriveStatus(t *testing.T) {
	now := time.Now()
	openAt := now.Add(-time.Hour)
	closeAt := now.Add(time.Hour)

	cases := []struct {
		name string
		now  time.Time
		want model.ExamStatus
	}{
		{"before window", openAt.Add(-time.Minute), model.ExamStatusPosted},
		{"inside window", now, model.ExamStatusOpen},
		{"after window", closeAt.Add(time.Minute), model.ExamStatusClosed},
		{"at open instant", openAt, model.ExamStatusOpen},
		{"at close instant", closeAt, model.ExamStatusClosed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := deriveStatus(tc.now, openAt, closeAt); got != tc.want {
				t.Errorf("deriveStatus = %s, want %s", got, tc.want)
			}
		})
	}
}
