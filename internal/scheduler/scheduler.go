package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/examplify/examplify-backend/internal/config"
	"github.com/examplify/examplify-backend/internal/model"
)

// ExamStore is the slice of the exam repository the scheduler needs.
type ExamStore interface {
	ListScheduled(ctx context.Context) ([]model.Exam, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to model.ExamStatus) (bool, error)
}

type examTimers struct {
	open  *time.Timer
	close *time.Timer
}

// Scheduler arms in-process timers for exam open/close instants. The instants
// themselves are persisted on the exam row, so timers are cheap to rebuild:
// ReconcileOnStartup rearms (or fires immediately) everything that was pending
// when the previous process died.
type Scheduler struct {
	store ExamStore
	cfg   *config.Config
	log   zerolog.Logger

	mu     sync.Mutex
	timers map[uuid.UUID]*examTimers
}

// New creates a Scheduler. Call ReconcileOnStartup before serving traffic.
func New(store ExamStore, cfg *config.Config, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		store:  store,
		cfg:    cfg,
		log:    log.With().Str("component", "scheduler").Logger(),
		timers: make(map[uuid.UUID]*examTimers),
	}
}

// Schedule arms the open and close triggers for one exam, replacing any
// previously armed pair. Past-due instants fire immediately.
func (s *Scheduler) Schedule(examID uuid.UUID, openAt, closeAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked(examID)

	now := time.Now()
	t := &examTimers{}
	t.open = time.AfterFunc(max(openAt.Sub(now), 0), func() {
		s.fireOpen(examID)
	})
	t.close = time.AfterFunc(max(closeAt.Sub(now), 0), func() {
		s.fireClose(examID)
	})
	s.timers[examID] = t

	s.log.Debug().
		Str("exam_id", examID.String()).
		Time("open_at", openAt).
		Time("close_at", closeAt).
		Msg("Lifecycle triggers armed")
}

// Cancel disarms any pending triggers for one exam.
func (s *Scheduler) Cancel(examID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(examID)
}

func (s *Scheduler) cancelLocked(examID uuid.UUID) {
	if t, ok := s.timers[examID]; ok {
		t.open.Stop()
		t.close.Stop()
		delete(s.timers, examID)
	}
}

func (s *Scheduler) fireOpen(examID uuid.UUID) {
	s.transitionWithRetry(examID, model.ExamStatusPosted, model.ExamStatusOpen)
}

// fireClose first lifts a still-posted exam to open so the close below can
// apply: the close trigger never fires with the exam left behind in posted,
// which keeps close from effectively preceding open.
func (s *Scheduler) fireClose(examID uuid.UUID) {
	ctx := context.Background()
	if _, err := s.store.TransitionStatus(ctx, examID, model.ExamStatusPosted, model.ExamStatusOpen); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Pre-close open transition failed")
	}
	s.transitionWithRetry(examID, model.ExamStatusOpen, model.ExamStatusClosed)

	s.mu.Lock()
	s.cancelLocked(examID)
	s.mu.Unlock()
}

// transitionWithRetry applies a conditional status update with a bounded
// retry and doubling backoff. A no-op outcome (the row is gone or already
// past the expected status) is not an error. Exhausting the retries is an
// operator-level problem: the exam is stuck and the log says so.
func (s *Scheduler) transitionWithRetry(examID uuid.UUID, from, to model.ExamStatus) {
	ctx := context.Background()
	backoff := s.cfg.SchedulerRetryBase

	var lastErr error
	for attempt := 0; attempt <= s.cfg.SchedulerMaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}

		applied, err := s.store.TransitionStatus(ctx, examID, from, to)
		if err != nil {
			lastErr = err
			s.log.Warn().Err(err).
				Str("exam_id", examID.String()).
				Str("to", string(to)).
				Int("attempt", attempt+1).
				Msg("Lifecycle transition failed, retrying")
			continue
		}
		if applied {
			s.log.Info().
				Str("exam_id", examID.String()).
				Str("from", string(from)).
				Str("to", string(to)).
				Msg("Exam transitioned")
		}
		return
	}

	s.log.Error().Err(lastErr).
		Str("exam_id", examID.String()).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("Fatal lifecycle inconsistency: transition retries exhausted, exam stuck")
}

// ReconcileOnStartup walks every published exam, applies any transition whose
// instant passed while the process was down and rearms timers for the rest.
func (s *Scheduler) ReconcileOnStartup(ctx context.Context) error {
	exams, err := s.store.ListScheduled(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, exam := range exams {
		if exam.OpenAt == nil || exam.CloseAt == nil {
			s.log.Warn().Str("exam_id", exam.ID.String()).Msg("Published exam missing schedule, skipping")
			continue
		}

		want := deriveStatus(now, *exam.OpenAt, *exam.CloseAt)
		switch {
		case want == model.ExamStatusClosed:
			s.fireClose(exam.ID)
		case want == model.ExamStatusOpen && exam.Status == model.ExamStatusPosted:
			s.fireOpen(exam.ID)
			s.Schedule(exam.ID, *exam.OpenAt, *exam.CloseAt)
		default:
			s.Schedule(exam.ID, *exam.OpenAt, *exam.CloseAt)
		}
	}

	s.log.Info().Int("exams", len(exams)).Msg("Lifecycle reconciliation complete")
	return nil
}

// deriveStatus maps a wall-clock instant onto the status a published exam
// should hold.
func deriveStatus(now, openAt, closeAt time.Time) model.ExamStatus {
	switch {
	case now.Before(openAt):
		return model.ExamStatusPosted
	case now.Before(closeAt):
		return model.ExamStatusOpen
	default:
		return model.ExamStatusClosed
	}
}

// Stop disarms every pending trigger. Used during graceful shutdown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.timers {
		s.cancelLocked(id)
	}
}
