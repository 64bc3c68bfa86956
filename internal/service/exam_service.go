package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/examplify/examplify-backend/internal/codegen"
	"github.com/examplify/examplify-backend/internal/config"
	"github.com/examplify/examplify-backend/internal/model"
	"github.com/examplify/examplify-backend/internal/repository"
)

// Domain errors.
var (
	ErrExamNotFound       = errors.New("exam not found")
	ErrNotExamCreator     = errors.New("not the creator of this exam")
	ErrExamClosed         = errors.New("exam is closed and can no longer be modified")
	ErrScheduleRequired   = errors.New("publishing requires open and close instants")
	ErrCodeSpaceExhausted = errors.New("exam code retry budget exhausted")
	ErrExamStateChanged   = errors.New("exam status changed concurrently")
)

// LifecycleScheduler arms and disarms the open/close triggers for an exam.
type LifecycleScheduler interface {
	Schedule(examID uuid.UUID, openAt, closeAt time.Time)
	Cancel(examID uuid.UUID)
}

// ExamService handles exam CRUD, publishing and composition bookkeeping.
type ExamService struct {
	examRepo *repository.ExamRepository
	pools    *PoolService
	gen      *codegen.Generator
	sched    LifecycleScheduler
	cfg      *config.Config
	log      zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	examRepo *repository.ExamRepository,
	pools *PoolService,
	gen *codegen.Generator,
	sched LifecycleScheduler,
	cfg *config.Config,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		examRepo: examRepo,
		pools:    pools,
		gen:      gen,
		sched:    sched,
		cfg:      cfg,
		log:      log.With().Str("component", "exam_service").Logger(),
	}
}

// Create persists a new exam together with its exam-owned backing pool.
// With publish=true it mints an access code, posts the exam and arms the
// lifecycle scheduler; otherwise the exam stays unposted with no code.
func (s *ExamService) Create(ctx context.Context, creatorID uuid.UUID, req *model.CreateExamRequest) (*model.Exam, error) {
	if req.Publish && (req.Exam.OpenAt == nil || req.Exam.CloseAt == nil) {
		return nil, ErrScheduleRequired
	}

	pool, err := s.pools.CreateExamOwned(ctx, creatorID, req.Questions, req.PoolRefs)
	if err != nil {
		return nil, err
	}

	exam := &model.Exam{
		CreatorID:         creatorID,
		PoolID:            pool.ID,
		Status:            model.ExamStatusUnposted,
		TotalItems:        pool.TotalDirectItems,
		TotalPoints:       pool.TotalDirectPoints,
		HasVariablePoints: len(req.PoolRefs) > 0,
	}
	applyExamInput(exam, &req.Exam)

	if req.Publish {
		exam.Status = model.ExamStatusPosted
		err = s.createWithCode(ctx, exam)
	} else {
		err = s.examRepo.Create(ctx, exam)
	}
	if err != nil {
		// The pool was created first; without the exam row it is an orphan.
		// Compensate with a delete and log if even that fails.
		if delErr := s.pools.DeleteOwned(ctx, pool.ID); delErr != nil {
			s.log.Error().Err(delErr).
				Str("pool_id", pool.ID.String()).
				Msg("Compensating pool delete failed, orphan pool left behind")
		}
		return nil, err
	}

	if req.Publish {
		s.sched.Schedule(exam.ID, *exam.OpenAt, *exam.CloseAt)
		s.log.Info().
			Str("exam_id", exam.ID.String()).
			Str("code", exam.Code).
			Time("open_at", *exam.OpenAt).
			Time("close_at", *exam.CloseAt).
			Msg("Exam published")
	}

	return exam, nil
}

// createWithCode inserts the exam with a freshly generated access code,
// retrying on a code collision. Uniqueness comes from the partial unique
// index on exams.code, not from a separate existence probe: two authors
// drawing the same candidate concurrently cannot both win the insert.
func (s *ExamService) createWithCode(ctx context.Context, exam *model.Exam) error {
	for attempt := 0; attempt < s.cfg.CodeMaxAttempts; attempt++ {
		exam.Code = s.gen.Generate()
		err := s.examRepo.Create(ctx, exam)
		if err == nil {
			return nil
		}
		if !repository.IsUniqueViolation(err) {
			return fmt.Errorf("create exam: %w", err)
		}
		s.log.Warn().
			Str("code", exam.Code).
			Int("attempt", attempt+1).
			Msg("Exam code collision, regenerating")
	}
	return ErrCodeSpaceExhausted
}

func applyExamInput(exam *model.Exam, in *model.ExamInput) {
	exam.Title = in.Title
	exam.Subject = in.Subject
	exam.OpenAt = in.OpenAt
	exam.CloseAt = in.CloseAt
	exam.TimeLimitMinutes = in.TimeLimitMinutes
	exam.Directions = in.Directions
	exam.PassingScore = in.PassingScore
	exam.ShowResults = in.ShowResults
}

// Update replaces an exam's metadata and composition, creator-only. Closed
// exams reject everything except the visibility flag (SetResultVisibility).
func (s *ExamService) Update(ctx context.Context, examID, callerID uuid.UUID, req *model.UpdateExamRequest) (*model.Exam, error) {
	exam, err := s.getOwned(ctx, examID, callerID)
	if err != nil {
		return nil, err
	}
	if exam.Status == model.ExamStatusClosed {
		return nil, ErrExamClosed
	}
	if req.Publish && (req.Exam.OpenAt == nil || req.Exam.CloseAt == nil) {
		return nil, ErrScheduleRequired
	}
	prior := exam.Status

	if err := s.pools.ReplaceContents(ctx, exam.PoolID, exam.CreatorID, req.Questions, req.PoolRefs); err != nil {
		return nil, err
	}

	applyExamInput(exam, &req.Exam)
	questions := buildQuestions(req.Questions)
	exam.TotalItems, exam.TotalPoints = sumDirect(questions)
	exam.HasVariablePoints = len(req.PoolRefs) > 0

	if req.Publish {
		// An exam that already carries a code keeps it across republishes so
		// existing registrations stay valid. Only a first publish mints one.
		if exam.Code == "" {
			if err := s.updateWithCode(ctx, exam, prior); err != nil {
				return nil, err
			}
		} else {
			if exam.Status == model.ExamStatusUnposted {
				exam.Status = model.ExamStatusPosted
			}
			if err := s.applyUpdate(ctx, exam, prior); err != nil {
				return nil, err
			}
		}
		s.sched.Schedule(exam.ID, *exam.OpenAt, *exam.CloseAt)
	} else {
		exam.Status = model.ExamStatusUnposted
		exam.Code = ""
		if err := s.applyUpdate(ctx, exam, prior); err != nil {
			return nil, err
		}
		s.sched.Cancel(exam.ID)
	}

	return exam, nil
}

// applyUpdate writes the exam keyed on the status read at load. A lifecycle
// trigger firing in between means the caller mutated a stale snapshot; the
// caller retries rather than regressing open back to posted.
func (s *ExamService) applyUpdate(ctx context.Context, exam *model.Exam, expected model.ExamStatus) error {
	applied, err := s.examRepo.Update(ctx, exam, expected)
	if err != nil {
		return fmt.Errorf("update exam: %w", err)
	}
	if !applied {
		return ErrExamStateChanged
	}
	return nil
}

func (s *ExamService) updateWithCode(ctx context.Context, exam *model.Exam, expected model.ExamStatus) error {
	exam.Status = model.ExamStatusPosted
	for attempt := 0; attempt < s.cfg.CodeMaxAttempts; attempt++ {
		exam.Code = s.gen.Generate()
		applied, err := s.examRepo.Update(ctx, exam, expected)
		if err == nil {
			if !applied {
				return ErrExamStateChanged
			}
			return nil
		}
		if !repository.IsUniqueViolation(err) {
			return fmt.Errorf("update exam: %w", err)
		}
	}
	return ErrCodeSpaceExhausted
}

// Delete removes an exam, cancels its pending lifecycle triggers and cascades
// to the exam-owned backing pool.
func (s *ExamService) Delete(ctx context.Context, examID, callerID uuid.UUID) error {
	exam, err := s.getOwned(ctx, examID, callerID)
	if err != nil {
		return err
	}

	// A trigger firing after this point is harmless: its conditional update
	// finds no row to match.
	s.sched.Cancel(exam.ID)

	if _, err := s.examRepo.Delete(ctx, exam.ID); err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	if err := s.pools.DeleteOwned(ctx, exam.PoolID); err != nil {
		s.log.Error().Err(err).
			Str("exam_id", exam.ID.String()).
			Str("pool_id", exam.PoolID.String()).
			Msg("Cascading pool delete failed")
		return fmt.Errorf("delete exam pool: %w", err)
	}

	s.log.Info().Str("exam_id", exam.ID.String()).Msg("Exam deleted")
	return nil
}

// GetDetail retrieves an exam and its backing pool, creator-only.
func (s *ExamService) GetDetail(ctx context.Context, examID, callerID uuid.UUID) (*model.ExamDetail, error) {
	exam, err := s.getOwned(ctx, examID, callerID)
	if err != nil {
		return nil, err
	}
	pool, err := s.pools.Detail(ctx, exam.PoolID)
	if err != nil {
		return nil, err
	}
	exam.HasVariablePoints = len(pool.PoolRefs) > 0
	return &model.ExamDetail{Exam: *exam, Pool: *pool}, nil
}

// GetByAccessCode retrieves a published exam by its access code.
func (s *ExamService) GetByAccessCode(ctx context.Context, code string) (*model.Exam, error) {
	exam, err := s.examRepo.GetByCode(ctx, code)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrExamNotFound
		}
		return nil, err
	}
	return exam, nil
}

// ListByCreator retrieves all exams an author created.
func (s *ExamService) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]model.Exam, error) {
	exams, err := s.examRepo.ListByCreator(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if exams == nil {
		exams = []model.Exam{}
	}
	return exams, nil
}

// ListByRegisteredTaker retrieves the exams a taker registered for.
func (s *ExamService) ListByRegisteredTaker(ctx context.Context, takerID uuid.UUID) ([]model.Exam, error) {
	exams, err := s.examRepo.ListByRegisteredTaker(ctx, takerID)
	if err != nil {
		return nil, err
	}
	if exams == nil {
		exams = []model.Exam{}
	}
	// Codes are for registration, takers already hold them; totals and
	// windows are what the lobby shows.
	return exams, nil
}

// SetResultVisibility flips the one flag that stays mutable after close.
func (s *ExamService) SetResultVisibility(ctx context.Context, examID, callerID uuid.UUID, show bool) error {
	exam, err := s.getOwned(ctx, examID, callerID)
	if err != nil {
		return err
	}
	return s.examRepo.UpdateShowResults(ctx, exam.ID, show)
}

func (s *ExamService) getOwned(ctx context.Context, examID, callerID uuid.UUID) (*model.Exam, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrExamNotFound
		}
		return nil, err
	}
	if exam.CreatorID != callerID {
		return nil, ErrNotExamCreator
	}
	return exam, nil
}
