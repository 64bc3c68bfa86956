package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/examplify/examplify-backend/internal/model"
	"github.com/examplify/examplify-backend/internal/repository"
)

// ErrResultsUnavailable is returned when a taker asks for a result the
// creator has not released yet.
var ErrResultsUnavailable = errors.New("results are not available yet")

// ResultService serves graded attempt payloads with visibility rules:
// creators see everything for their own exams, takers see their own result
// only once the exam is closed or the creator released results early.
type ResultService struct {
	regRepo  *repository.RegistrationRepository
	examRepo *repository.ExamRepository
	log      zerolog.Logger
}

// NewResultService creates a new ResultService.
func NewResultService(regRepo *repository.RegistrationRepository, examRepo *repository.ExamRepository, log zerolog.Logger) *ResultService {
	return &ResultService{
		regRepo:  regRepo,
		examRepo: examRepo,
		log:      log.With().Str("component", "result_service").Logger(),
	}
}

// GetOwnResult retrieves a taker's own graded payload for one exam code.
func (s *ResultService) GetOwnResult(ctx context.Context, takerID uuid.UUID, code string) (*model.ResultPayload, error) {
	exam, err := s.examRepo.GetByCode(ctx, code)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}
	if exam.Status != model.ExamStatusClosed && !exam.ShowResults {
		return nil, ErrResultsUnavailable
	}

	reg, err := s.regRepo.GetByTakerAndCode(ctx, takerID, code)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}
	return decodeResult(reg)
}

// ListByExam retrieves every attempt summary for an exam, creator-only.
// Unsubmitted entries appear too, so the roster shows who never finished.
func (s *ResultService) ListByExam(ctx context.Context, examID, callerID uuid.UUID) ([]model.AttemptSummary, error) {
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
	if exam.Code == "" {
		return []model.AttemptSummary{}, nil
	}

	summaries, err := s.regRepo.ListByCode(ctx, exam.Code)
	if err != nil {
		return nil, err
	}
	if summaries == nil {
		summaries = []model.AttemptSummary{}
	}
	return summaries, nil
}

// GetTakerResult retrieves one taker's graded payload for an exam the caller
// created. Unlike GetOwnResult this ignores the release flag.
func (s *ResultService) GetTakerResult(ctx context.Context, examID, callerID, takerID uuid.UUID) (*model.ResultPayload, error) {
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

	reg, err := s.regRepo.GetByTakerAndCode(ctx, takerID, exam.Code)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}
	return decodeResult(reg)
}

func decodeResult(reg *model.Registration) (*model.ResultPayload, error) {
	if reg.Status != model.AttemptStatusSubmitted || len(reg.Result) == 0 {
		return nil, ErrResultsUnavailable
	}
	var payload model.ResultPayload
	if err := json.Unmarshal(reg.Result, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
