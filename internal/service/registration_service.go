package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/examplify/examplify-backend/internal/config"
	"github.com/examplify/examplify-backend/internal/model"
	"github.com/examplify/examplify-backend/internal/repository"
	ws "github.com/examplify/examplify-backend/internal/websocket"
)

// Domain errors.
var (
	ErrCodeNotFound         = errors.New("no exam with such code exists")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrAlreadyRegistered    = errors.New("already registered to this exam")
	ErrAlreadySubmitted     = errors.New("answers already submitted")
	ErrExamNotOpen          = errors.New("exam is not currently open")
)

// RegistrationService enforces the single-registration/single-attempt ledger
// and drives a taker's attempt from code redemption through submission.
type RegistrationService struct {
	regRepo  *repository.RegistrationRepository
	examRepo *repository.ExamRepository
	poolRepo *repository.PoolRepository
	pools    *PoolService
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewRegistrationService creates a new RegistrationService.
func NewRegistrationService(
	regRepo *repository.RegistrationRepository,
	examRepo *repository.ExamRepository,
	poolRepo *repository.PoolRepository,
	pools *PoolService,
	rdb *redis.Client,
	log zerolog.Logger,
) *RegistrationService {
	return &RegistrationService{
		regRepo:  regRepo,
		examRepo: examRepo,
		poolRepo: poolRepo,
		pools:    pools,
		rdb:      rdb,
		log:      log.With().Str("component", "registration_service").Logger(),
	}
}

// Register redeems an access code for a taker. The (taker, code) pair is
// guarded by a store-level unique constraint, so the duplicate check and the
// insert are one atomic statement; a violation becomes ErrAlreadyRegistered.
func (s *RegistrationService) Register(ctx context.Context, takerID uuid.UUID, code string) (*model.Registration, error) {
	if _, err := s.examRepo.GetByCode(ctx, code); err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}

	reg := &model.Registration{
		TakerID: takerID,
		Code:    code,
		Status:  model.AttemptStatusUnanswered,
	}
	if err := s.regRepo.Create(ctx, reg); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("create registration: %w", err)
	}

	s.publishMonitorEvent(ctx, code, ws.EventRegistered, takerID, nil)
	return reg, nil
}

// Start begins (or resumes) an attempt. The first call resolves the exam's
// question set, caches it per taker, and transitions the ledger entry to
// attempted; repeated calls return the cached set without touching the
// status, so start is idempotent and never regresses an attempt.
func (s *RegistrationService) Start(ctx context.Context, takerID uuid.UUID, code string) (*model.ResolvedQuestionSet, error) {
	reg, err := s.regRepo.GetByTakerAndCode(ctx, takerID, code)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}

	if reg.Status == model.AttemptStatusSubmitted {
		return nil, ErrAlreadySubmitted
	}

	exam, err := s.examRepo.GetByCode(ctx, code)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}
	if exam.Status != model.ExamStatusOpen {
		return nil, ErrExamNotOpen
	}

	cacheKey := config.CacheKey.TakerQuestionSetKey(takerID, code)

	if reg.Status != model.AttemptStatusUnanswered {
		if set := s.cachedQuestionSet(ctx, cacheKey); set != nil {
			return set, nil
		}
		// Cache evicted or process restarted mid-attempt: rebuild the exact
		// draw from the ids pinned to the ledger row at start.
		if len(reg.QuestionIDs) > 0 {
			set, err := s.rebuildQuestionSet(ctx, exam, reg.QuestionIDs)
			if err != nil {
				return nil, err
			}
			s.cacheQuestionSet(ctx, cacheKey, set, exam)
			return set, nil
		}
	}

	questions, err := s.pools.Resolve(ctx, exam.PoolID)
	if err != nil {
		return nil, fmt.Errorf("resolve question set: %w", err)
	}
	set := resolveStamp(code, exam.ID, questions)
	ids := questionSetIDs(set.Questions)

	if reg.Status == model.AttemptStatusUnanswered {
		if _, err := s.regRepo.MarkAttempted(ctx, takerID, code, ids); err != nil {
			return nil, fmt.Errorf("mark attempted: %w", err)
		}
		s.publishMonitorEvent(ctx, code, ws.EventStarted, takerID, nil)
	} else if err := s.regRepo.StoreQuestionIDs(ctx, takerID, code, ids); err != nil {
		return nil, fmt.Errorf("store question set: %w", err)
	}

	s.cacheQuestionSet(ctx, cacheKey, set, exam)
	return set, nil
}

// rebuildQuestionSet restores a previously pinned draw from the store,
// preserving the asked order.
func (s *RegistrationService) rebuildQuestionSet(ctx context.Context, exam *model.Exam, ids []uuid.UUID) (*model.ResolvedQuestionSet, error) {
	questions, err := s.poolRepo.GetQuestionsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("rebuild question set: %w", err)
	}
	return resolveStamp(exam.Code, exam.ID, orderForTaker(ids, questions)), nil
}

// orderForTaker reorders an unordered id fetch back into the pinned asked
// order. Ids whose question has since been deleted are skipped.
func orderForTaker(ids []uuid.UUID, questions []model.Question) []model.TakerQuestion {
	byID := make(map[uuid.UUID]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	out := make([]model.TakerQuestion, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			out = append(out, q.ForTaker(len(out)))
		}
	}
	return out
}

// questionSetIDs lists a resolved set's question ids in asked order.
func questionSetIDs(questions []model.TakerQuestion) []uuid.UUID {
	ids := make([]uuid.UUID, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	return ids
}

func (s *RegistrationService) cacheQuestionSet(ctx context.Context, key string, set *model.ResolvedQuestionSet, exam *model.Exam) {
	raw, err := json.Marshal(set)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, key, raw, questionSetTTL(exam)).Err(); err != nil {
		s.log.Warn().Err(err).Str("code", set.Code).Msg("Question set cache write failed")
	}
}

// questionSetTTL keeps the cached draw alive until well past the close
// instant, after which no start call can succeed anyway.
func questionSetTTL(exam *model.Exam) time.Duration {
	if exam.CloseAt == nil {
		return 24 * time.Hour
	}
	ttl := time.Until(*exam.CloseAt) + time.Duration(exam.TimeLimitMinutes)*time.Minute + time.Hour
	if ttl < time.Hour {
		ttl = time.Hour
	}
	return ttl
}

func (s *RegistrationService) cachedQuestionSet(ctx context.Context, key string) *model.ResolvedQuestionSet {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.log.Warn().Err(err).Msg("Question set cache read failed")
		}
		return nil
	}
	var set model.ResolvedQuestionSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil
	}
	return &set
}

// progressPayload is the queue message consumed by the progress worker.
type progressPayload struct {
	TakerID uuid.UUID      `json:"taker_id"`
	Code    string         `json:"code"`
	Answers map[string]int `json:"answers"`
}

// SaveProgress queues a partial answer map for asynchronous persistence.
// Submitted attempts reject further progress.
func (s *RegistrationService) SaveProgress(ctx context.Context, takerID uuid.UUID, code string, answers map[string]int) error {
	reg, err := s.regRepo.GetByTakerAndCode(ctx, takerID, code)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrRegistrationNotFound
		}
		return err
	}
	if reg.Status == model.AttemptStatusSubmitted {
		return ErrAlreadySubmitted
	}

	raw, err := json.Marshal(progressPayload{TakerID: takerID, Code: code, Answers: answers})
	if err != nil {
		return err
	}
	return s.rdb.RPush(ctx, config.WorkerKey.PersistProgressQueue, raw).Err()
}

// Submit finalizes an attempt exactly once. Grading runs only against the
// question ids pinned to the ledger row at start; answer keys outside that
// set never enter the score or the max. The conditional update keyed on
// status <> submitted makes a second submit fail with ErrAlreadySubmitted
// instead of overwriting the stored payload.
func (s *RegistrationService) Submit(ctx context.Context, takerID uuid.UUID, code string, req *model.SubmitExamRequest) (*model.ResultPayload, error) {
	reg, err := s.regRepo.GetByTakerAndCode(ctx, takerID, code)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}
	if reg.Status == model.AttemptStatusSubmitted {
		return nil, ErrAlreadySubmitted
	}

	exam, err := s.examRepo.GetByCode(ctx, code)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}

	var questions []model.Question
	if len(reg.QuestionIDs) > 0 {
		questions, err = s.poolRepo.GetQuestionsByIDs(ctx, reg.QuestionIDs)
		if err != nil {
			return nil, fmt.Errorf("load answer keys: %w", err)
		}
	}

	payload := gradeAttempt(questions, req.Answers, exam.PassingScore)
	payload.ElapsedSeconds = req.ElapsedSeconds
	payload.SubmittedAt = time.Now().UTC()

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	applied, err := s.regRepo.MarkSubmitted(ctx, takerID, code, payload.Score, raw, payload.SubmittedAt)
	if err != nil {
		return nil, fmt.Errorf("mark submitted: %w", err)
	}
	if !applied {
		// Lost the race against a concurrent submit for the same entry.
		return nil, ErrAlreadySubmitted
	}

	s.rdb.Del(ctx, config.CacheKey.TakerQuestionSetKey(takerID, code))
	s.publishMonitorEvent(ctx, code, ws.EventSubmitted, takerID, &payload.Score)

	s.log.Info().
		Str("code", code).
		Str("taker_id", takerID.String()).
		Float64("score", payload.Score).
		Msg("Attempt submitted")

	return payload, nil
}

// gradeAttempt scores an answer map against the asked questions. Answer keys
// that name a question outside the asked set are echoed in the payload but
// contribute nothing to score or max.
func gradeAttempt(questions []model.Question, answers map[string]int, passingScore int) *model.ResultPayload {
	var score float64
	maxPoints := 0
	correct := make(map[string]bool, len(questions))

	for _, q := range questions {
		maxPoints += q.Points
		id := q.ID.String()
		chosen, answered := answers[id]
		ok := answered && chosen == q.AnswerIndex
		correct[id] = ok
		if ok {
			score += float64(q.Points)
		}
	}

	return &model.ResultPayload{
		Score:     score,
		MaxPoints: maxPoints,
		Passed:    score >= float64(passingScore),
		Answers:   answers,
		Correct:   correct,
	}
}

func (s *RegistrationService) publishMonitorEvent(ctx context.Context, code string, event ws.Event, takerID uuid.UUID, score *float64) {
	raw, err := json.Marshal(ws.MonitorEvent{
		Event:   event,
		Code:    code,
		TakerID: takerID,
		Score:   score,
		At:      time.Now().UTC(),
	})
	if err != nil {
		return
	}
	// Best effort: a missed monitor event never fails the request.
	if err := s.rdb.Publish(ctx, config.CacheKey.ExamMonitorChannel(code), raw).Err(); err != nil {
		s.log.Debug().Err(err).Str("code", code).Msg("Monitor publish failed")
	}
}
