package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/examplify/examplify-backend/internal/model"
	"github.com/examplify/examplify-backend/internal/repository"
)

// Domain errors.
var (
	ErrPoolNotFound   = errors.New("question pool not found")
	ErrNotPoolOwner   = errors.New("not the owner of this question pool")
	ErrPoolCycle      = errors.New("pool references would form a cycle")
	ErrRefTooDeep     = errors.New("pool reference chain exceeds the depth limit")
	ErrPoolReferenced = errors.New("question pool is still referenced")
	ErrDuplicateRef   = errors.New("duplicate pool reference")
	ErrRefExamOwned   = errors.New("exam-owned pools cannot be reference targets")
)

// maxRefDepth caps how many levels of pool-to-pool references a composition
// may chain through. Anything deeper is treated as a malformed composition.
const maxRefDepth = 16

// PoolService handles question pool composition and per-attempt resolution.
type PoolService struct {
	poolRepo *repository.PoolRepository
	log      zerolog.Logger
}

// NewPoolService creates a new PoolService.
func NewPoolService(poolRepo *repository.PoolRepository, log zerolog.Logger) *PoolService {
	return &PoolService{
		poolRepo: poolRepo,
		log:      log.With().Str("component", "pool_service").Logger(),
	}
}

// buildQuestions converts author input into persistable questions,
// applying the default point value.
func buildQuestions(inputs []model.QuestionInput) []model.Question {
	questions := make([]model.Question, len(inputs))
	for i, in := range inputs {
		points := in.Points
		if points == 0 {
			points = 1
		}
		questions[i] = model.Question{
			Prompt:      in.Prompt,
			Choices:     in.Choices,
			AnswerIndex: in.AnswerIndex,
			Points:      points,
			Tags:        in.Tags,
			Position:    i,
		}
	}
	return questions
}

func buildRefs(inputs []model.PoolRefInput) []model.PoolRef {
	refs := make([]model.PoolRef, len(inputs))
	for i, in := range inputs {
		refs[i] = model.PoolRef{
			TargetPoolID: in.TargetPoolID,
			DrawCount:    in.DrawCount,
			Position:     i,
		}
	}
	return refs
}

// sumDirect folds item and point totals over a pool's direct questions.
func sumDirect(questions []model.Question) (items, points int) {
	for _, q := range questions {
		items++
		points += q.Points
	}
	return items, points
}

// CreateReusable persists an author-managed pool.
func (s *PoolService) CreateReusable(ctx context.Context, ownerID uuid.UUID, req *model.CreatePoolRequest) (*model.QuestionPool, error) {
	return s.create(ctx, ownerID, req.Title, false, req.Questions, req.PoolRefs)
}

// CreateExamOwned persists a pool that backs exactly one exam. It is created
// before the exam row; the caller compensates with a delete if the exam
// cannot be persisted afterwards.
func (s *PoolService) CreateExamOwned(ctx context.Context, ownerID uuid.UUID, questions []model.QuestionInput, refs []model.PoolRefInput) (*model.QuestionPool, error) {
	return s.create(ctx, ownerID, "", true, questions, refs)
}

func (s *PoolService) create(ctx context.Context, ownerID uuid.UUID, title string, examOwned bool, questionInputs []model.QuestionInput, refInputs []model.PoolRefInput) (*model.QuestionPool, error) {
	if err := s.validateRefs(ctx, ownerID, uuid.Nil, refInputs); err != nil {
		return nil, err
	}

	questions := buildQuestions(questionInputs)
	refs := buildRefs(refInputs)
	items, points := sumDirect(questions)

	pool := &model.QuestionPool{
		OwnerID:           ownerID,
		Title:             title,
		ExamOwned:         examOwned,
		TotalDirectItems:  items,
		TotalDirectPoints: points,
	}

	if err := s.poolRepo.Create(ctx, pool, questions, refs); err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	s.log.Debug().
		Str("pool_id", pool.ID.String()).
		Bool("exam_owned", examOwned).
		Int("direct_items", items).
		Msg("Pool created")

	return pool, nil
}

// ListReusable retrieves an author's reusable pools.
func (s *PoolService) ListReusable(ctx context.Context, ownerID uuid.UUID) ([]model.QuestionPool, error) {
	pools, err := s.poolRepo.ListReusableByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if pools == nil {
		pools = []model.QuestionPool{}
	}
	return pools, nil
}

// GetDetail loads a pool with questions and references. Callers outside the
// owning author are rejected.
func (s *PoolService) GetDetail(ctx context.Context, poolID, callerID uuid.UUID) (*model.PoolDetail, error) {
	pool, err := s.poolRepo.GetByID(ctx, poolID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrPoolNotFound
		}
		return nil, err
	}
	if pool.OwnerID != callerID {
		return nil, ErrNotPoolOwner
	}
	return s.loadDetail(ctx, pool)
}

// Detail loads a pool with questions and references without an ownership
// check. Used internally where the parent resource already authorized.
func (s *PoolService) Detail(ctx context.Context, poolID uuid.UUID) (*model.PoolDetail, error) {
	pool, err := s.poolRepo.GetByID(ctx, poolID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrPoolNotFound
		}
		return nil, err
	}
	return s.loadDetail(ctx, pool)
}

func (s *PoolService) loadDetail(ctx context.Context, pool *model.QuestionPool) (*model.PoolDetail, error) {
	questions, err := s.poolRepo.ListQuestions(ctx, pool.ID)
	if err != nil {
		return nil, err
	}
	refs, err := s.poolRepo.ListRefs(ctx, pool.ID)
	if err != nil {
		return nil, err
	}
	if questions == nil {
		questions = []model.Question{}
	}
	if refs == nil {
		refs = []model.PoolRef{}
	}
	return &model.PoolDetail{QuestionPool: *pool, Questions: questions, PoolRefs: refs}, nil
}

// UpdateReusable replaces a reusable pool's contents, owner-only.
func (s *PoolService) UpdateReusable(ctx context.Context, poolID, callerID uuid.UUID, req *model.UpdatePoolRequest) error {
	pool, err := s.poolRepo.GetByID(ctx, poolID)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrPoolNotFound
		}
		return err
	}
	if pool.OwnerID != callerID {
		return ErrNotPoolOwner
	}
	title := req.Title
	if title == "" {
		title = pool.Title
	}
	return s.replace(ctx, poolID, callerID, title, req.Questions, req.PoolRefs)
}

// ReplaceContents swaps a pool's composition without an ownership check on
// the pool itself. The exam service calls this for exam-owned pools after it
// has verified the caller owns the exam; ownerID still scopes which pools the
// new references may target.
func (s *PoolService) ReplaceContents(ctx context.Context, poolID, ownerID uuid.UUID, questionInputs []model.QuestionInput, refInputs []model.PoolRefInput) error {
	return s.replace(ctx, poolID, ownerID, "", questionInputs, refInputs)
}

func (s *PoolService) replace(ctx context.Context, poolID, ownerID uuid.UUID, title string, questionInputs []model.QuestionInput, refInputs []model.PoolRefInput) error {
	if err := s.validateRefs(ctx, ownerID, poolID, refInputs); err != nil {
		return err
	}
	questions := buildQuestions(questionInputs)
	refs := buildRefs(refInputs)
	items, points := sumDirect(questions)

	if err := s.poolRepo.ReplaceContents(ctx, poolID, title, questions, refs, items, points); err != nil {
		return fmt.Errorf("replace pool contents: %w", err)
	}
	return nil
}

// Delete removes a reusable pool, owner-only. Pools still referenced by other
// compositions cannot be deleted.
func (s *PoolService) Delete(ctx context.Context, poolID, callerID uuid.UUID) error {
	pool, err := s.poolRepo.GetByID(ctx, poolID)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrPoolNotFound
		}
		return err
	}
	if pool.OwnerID != callerID {
		return ErrNotPoolOwner
	}

	referenced, err := s.poolRepo.IsReferenced(ctx, poolID)
	if err != nil {
		return err
	}
	if referenced {
		return ErrPoolReferenced
	}

	_, err = s.poolRepo.Delete(ctx, poolID)
	return err
}

// DeleteOwned removes an exam-owned pool as part of an exam delete or a
// compensation path. No ownership or reference checks; the exam owns it.
func (s *PoolService) DeleteOwned(ctx context.Context, poolID uuid.UUID) error {
	_, err := s.poolRepo.Delete(ctx, poolID)
	return err
}

// IsReferenced reports whether other pools reference this one. Authors probe
// this before attempting a delete that would otherwise be rejected.
func (s *PoolService) IsReferenced(ctx context.Context, poolID, callerID uuid.UUID) (bool, error) {
	pool, err := s.poolRepo.GetByID(ctx, poolID)
	if err != nil {
		if repository.IsNotFound(err) {
			return false, ErrPoolNotFound
		}
		return false, err
	}
	if pool.OwnerID != callerID {
		return false, ErrNotPoolOwner
	}
	return s.poolRepo.IsReferenced(ctx, poolID)
}

// Resolve produces the concrete question list for one exam attempt: each
// reference's target sampled without replacement in declaration order, then
// the pool's own direct questions. Sampling is fresh on every call, so two
// attempts against the same pools may see different subsets and orderings.
func (s *PoolService) Resolve(ctx context.Context, poolID uuid.UUID) ([]model.TakerQuestion, error) {
	refs, err := s.poolRepo.ListRefs(ctx, poolID)
	if err != nil {
		return nil, err
	}

	var resolved []model.TakerQuestion
	position := 0
	for _, ref := range refs {
		available, err := s.poolRepo.ListQuestions(ctx, ref.TargetPoolID)
		if err != nil {
			return nil, fmt.Errorf("resolve ref %s: %w", ref.TargetPoolID, err)
		}
		// A target with fewer questions than requested yields everything it
		// has rather than failing the whole resolution.
		for _, q := range sampleQuestions(available, ref.DrawCount) {
			resolved = append(resolved, q.ForTaker(position))
			position++
		}
	}

	direct, err := s.poolRepo.ListQuestions(ctx, poolID)
	if err != nil {
		return nil, err
	}
	for _, q := range direct {
		resolved = append(resolved, q.ForTaker(position))
		position++
	}

	if resolved == nil {
		resolved = []model.TakerQuestion{}
	}
	return resolved, nil
}

// sampleQuestions draws min(k, len(qs)) questions without replacement.
func sampleQuestions(qs []model.Question, k int) []model.Question {
	if k > len(qs) {
		k = len(qs)
	}
	if k <= 0 {
		return nil
	}
	shuffled := make([]model.Question, len(qs))
	copy(shuffled, qs)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:k]
}

// validateRefs checks that every target is one of the caller's own reusable
// pools, no target repeats, and the reference graph stays acyclic and within
// the depth limit once the new references are in place. poolID is uuid.Nil
// for a pool being created (a not-yet-existing pool cannot be the target of
// anything).
func (s *PoolService) validateRefs(ctx context.Context, ownerID, poolID uuid.UUID, refs []model.PoolRefInput) error {
	if len(refs) == 0 {
		return nil
	}

	seen := make(map[uuid.UUID]bool, len(refs))
	targets := make([]uuid.UUID, 0, len(refs))
	for _, ref := range refs {
		if ref.TargetPoolID == poolID {
			return ErrPoolCycle
		}
		if seen[ref.TargetPoolID] {
			return ErrDuplicateRef
		}
		seen[ref.TargetPoolID] = true

		target, err := s.poolRepo.GetByID(ctx, ref.TargetPoolID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrPoolNotFound
			}
			return err
		}
		if err := validateRefTarget(target, ownerID); err != nil {
			return err
		}
		targets = append(targets, ref.TargetPoolID)
	}

	lookup := func(id uuid.UUID) ([]uuid.UUID, error) {
		stored, err := s.poolRepo.ListRefs(ctx, id)
		if err != nil {
			return nil, err
		}
		out := make([]uuid.UUID, len(stored))
		for i, ref := range stored {
			out[i] = ref.TargetPoolID
		}
		return out, nil
	}

	return checkAcyclic(poolID, targets, lookup)
}

// validateRefTarget admits only the caller's own reusable pools as reference
// targets. Another author's pool would leak its questions into a foreign
// draw; an exam-owned pool backs exactly one exam and its RESTRICT FK would
// wedge that exam's cascading delete.
func validateRefTarget(target *model.QuestionPool, ownerID uuid.UUID) error {
	if target.OwnerID != ownerID {
		return ErrNotPoolOwner
	}
	if target.ExamOwned {
		return ErrRefExamOwned
	}
	return nil
}

// checkAcyclic walks the reference graph from the proposed targets and fails
// if any path reaches back to start or runs deeper than maxRefDepth.
func checkAcyclic(start uuid.UUID, targets []uuid.UUID, lookup func(uuid.UUID) ([]uuid.UUID, error)) error {
	type frame struct {
		id    uuid.UUID
		depth int
	}

	visited := make(map[uuid.UUID]bool)
	stack := make([]frame, 0, len(targets))
	for _, t := range targets {
		stack = append(stack, frame{id: t, depth: 1})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.id == start {
			return ErrPoolCycle
		}
		if f.depth > maxRefDepth {
			return ErrRefTooDeep
		}
		if visited[f.id] {
			continue
		}
		visited[f.id] = true

		next, err := lookup(f.id)
		if err != nil {
			return err
		}
		for _, n := range next {
			stack = append(stack, frame{id: n, depth: f.depth + 1})
		}
	}
	return nil
}

// resolveStamp is a tiny helper for building a ResolvedQuestionSet envelope.
func resolveStamp(code string, examID uuid.UUID, questions []model.TakerQuestion) *model.ResolvedQuestionSet {
	return &model.ResolvedQuestionSet{
		Code:       code,
		ExamID:     examID,
		Questions:  questions,
		TotalItems: len(questions),
		ResolvedAt: time.Now().UTC(),
	}
}
