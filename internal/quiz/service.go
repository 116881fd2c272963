package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

// Recorder receives lifecycle counters; see internal/metrics.
type Recorder interface {
	AttemptStarted(resumed bool)
	AttemptSubmitted(score int, passed, redirected bool)
	AutosaveRejected()
}

// EventSink is notified after an attempt is finalized. Failures are logged,
// never returned to the learner.
type EventSink interface {
	AttemptSubmitted(ctx context.Context, a Attempt) error
}

type nopRecorder struct{}

func (nopRecorder) AttemptStarted(bool)              {}
func (nopRecorder) AttemptSubmitted(int, bool, bool) {}
func (nopRecorder) AutosaveRejected()                {}

type Option func(*Service)

func WithPassThreshold(n int) Option       { return func(s *Service) { s.passThreshold = n } }
func WithRetryPolicy(p RetryPolicy) Option { return func(s *Service) { s.retry = p } }
func WithLogger(l *zap.Logger) Option      { return func(s *Service) { s.log = l } }
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}
func WithRecorder(r Recorder) Option { return func(s *Service) { s.rec = r } }
func WithEvents(e EventSink) Option  { return func(s *Service) { s.events = e } }
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// Service owns the attempt lifecycle: Start, Autosave, Submit, and the read
// paths derived from submitted attempts.
type Service struct {
	store         Store
	locks         *pairLocks
	passThreshold int
	retry         RetryPolicy
	loc           *time.Location
	now           func() time.Time
	log           *zap.Logger
	rec           Recorder
	events        EventSink
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:         store,
		locks:         newPairLocks(),
		passThreshold: DefaultPassThreshold,
		retry:         RetryPolicy{Threshold: DefaultRetryThreshold},
		loc:           time.UTC,
		now:           time.Now,
		log:           zap.NewNop(),
		rec:           nopRecorder{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type StartResult struct {
	Attempt Attempt `json:"attempt"`
	Resumed bool    `json:"resumed"`
}

// Start returns the open attempt for (user, quiz), or creates attempt n+1
// when the retry policy allows it.
func (s *Service) Start(ctx context.Context, quizID, userID string) (StartResult, error) {
	if err := requireIDs(quizID, userID); err != nil {
		return StartResult{}, err
	}
	if _, err := s.store.GetQuiz(ctx, quizID); err != nil {
		return StartResult{}, err
	}

	unlock := s.locks.lock(userID, quizID)
	defer unlock()

	a, resumed, err := s.startLocked(ctx, quizID, userID, true)
	if err != nil {
		return StartResult{}, err
	}
	return StartResult{Attempt: a, Resumed: resumed}, nil
}

func (s *Service) startLocked(ctx context.Context, quizID, userID string, gate bool) (Attempt, bool, error) {
	if open, ok, err := s.store.FindOpenAttempt(ctx, userID, quizID); err != nil {
		return Attempt{}, false, err
	} else if ok {
		s.rec.AttemptStarted(true)
		return open, true, nil
	}

	subs, err := s.store.ListSubmittedAttempts(ctx, userID, quizID)
	if err != nil {
		return Attempt{}, false, err
	}
	if gate {
		if last := latestSubmitted(subs); !s.retry.CanRetry(last) {
			return Attempt{}, false, fmt.Errorf("%w: last score %d is at or above %d",
				ErrRetryLocked, last.ScoreValue(), s.retry.Threshold)
		}
	}

	a, err := s.store.CreateAttempt(ctx, Attempt{
		ID:            uuid.NewString(),
		QuizID:        quizID,
		UserID:        userID,
		AttemptNumber: len(subs) + 1,
		Answers:       []QuestionAnswer{},
		StartedAt:     s.now().UTC(),
	})
	if errors.Is(err, ErrConflict) {
		// another process won the race; resume its attempt
		open, ok, ferr := s.store.FindOpenAttempt(ctx, userID, quizID)
		if ferr != nil {
			return Attempt{}, false, ferr
		}
		if ok {
			s.rec.AttemptStarted(true)
			return open, true, nil
		}
		return Attempt{}, false, fmt.Errorf("create attempt: %w", err)
	}
	if err != nil {
		return Attempt{}, false, fmt.Errorf("create attempt: %w", err)
	}
	s.rec.AttemptStarted(false)
	s.log.Info("attempt started",
		zap.String("attempt_id", a.ID),
		zap.String("quiz_id", quizID),
		zap.String("user_id", userID),
		zap.Int("attempt_number", a.AttemptNumber))
	return a, false, nil
}

type AutosaveResult struct {
	AttemptID string `json:"attempt_id"`
	Saved     bool   `json:"saved"`
	Warning   string `json:"warning,omitempty"`
}

// Autosave replaces the attempt's answers. A submitted attempt is never
// touched; the call degrades to a warning instead of an error. Nil answers
// are rejected; an empty non-nil slice clears the saved set.
func (s *Service) Autosave(ctx context.Context, attemptID, userID string, answers []QuestionAnswer) (AutosaveResult, error) {
	if err := requireIDs(attemptID, userID); err != nil {
		return AutosaveResult{}, err
	}
	a, err := s.ownedAttempt(ctx, attemptID, userID)
	if err != nil {
		return AutosaveResult{}, err
	}
	if answers == nil {
		return AutosaveResult{}, invalid("answers", "required")
	}
	res := AutosaveResult{AttemptID: a.ID}
	if a.Submitted() {
		return s.rejectAutosave(res), nil
	}

	unlock := s.locks.lock(a.UserID, a.QuizID)
	defer unlock()

	err = s.store.UpdateAnswers(ctx, a.ID, dedupeAnswers(answers))
	if errors.Is(err, ErrAlreadySubmitted) {
		return s.rejectAutosave(res), nil
	}
	if err != nil {
		return AutosaveResult{}, fmt.Errorf("autosave: %w", err)
	}
	res.Saved = true
	return res, nil
}

func (s *Service) rejectAutosave(res AutosaveResult) AutosaveResult {
	s.rec.AutosaveRejected()
	s.log.Warn("autosave ignored for submitted attempt", zap.String("attempt_id", res.AttemptID))
	res.Warning = ErrAlreadySubmitted.Error()
	return res
}

type SubmitResult struct {
	Attempt    Attempt `json:"attempt"`
	Score      int     `json:"score"`
	Passed     bool    `json:"passed"`
	Redirected bool    `json:"redirected"` // graded as a fresh attempt
	// PerQuestion mirrors Attempt.Results.
	PerQuestion []grading.QuestionResult `json:"per_question"`
}

// Submit grades and locks an attempt. Answers replace the stored set unless
// nil. A submission targeting a locked attempt is redirected to a fresh one.
func (s *Service) Submit(ctx context.Context, attemptID, userID string, answers []QuestionAnswer) (SubmitResult, error) {
	if err := requireIDs(attemptID, userID); err != nil {
		return SubmitResult{}, err
	}
	a, err := s.ownedAttempt(ctx, attemptID, userID)
	if err != nil {
		return SubmitResult{}, err
	}
	qz, err := s.store.GetQuiz(ctx, a.QuizID)
	if err != nil {
		return SubmitResult{}, err
	}
	questions, err := s.store.GetQuestions(ctx, qz.QuestionIDs)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("load questions: %w", err)
	}
	keys := make([]grading.Key, 0, len(questions))
	for _, q := range questions {
		keys = append(keys, q.Key())
	}
	threshold := s.passThreshold
	if qz.PassScore != nil {
		threshold = *qz.PassScore
	}

	unlock := s.locks.lock(a.UserID, a.QuizID)
	defer unlock()

	// Re-read under the lock; a concurrent submit may have landed.
	if a, err = s.store.GetAttempt(ctx, a.ID); err != nil {
		return SubmitResult{}, err
	}

	redirected := false
	for try := 0; try < 2; try++ {
		if a.Submitted() {
			if a, _, err = s.startLocked(ctx, a.QuizID, a.UserID, false); err != nil {
				return SubmitResult{}, err
			}
			redirected = true
		}
		set := answers
		if set == nil {
			set = a.Answers
		}
		set = dedupeAnswers(set)

		res := grading.Grade(keys, flattenAnswers(set))
		passed := grading.Passed(res.Score, threshold)
		done, err := s.store.FinalizeAttempt(ctx, a.ID, Finalization{
			Answers:        set,
			Score:          res.Score,
			Passed:         passed,
			CorrectAnswers: keys,
			Results:        res.PerQuestion,
			SubmittedAt:    s.now().UTC(),
		})
		if errors.Is(err, ErrAlreadySubmitted) {
			if a, err = s.store.GetAttempt(ctx, a.ID); err != nil {
				return SubmitResult{}, err
			}
			continue
		}
		if err != nil {
			return SubmitResult{}, fmt.Errorf("finalize attempt: %w", err)
		}

		s.rec.AttemptSubmitted(res.Score, passed, redirected)
		s.log.Info("attempt submitted",
			zap.String("attempt_id", done.ID),
			zap.String("quiz_id", done.QuizID),
			zap.String("user_id", done.UserID),
			zap.Int("attempt_number", done.AttemptNumber),
			zap.Int("score", res.Score),
			zap.Bool("passed", passed),
			zap.Bool("redirected", redirected))
		if s.events != nil {
			if err := s.events.AttemptSubmitted(ctx, done); err != nil {
				s.log.Error("append submit event", zap.String("attempt_id", done.ID), zap.Error(err))
			}
		}
		return SubmitResult{
			Attempt:     done,
			Score:       res.Score,
			Passed:      passed,
			Redirected:  redirected,
			PerQuestion: res.PerQuestion,
		}, nil
	}
	return SubmitResult{}, fmt.Errorf("submit %s: %w", attemptID, ErrConflict)
}

// GetAttempt returns an attempt owned by userID.
func (s *Service) GetAttempt(ctx context.Context, attemptID, userID string) (Attempt, error) {
	if err := requireIDs(attemptID, userID); err != nil {
		return Attempt{}, err
	}
	return s.ownedAttempt(ctx, attemptID, userID)
}

// GetAnyAttempt skips the ownership check; staff views only.
func (s *Service) GetAnyAttempt(ctx context.Context, attemptID string) (Attempt, error) {
	if strings.TrimSpace(attemptID) == "" {
		return Attempt{}, invalid("attempt_id", "required")
	}
	return s.store.GetAttempt(ctx, attemptID)
}

// OpenAttempt is the server-side answer to "which attempt do I resume".
func (s *Service) OpenAttempt(ctx context.Context, quizID, userID string) (Attempt, bool, error) {
	if err := requireIDs(quizID, userID); err != nil {
		return Attempt{}, false, err
	}
	return s.store.FindOpenAttempt(ctx, userID, quizID)
}

func (s *Service) BestAttempt(ctx context.Context, userID, quizID string) (Attempt, bool, error) {
	if err := requireIDs(quizID, userID); err != nil {
		return Attempt{}, false, err
	}
	list, err := s.store.ListSubmittedAttempts(ctx, userID, quizID)
	if err != nil {
		return Attempt{}, false, err
	}
	a, ok := BestAttempt(list)
	return a, ok, nil
}

// Stats aggregates every submitted attempt of the user. A nil loc means the
// service's reporting timezone.
func (s *Service) Stats(ctx context.Context, userID string, loc *time.Location) (Stats, error) {
	if strings.TrimSpace(userID) == "" {
		return Stats{}, invalid("user_id", "required")
	}
	if loc == nil {
		loc = s.loc
	}
	list, err := s.store.ListUserSubmittedAttempts(ctx, userID)
	if err != nil {
		return Stats{}, err
	}
	return ResultsStats(list, s.now(), loc), nil
}

func (s *Service) RetryStatus(ctx context.Context, quizID, userID string) (RetryStatus, error) {
	if err := requireIDs(quizID, userID); err != nil {
		return RetryStatus{}, err
	}
	st := RetryStatus{Threshold: s.retry.Threshold}
	open, ok, err := s.store.FindOpenAttempt(ctx, userID, quizID)
	if err != nil {
		return RetryStatus{}, err
	}
	if ok {
		st.HasOpen = true
		st.OpenAttemptID = open.ID
		return st, nil
	}
	subs, err := s.store.ListSubmittedAttempts(ctx, userID, quizID)
	if err != nil {
		return RetryStatus{}, err
	}
	last := latestSubmitted(subs)
	st.CanRetry = s.retry.CanRetry(last)
	if last != nil {
		score := last.ScoreValue()
		st.LastScore = &score
	}
	return st, nil
}

func (s *Service) ownedAttempt(ctx context.Context, attemptID, userID string) (Attempt, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.UserID != userID {
		return Attempt{}, fmt.Errorf("attempt %q: %w", attemptID, ErrForbidden)
	}
	return a, nil
}

func requireIDs(id, userID string) error {
	if strings.TrimSpace(id) == "" {
		return invalid("id", "required")
	}
	if strings.TrimSpace(userID) == "" {
		return invalid("user_id", "required")
	}
	return nil
}
