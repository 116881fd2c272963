package quiz

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type memoryStore struct {
	mu        sync.RWMutex
	quizzes   map[string]Quiz
	questions map[string]Question
	attempts  map[string]Attempt
}

func NewInMemoryStore() Store {
	return &memoryStore{
		quizzes:   map[string]Quiz{},
		questions: map[string]Question{},
		attempts:  map[string]Attempt{},
	}
}

func (m *memoryStore) PutQuiz(_ context.Context, q Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q.QuestionIDs = append([]string(nil), q.QuestionIDs...)
	m.quizzes[q.ID] = q
	return nil
}

func (m *memoryStore) GetQuiz(_ context.Context, id string) (Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quizzes[id]
	if !ok {
		return Quiz{}, notFound("quiz", id)
	}
	q.QuestionIDs = append([]string(nil), q.QuestionIDs...)
	return q, nil
}

func (m *memoryStore) PutQuestion(_ context.Context, q Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions[q.ID] = cloneVia(q)
	return nil
}

func (m *memoryStore) GetQuestions(_ context.Context, ids []string) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Question, 0, len(ids))
	for _, id := range ids {
		q, ok := m.questions[id]
		if !ok {
			return nil, notFound("question", id)
		}
		out = append(out, cloneVia(q))
	}
	return out, nil
}

func (m *memoryStore) CreateAttempt(_ context.Context, a Attempt) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[a.QuizID]; !ok {
		return Attempt{}, notFound("quiz", a.QuizID)
	}
	for _, x := range m.attempts {
		if x.UserID != a.UserID || x.QuizID != a.QuizID {
			continue
		}
		if !x.Submitted() {
			return Attempt{}, ErrConflict
		}
		if x.AttemptNumber == a.AttemptNumber {
			return Attempt{}, ErrConflict
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Answers == nil {
		a.Answers = []QuestionAnswer{}
	}
	m.attempts[a.ID] = cloneVia(a)
	return cloneVia(a), nil
}

func (m *memoryStore) FindOpenAttempt(_ context.Context, userID, quizID string) (Attempt, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.attempts {
		if a.UserID == userID && a.QuizID == quizID && !a.Submitted() {
			return cloneVia(a), true, nil
		}
	}
	return Attempt{}, false, nil
}

func (m *memoryStore) GetAttempt(_ context.Context, id string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, notFound("attempt", id)
	}
	return cloneVia(a), nil
}

func (m *memoryStore) UpdateAnswers(_ context.Context, attemptID string, answers []QuestionAnswer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[attemptID]
	if !ok {
		return notFound("attempt", attemptID)
	}
	if a.Submitted() {
		return ErrAlreadySubmitted
	}
	a.Answers = cloneVia(answers)
	m.attempts[attemptID] = a
	return nil
}

func (m *memoryStore) FinalizeAttempt(_ context.Context, attemptID string, f Finalization) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[attemptID]
	if !ok {
		return Attempt{}, notFound("attempt", attemptID)
	}
	if a.Submitted() {
		return Attempt{}, ErrAlreadySubmitted
	}
	f = cloneVia(f)
	at := f.SubmittedAt
	score, passed := f.Score, f.Passed
	a.Answers = f.Answers
	a.Score = &score
	a.Passed = &passed
	a.CorrectAnswers = f.CorrectAnswers
	a.Results = f.Results
	a.SubmittedAt = &at
	m.attempts[attemptID] = a
	return cloneVia(a), nil
}

func (m *memoryStore) ListSubmittedAttempts(_ context.Context, userID, quizID string) ([]Attempt, error) {
	return m.listSubmitted(func(a Attempt) bool { return a.UserID == userID && a.QuizID == quizID }), nil
}

func (m *memoryStore) ListUserSubmittedAttempts(_ context.Context, userID string) ([]Attempt, error) {
	return m.listSubmitted(func(a Attempt) bool { return a.UserID == userID }), nil
}

func (m *memoryStore) listSubmitted(keep func(Attempt) bool) []Attempt {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Attempt{}
	for _, a := range m.attempts {
		if a.Submitted() && keep(a) {
			out = append(out, cloneVia(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].QuizID != out[j].QuizID {
			return out[i].QuizID < out[j].QuizID
		}
		return out[i].AttemptNumber < out[j].AttemptNumber
	})
	return out
}

// cloneVia deep-copies through JSON so callers never alias stored state.
func cloneVia[T any](v T) T {
	buf, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out T
	if err := json.Unmarshal(buf, &out); err != nil {
		return v
	}
	return out
}
