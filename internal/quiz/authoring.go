package quiz

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

// PrepareQuestion validates a question and freezes its sub-answer schema.
func PrepareQuestion(q Question) (Question, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.Kind == "" {
		q.Kind = KindCloze
	}
	switch q.Kind {
	case KindGapFill, KindDropdown, KindHintWord, KindCloze:
	default:
		return Question{}, invalid("kind", fmt.Sprintf("unknown question kind %q", q.Kind))
	}
	if strings.TrimSpace(q.Content) == "" {
		return Question{}, invalid("content", "question "+q.ID+" has no content")
	}
	for i, d := range q.Dropdowns {
		if strings.TrimSpace(d.Correct) == "" {
			return Question{}, invalid("dropdowns", fmt.Sprintf("dropdown %d has no correct option", i))
		}
		if len(d.Options) > 0 && !containsNormalized(d.Options, d.Correct) {
			return Question{}, invalid("dropdowns", fmt.Sprintf("dropdown %d: correct option is not among options", i))
		}
	}
	for i, h := range q.Hints {
		if strings.TrimSpace(h.Word) == "" {
			return Question{}, invalid("hints", fmt.Sprintf("hint %d has no word", i))
		}
	}
	q.Schema = grading.Decompose(q.Source())
	return q, nil
}

// AuthorQuiz stores the questions (schemas computed) and then the quiz that
// references them, in that order.
func (s *Service) AuthorQuiz(ctx context.Context, qz Quiz, questions []Question) (Quiz, error) {
	if strings.TrimSpace(qz.Title) == "" {
		return Quiz{}, invalid("title", "required")
	}
	if qz.ID == "" {
		qz.ID = uuid.NewString()
	}
	switch qz.Visibility {
	case "":
		qz.Visibility = VisibilityNormal
	case VisibilityNormal, VisibilityJustMe, VisibilityEveryoneRecord:
	default:
		return Quiz{}, invalid("visibility", fmt.Sprintf("unknown visibility %q", qz.Visibility))
	}
	if qz.PassScore != nil && (*qz.PassScore < 0 || *qz.PassScore > 100) {
		return Quiz{}, invalid("pass_score", "must be within 0..100")
	}

	prepared := make([]Question, 0, len(questions))
	for _, q := range questions {
		p, err := PrepareQuestion(q)
		if err != nil {
			return Quiz{}, err
		}
		prepared = append(prepared, p)
	}
	if len(qz.QuestionIDs) == 0 {
		for _, p := range prepared {
			qz.QuestionIDs = append(qz.QuestionIDs, p.ID)
		}
	}
	seen := make(map[string]bool, len(qz.QuestionIDs))
	for _, id := range qz.QuestionIDs {
		if seen[id] {
			return Quiz{}, invalid("question_ids", fmt.Sprintf("duplicate question id %q", id))
		}
		seen[id] = true
	}
	for _, p := range prepared {
		if err := s.store.PutQuestion(ctx, p); err != nil {
			return Quiz{}, fmt.Errorf("put question %s: %w", p.ID, err)
		}
	}
	// every reference must resolve
	if _, err := s.store.GetQuestions(ctx, qz.QuestionIDs); err != nil {
		return Quiz{}, err
	}
	if qz.CreatedAt == 0 {
		qz.CreatedAt = s.now().Unix()
	}
	if err := s.store.PutQuiz(ctx, qz); err != nil {
		return Quiz{}, fmt.Errorf("put quiz: %w", err)
	}
	return qz, nil
}

// QuestionView is a question with every correct answer removed.
type QuestionView struct {
	ID        string           `json:"id"`
	Kind      QuestionKind     `json:"kind"`
	Content   string           `json:"content"`
	Dropdowns [][]string       `json:"dropdowns,omitempty"` // options per dropdown
	WordBank  []string         `json:"word_bank,omitempty"`
	Positions []PositionSchema `json:"positions"`
}

type PositionSchema struct {
	Position int          `json:"position"`
	Kind     grading.Kind `json:"kind"`
}

type QuizView struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Visibility Visibility     `json:"visibility"`
	Settings   Settings       `json:"settings"`
	PassScore  int            `json:"pass_score"`
	Questions  []QuestionView `json:"questions"`
	CreatedAt  int64          `json:"created_at,omitempty"`
}

// QuizForLearner loads a quiz and strips answer keys.
func (s *Service) QuizForLearner(ctx context.Context, quizID string) (QuizView, error) {
	if strings.TrimSpace(quizID) == "" {
		return QuizView{}, invalid("quiz_id", "required")
	}
	qz, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return QuizView{}, err
	}
	questions, err := s.store.GetQuestions(ctx, qz.QuestionIDs)
	if err != nil {
		return QuizView{}, err
	}
	v := QuizView{
		ID:         qz.ID,
		Title:      qz.Title,
		Visibility: qz.Visibility,
		Settings:   qz.Settings,
		PassScore:  s.passThreshold,
		Questions:  make([]QuestionView, 0, len(questions)),
		CreatedAt:  qz.CreatedAt,
	}
	if qz.PassScore != nil {
		v.PassScore = *qz.PassScore
	}
	for _, q := range questions {
		v.Questions = append(v.Questions, learnerView(q))
	}
	return v, nil
}

func learnerView(q Question) QuestionView {
	qv := QuestionView{ID: q.ID, Kind: q.Kind, Content: grading.BlankMarkers(q.Content)}
	for _, d := range q.Dropdowns {
		qv.Dropdowns = append(qv.Dropdowns, append([]string(nil), d.Options...))
	}
	for _, h := range q.Hints {
		qv.WordBank = append(qv.WordBank, h.Word)
	}
	// bank order must not reveal slot order
	sort.Strings(qv.WordBank)
	for _, spec := range q.Key().Specs {
		qv.Positions = append(qv.Positions, PositionSchema{Position: spec.Position, Kind: spec.Kind})
	}
	return qv
}

func containsNormalized(list []string, v string) bool {
	n := grading.Normalize(v)
	for _, x := range list {
		if grading.Normalize(x) == n {
			return true
		}
	}
	return false
}
