package quiz

import (
	"encoding/json"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

type Visibility string

const (
	VisibilityNormal         Visibility = "normal"
	VisibilityJustMe         Visibility = "just_me"
	VisibilityEveryoneRecord Visibility = "everyone_record"
)

type QuestionKind string

const (
	KindGapFill  QuestionKind = "gap_fill"
	KindDropdown QuestionKind = "dropdown"
	KindHintWord QuestionKind = "hint_word"
	KindCloze    QuestionKind = "cloze" // any mix of the three
)

// Settings is display configuration; the core never interprets it.
type Settings struct {
	TimeLimitSec       int    `json:"time_limit_sec,omitempty"`
	OnePerPage         bool   `json:"one_per_page,omitempty"`
	Instructions       string `json:"instructions,omitempty"`
	CompletionText     string `json:"completion_text,omitempty"`
	ShowPassScore      bool   `json:"show_pass_score,omitempty"`
	ShowCorrectAnswers bool   `json:"show_correct_answers,omitempty"`
}

type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	QuestionIDs []string   `json:"question_ids"`
	Visibility  Visibility `json:"visibility,omitempty"`
	Settings    Settings   `json:"settings"`
	PassScore   *int       `json:"pass_score,omitempty"` // overrides the global pass threshold
	CreatedAt   int64      `json:"created_at,omitempty"`
}

type Gap struct {
	Answers []string `json:"answers"`
}

type Dropdown struct {
	Options []string `json:"options"`
	Correct string   `json:"correct"`
}

type HintWord struct {
	Word string `json:"word"`
}

type Question struct {
	ID        string       `json:"id"`
	Kind      QuestionKind `json:"kind"`
	Content   string       `json:"content"`
	Gaps      []Gap        `json:"gaps,omitempty"`
	Dropdowns []Dropdown   `json:"dropdowns,omitempty"`
	Hints     []HintWord   `json:"hints,omitempty"`

	// Schema is computed once when the question is stored.
	Schema []grading.SubAnswerSpec `json:"schema,omitempty"`
}

// Source is the decomposer's view of the question.
func (q Question) Source() grading.Source {
	src := grading.Source{Content: q.Content}
	for _, g := range q.Gaps {
		src.Gaps = append(src.Gaps, g.Answers)
	}
	for _, d := range q.Dropdowns {
		src.Dropdowns = append(src.Dropdowns, d.Correct)
	}
	for _, h := range q.Hints {
		src.Hints = append(src.Hints, h.Word)
	}
	return src
}

// Key returns the grading key, preferring the stored schema.
func (q Question) Key() grading.Key {
	if q.Schema != nil {
		return grading.Key{QuestionID: q.ID, Specs: q.Schema}
	}
	return grading.KeyFor(q.ID, q.Source())
}

// QuestionAnswer is everything a learner has entered for one question.
// Raw is the client payload, echoed back untouched.
type QuestionAnswer struct {
	QuestionID string          `json:"question_id"`
	Raw        json.RawMessage `json:"raw,omitempty"`
	Parts      []Part          `json:"parts"`
}

// Part is one sub-answer value.
type Part struct {
	Position int          `json:"position"`
	Kind     grading.Kind `json:"kind,omitempty"`
	Value    string       `json:"value"`
}

type Attempt struct {
	ID             string                   `json:"id"`
	QuizID         string                   `json:"quiz_id"`
	UserID         string                   `json:"user_id"`
	AttemptNumber  int                      `json:"attempt_number"`
	Answers        []QuestionAnswer         `json:"answers"`
	StartedAt      time.Time                `json:"started_at"`
	SubmittedAt    *time.Time               `json:"submitted_at,omitempty"`
	Score          *int                     `json:"score,omitempty"`
	Passed         *bool                    `json:"passed,omitempty"`
	CorrectAnswers []grading.Key            `json:"correct_answers,omitempty"`
	Results        []grading.QuestionResult `json:"results,omitempty"`
}

func (a Attempt) Submitted() bool { return a.SubmittedAt != nil }

// ScoreValue is the score, or 0 while in progress.
func (a Attempt) ScoreValue() int {
	if a.Score == nil {
		return 0
	}
	return *a.Score
}

func (a Attempt) PassedValue() bool { return a.Passed != nil && *a.Passed }

// Finalization is the immutable outcome written by Submit.
type Finalization struct {
	Answers        []QuestionAnswer
	Score          int
	Passed         bool
	CorrectAnswers []grading.Key
	Results        []grading.QuestionResult
	SubmittedAt    time.Time
}

// flattenAnswers turns per-question answers into grading answers.
func flattenAnswers(qas []QuestionAnswer) []grading.Answer {
	var out []grading.Answer
	for _, qa := range qas {
		for _, p := range qa.Parts {
			out = append(out, grading.Answer{
				QuestionID: qa.QuestionID,
				Position:   p.Position,
				Kind:       p.Kind,
				Value:      p.Value,
			})
		}
	}
	return out
}

// dedupeAnswers keeps the last entry per question id, in first-seen order.
func dedupeAnswers(qas []QuestionAnswer) []QuestionAnswer {
	idx := make(map[string]int, len(qas))
	out := make([]QuestionAnswer, 0, len(qas))
	for _, qa := range qas {
		if i, ok := idx[qa.QuestionID]; ok {
			out[i] = qa
			continue
		}
		idx[qa.QuestionID] = len(out)
		out = append(out, qa)
	}
	return out
}
