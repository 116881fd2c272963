package grading

import "math"

// Answer is one submitted sub-answer, addressed by (QuestionID, Position).
// Kind is optional; when set it must match the schema's kind at that position.
type Answer struct {
	QuestionID string `json:"question_id"`
	Position   int    `json:"position"`
	Kind       Kind   `json:"kind,omitempty"`
	Value      string `json:"value"`
}

// Key is the frozen schema of one question, captured when an attempt is
// submitted.
type Key struct {
	QuestionID string          `json:"question_id"`
	Specs      []SubAnswerSpec `json:"specs"`
}

// QuestionResult holds per-position correctness, aligned with Key.Specs.
type QuestionResult struct {
	QuestionID       string `json:"question_id"`
	SubAnswerResults []bool `json:"sub_answer_results"`
}

// Result is the outcome of grading a whole submission.
type Result struct {
	Score       int              `json:"score"` // 0..100
	Correct     int              `json:"correct"`
	Total       int              `json:"total"`
	PerQuestion []QuestionResult `json:"per_question"`
}

type slot struct {
	questionID string
	position   int
}

// Grade compares answers against keys position by position. It never fails:
// missing answers are incorrect, questions without positions add nothing and
// a quiz without positions scores 0.
func Grade(keys []Key, answers []Answer) Result {
	byPos := make(map[slot]Answer, len(answers))
	for _, a := range answers {
		byPos[slot{a.QuestionID, a.Position}] = a
	}

	res := Result{PerQuestion: make([]QuestionResult, 0, len(keys))}
	for _, k := range keys {
		qr := QuestionResult{QuestionID: k.QuestionID, SubAnswerResults: make([]bool, 0, len(k.Specs))}
		for _, spec := range k.Specs {
			a, ok := byPos[slot{k.QuestionID, spec.Position}]
			correct := ok && matches(spec, a)
			if correct {
				res.Correct++
			}
			res.Total++
			qr.SubAnswerResults = append(qr.SubAnswerResults, correct)
		}
		res.PerQuestion = append(res.PerQuestion, qr)
	}
	res.Score = Percent(res.Correct, res.Total)
	return res
}

// KeyFor decomposes a question into its grading key.
func KeyFor(questionID string, src Source) Key {
	return Key{QuestionID: questionID, Specs: Decompose(src)}
}

// Percent is round(100*correct/total), 0 when total is 0.
func Percent(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}

// Passed reports whether score meets the threshold.
func Passed(score, threshold int) bool { return score >= threshold }

func matches(spec SubAnswerSpec, a Answer) bool {
	if a.Kind != "" && a.Kind != spec.Kind {
		return false
	}
	v := Normalize(a.Value)
	if v == "" {
		return false
	}
	for _, acc := range spec.Acceptable {
		if Normalize(acc) == v {
			return true
		}
	}
	return false
}
