package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeGapKey(id string) Key {
	return KeyFor(id, Source{
		Content: `<span class="cloze">a</span> <span class="cloze">b</span> <span class="cloze">c</span>`,
		Gaps:    [][]string{{"red"}, {"green"}, {"blue"}},
	})
}

func TestGrade_PartialWithBlank(t *testing.T) {
	res := Grade([]Key{threeGapKey("q1")}, []Answer{
		{QuestionID: "q1", Position: 0, Value: "Red"},
		{QuestionID: "q1", Position: 1, Value: " green "},
		{QuestionID: "q1", Position: 2, Value: ""},
	})
	require.Len(t, res.PerQuestion, 1)
	assert.Equal(t, []bool{true, true, false}, res.PerQuestion[0].SubAnswerResults)
	assert.Equal(t, 2, res.Correct)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 67, res.Score)
}

func TestGrade_MissingAnswersAreIncorrect(t *testing.T) {
	res := Grade([]Key{threeGapKey("q1")}, nil)
	assert.Equal(t, []bool{false, false, false}, res.PerQuestion[0].SubAnswerResults)
	assert.Equal(t, 0, res.Score)
}

func TestGrade_ZeroPositions(t *testing.T) {
	empty := KeyFor("q0", Source{Content: "<p>no markers here</p>"})
	res := Grade([]Key{empty}, []Answer{{QuestionID: "q0", Value: "x"}})
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, 0, res.Total)
	require.Len(t, res.PerQuestion, 1)
	assert.Empty(t, res.PerQuestion[0].SubAnswerResults)

	mixed := Grade([]Key{empty, threeGapKey("q1")}, []Answer{
		{QuestionID: "q1", Position: 0, Value: "red"},
		{QuestionID: "q1", Position: 1, Value: "green"},
		{QuestionID: "q1", Position: 2, Value: "blue"},
	})
	assert.Equal(t, 100, mixed.Score, "empty question contributes no terms")
}

func TestGrade_AnswerOrderIrrelevant(t *testing.T) {
	keys := []Key{threeGapKey("q1"), threeGapKey("q2")}
	answers := []Answer{
		{QuestionID: "q1", Position: 0, Value: "red"},
		{QuestionID: "q2", Position: 2, Value: "blue"},
		{QuestionID: "q1", Position: 1, Value: "nope"},
		{QuestionID: "q2", Position: 0, Value: "RED"},
	}
	reversed := make([]Answer, len(answers))
	for i, a := range answers {
		reversed[len(answers)-1-i] = a
	}
	assert.Equal(t, Grade(keys, answers), Grade(keys, reversed))
}

func TestGrade_KindMismatchIsIncorrect(t *testing.T) {
	key := KeyFor("q1", Source{
		Content:   `<span class="cloze-dropdown"><span class="cloze">x</span></span>`,
		Dropdowns: []string{"yes"},
	})
	wrongKind := Grade([]Key{key}, []Answer{{QuestionID: "q1", Kind: KindGap, Value: "yes"}})
	assert.Equal(t, []bool{false}, wrongKind.PerQuestion[0].SubAnswerResults)

	untagged := Grade([]Key{key}, []Answer{{QuestionID: "q1", Value: "YES"}})
	assert.Equal(t, []bool{true}, untagged.PerQuestion[0].SubAnswerResults)

	tagged := Grade([]Key{key}, []Answer{{QuestionID: "q1", Kind: KindDropdown, Value: "yes"}})
	assert.Equal(t, 100, tagged.Score)
}

func TestGrade_AnyAcceptableAnswer(t *testing.T) {
	key := KeyFor("q1", Source{
		Content: `<span class="cloze">x</span>`,
		Gaps:    [][]string{{"colour", "color"}},
	})
	res := Grade([]Key{key}, []Answer{{QuestionID: "q1", Value: "Color"}})
	assert.Equal(t, 100, res.Score)
}

func TestPercent(t *testing.T) {
	tests := []struct {
		c, t, want int
	}{
		{0, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 2, 50},
		{1, 8, 13},
		{5, 5, 100},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Percent(tc.c, tc.t), "%d/%d", tc.c, tc.t)
	}
}

func TestPassed(t *testing.T) {
	assert.True(t, Passed(80, 80))
	assert.False(t, Passed(79, 80))
}
