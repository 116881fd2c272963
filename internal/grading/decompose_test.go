package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mixedContent = `<p>The capital of France is <span class="cloze">Paris</span>.
<span class="cloze-dropdown"><span class="cloze">is</span></span> it big?
<span class="cloze-hint">Word: <b class="cloze">river</b></span>
and <span class="cloze">Seine</span></p>`

func TestDecompose_ClassifiesByContainer(t *testing.T) {
	specs := Decompose(Source{
		Content:   mixedContent,
		Gaps:      [][]string{{"Paris", " paris "}, {"Seine", "la seine"}},
		Dropdowns: []string{"Is"},
		Hints:     []string{"River"},
	})
	require.Len(t, specs, 4)
	assert.Equal(t, CountMarkers(mixedContent), len(specs))

	wantKinds := []Kind{KindGap, KindDropdown, KindHint, KindGap}
	for i, s := range specs {
		assert.Equal(t, i, s.Position)
		assert.Equal(t, wantKinds[i], s.Kind, "position %d", i)
	}
	assert.Equal(t, []string{"paris"}, specs[0].Acceptable)
	assert.Equal(t, []string{"is"}, specs[1].Acceptable)
	assert.Equal(t, []string{"river"}, specs[2].Acceptable)
	assert.Equal(t, []string{"seine", "la seine"}, specs[3].Acceptable)
}

func TestDecompose_FallsBackToLiteralText(t *testing.T) {
	content := `<span class="cloze"> Rome </span> <span class="cloze-dropdown"><span class="cloze">Tiber</span></span> <span class="cloze"></span>`
	specs := Decompose(Source{Content: content})
	require.Len(t, specs, 3)
	assert.Equal(t, []string{"rome"}, specs[0].Acceptable)
	assert.Equal(t, KindDropdown, specs[1].Kind)
	assert.Equal(t, []string{"tiber"}, specs[1].Acceptable)
	assert.Empty(t, specs[2].Acceptable, "empty marker has nothing acceptable")
}

func TestDecompose_EmptyGapListUsesLiteral(t *testing.T) {
	specs := Decompose(Source{
		Content: `<span class="cloze">Oslo</span>`,
		Gaps:    [][]string{{"  "}},
	})
	require.Len(t, specs, 1)
	assert.Equal(t, []string{"oslo"}, specs[0].Acceptable)
}

func TestDecompose_MalformedMarkupNeverPanics(t *testing.T) {
	inputs := []string{
		"",
		"plain text without markers",
		`<span class="cloze">unclosed`,
		`<div class="cloze-hint"><span class="cloze">a</span><span class="cloze">b`,
		`<<<>>> <span class=cloze>x</span>`,
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			specs := Decompose(Source{Content: in})
			assert.Equal(t, CountMarkers(in), len(specs))
		})
	}
}

func TestDecompose_Deterministic(t *testing.T) {
	src := Source{Content: mixedContent, Gaps: [][]string{{"Paris"}}}
	assert.Equal(t, Decompose(src), Decompose(src))
}

func TestDecompose_MarkerClassAmongOthers(t *testing.T) {
	specs := Decompose(Source{
		Content: `<div class="box cloze-hint wide"><input class="input cloze" value="x"></div>`,
		Hints:   []string{"sun"},
	})
	require.Len(t, specs, 1)
	assert.Equal(t, KindHint, specs[0].Kind)
	assert.Equal(t, []string{"sun"}, specs[0].Acceptable)
}

func TestBlankMarkers_HidesLiteralAnswers(t *testing.T) {
	out := BlankMarkers(`<p>Capital: <span class="cloze">Paris</span> on the <span class="cloze-hint"><span class="cloze">Seine</span></span></p>`)
	assert.NotContains(t, out, "Paris")
	assert.NotContains(t, out, "Seine")
	assert.Contains(t, out, `data-position="0"`)
	assert.Contains(t, out, `data-position="1"`)
	assert.Equal(t, 2, CountMarkers(out), "blanked content keeps its markers")
}

func TestBlankMarkers_DropsAnswerBearingAttributes(t *testing.T) {
	cases := []struct {
		name    string
		content string
		leaks   []string
	}{
		{"input value", `<input class="cloze" value="Paris" data-answer="Paris">`, []string{"Paris", "data-answer", "value="}},
		{"span title", `<span class="cloze" title="Rome" aria-label="Rome">Rome</span>`, []string{"Rome", "title=", "aria-label"}},
		{"dropdown", `<span class="cloze-dropdown"><span class="cloze" data-correct="blue">blue</span></span>`, []string{"blue", "data-correct"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out := BlankMarkers(c.content)
			for _, l := range c.leaks {
				assert.NotContains(t, out, l)
			}
			assert.Contains(t, out, `class="cloze"`)
			assert.Contains(t, out, `data-position="0"`)
			assert.Equal(t, 1, CountMarkers(out))
		})
	}
}
