package quiz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submitted(n, score int, at time.Time, passed bool) Attempt {
	return Attempt{
		ID:            "a" + string(rune('0'+n)),
		AttemptNumber: n,
		SubmittedAt:   &at,
		Score:         &score,
		Passed:        &passed,
	}
}

func TestBestAttempt(t *testing.T) {
	day := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, ok := BestAttempt(nil)
	assert.False(t, ok)

	best, ok := BestAttempt([]Attempt{
		submitted(1, 60, day, false),
		submitted(2, 90, day.Add(time.Hour), true),
		submitted(3, 75, day.Add(2*time.Hour), false),
	})
	require.True(t, ok)
	assert.Equal(t, 2, best.AttemptNumber)

	best, _ = BestAttempt([]Attempt{
		submitted(1, 70, day, false),
		submitted(2, 70, day.Add(time.Minute), false),
	})
	assert.Equal(t, 2, best.AttemptNumber, "tie goes to the later submission")

	best, _ = BestAttempt([]Attempt{
		submitted(2, 70, day, false),
		submitted(1, 70, day, false),
	})
	assert.Equal(t, 2, best.AttemptNumber, "same instant: higher attempt number")

	open := Attempt{ID: "open", AttemptNumber: 4}
	best, _ = BestAttempt([]Attempt{open, submitted(1, 10, day, false)})
	assert.Equal(t, 1, best.AttemptNumber)
}

func TestResultsStats_Empty(t *testing.T) {
	st := ResultsStats(nil, time.Now(), time.UTC)
	assert.Zero(t, st.TotalSubmitted)
	assert.NotNil(t, st.ChartData)
	assert.Empty(t, st.ChartData)
}

func TestResultsStats_BucketsByReportingDay(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	now := time.Date(2026, 10, 14, 20, 0, 0, 0, loc)
	list := []Attempt{
		// 2026-10-14 02:00 UTC is still the 13th at UTC-5
		submitted(1, 40, time.Date(2026, 10, 14, 2, 0, 0, 0, time.UTC), false),
		submitted(2, 85, time.Date(2026, 10, 14, 15, 0, 0, 0, time.UTC), true),
		submitted(3, 90, time.Date(2026, 10, 14, 16, 0, 0, 0, time.UTC), true),
		submitted(4, 100, time.Date(2026, 10, 14, 17, 0, 0, 0, time.UTC), true),
	}

	st := ResultsStats(list, now, loc)
	assert.Equal(t, 4, st.TotalSubmitted)
	assert.Equal(t, 3, st.TotalPassed)
	assert.Equal(t, 3, st.SubmittedToday)
	assert.Equal(t, 3, st.PassedToday)
	assert.Equal(t, []ChartPoint{
		{Date: "2026-10-13", AverageScore: 40},
		{Date: "2026-10-14", AverageScore: 91.67},
	}, st.ChartData)

	utc := ResultsStats(list, now, time.UTC)
	require.Len(t, utc.ChartData, 1)
	assert.Equal(t, 78.75, utc.ChartData[0].AverageScore)
}

func TestRetryPolicy_CanRetry(t *testing.T) {
	p := RetryPolicy{Threshold: DefaultRetryThreshold}
	at := time.Now()

	assert.True(t, p.CanRetry(nil))
	assert.False(t, p.CanRetry(&Attempt{}), "open attempt must be resumed")

	cases := []struct {
		score int
		want  bool
	}{
		{0, true},
		{85, true},
		{89, true},
		{90, false},
		{95, false},
		{100, false},
	}
	for _, c := range cases {
		a := submitted(1, c.score, at, c.score >= DefaultPassThreshold)
		assert.Equal(t, c.want, p.CanRetry(&a), "score %d", c.score)
	}
}

func TestLatestSubmitted(t *testing.T) {
	at := time.Now()
	assert.Nil(t, latestSubmitted(nil))
	last := latestSubmitted([]Attempt{submitted(3, 10, at, false), submitted(1, 99, at, true), {AttemptNumber: 4}})
	require.NotNil(t, last)
	assert.Equal(t, 3, last.AttemptNumber)
}
