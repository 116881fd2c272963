package quiz

import (
	"math"
	"sort"
	"time"
)

// BestAttempt picks the highest-scoring submitted attempt. Ties go to the
// later submission, then to the higher attempt number.
func BestAttempt(list []Attempt) (Attempt, bool) {
	var best *Attempt
	for i := range list {
		a := &list[i]
		if !a.Submitted() {
			continue
		}
		if best == nil || better(a, best) {
			best = a
		}
	}
	if best == nil {
		return Attempt{}, false
	}
	return *best, true
}

func better(a, b *Attempt) bool {
	if a.ScoreValue() != b.ScoreValue() {
		return a.ScoreValue() > b.ScoreValue()
	}
	if !a.SubmittedAt.Equal(*b.SubmittedAt) {
		return a.SubmittedAt.After(*b.SubmittedAt)
	}
	return a.AttemptNumber > b.AttemptNumber
}

type ChartPoint struct {
	Date         string  `json:"date"` // YYYY-MM-DD in the reporting timezone
	AverageScore float64 `json:"average_score"`
}

type Stats struct {
	TotalSubmitted int          `json:"total_submitted"`
	TotalPassed    int          `json:"total_passed"`
	SubmittedToday int          `json:"submitted_today"`
	PassedToday    int          `json:"passed_today"`
	ChartData      []ChartPoint `json:"chart_data"`
}

// ResultsStats rolls submitted attempts up into totals, today's counts and a
// per-day average score series. Days without submissions are omitted.
func ResultsStats(list []Attempt, now time.Time, loc *time.Location) Stats {
	if loc == nil {
		loc = time.UTC
	}
	today := now.In(loc).Format(time.DateOnly)

	type bucket struct{ sum, n int }
	days := map[string]*bucket{}
	st := Stats{ChartData: []ChartPoint{}}
	for _, a := range list {
		if !a.Submitted() {
			continue
		}
		day := a.SubmittedAt.In(loc).Format(time.DateOnly)
		st.TotalSubmitted++
		if a.PassedValue() {
			st.TotalPassed++
		}
		if day == today {
			st.SubmittedToday++
			if a.PassedValue() {
				st.PassedToday++
			}
		}
		b, ok := days[day]
		if !ok {
			b = &bucket{}
			days[day] = b
		}
		b.sum += a.ScoreValue()
		b.n++
	}
	for day, b := range days {
		avg := float64(b.sum) / float64(b.n)
		st.ChartData = append(st.ChartData, ChartPoint{Date: day, AverageScore: math.Round(avg*100) / 100})
	}
	// DateOnly strings sort chronologically.
	sort.Slice(st.ChartData, func(i, j int) bool { return st.ChartData[i].Date < st.ChartData[j].Date })
	return st
}
