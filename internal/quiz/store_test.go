package quiz

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-quiz/internal/db"
)

var sqliteSeq atomic.Int64

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	dsn := fmt.Sprintf("file:quiztest%d?mode=memory&cache=shared", sqliteSeq.Add(1))
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbh.Close() })
	return NewSQLStore(dbh, db.DriverSQLite)
}

func eachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewInMemoryStore()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLiteStore(t)) })
}

func seedQuiz(t *testing.T, s Store) Quiz {
	t.Helper()
	ctx := context.Background()
	q, err := PrepareQuestion(Question{
		ID:        "q1",
		Content:   `<span class="cloze">Paris</span> <span class="cloze-dropdown"><span class="cloze">is</span></span>`,
		Gaps:      []Gap{{Answers: []string{"Paris"}}},
		Dropdowns: []Dropdown{{Options: []string{"is", "are"}, Correct: "is"}},
	})
	require.NoError(t, err)
	require.NoError(t, s.PutQuestion(ctx, q))
	pass := 70
	qz := Quiz{ID: "z1", Title: "T", QuestionIDs: []string{"q1"}, Visibility: VisibilityJustMe, PassScore: &pass, CreatedAt: 1}
	require.NoError(t, s.PutQuiz(ctx, qz))
	return qz
}

func TestStore_QuizRoundTrip(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		want := seedQuiz(t, s)

		got, err := s.GetQuiz(ctx, "z1")
		require.NoError(t, err)
		assert.Equal(t, want, got)

		qs, err := s.GetQuestions(ctx, []string{"q1"})
		require.NoError(t, err)
		require.Len(t, qs, 1)
		require.Len(t, qs[0].Schema, 2)
		assert.Equal(t, []string{"is"}, qs[0].Schema[1].Acceptable)

		_, err = s.GetQuiz(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetQuestions(ctx, []string{"q1", "nope"})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_AttemptLifecycle(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedQuiz(t, s)
		started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

		a, err := s.CreateAttempt(ctx, Attempt{QuizID: "z1", UserID: "u", AttemptNumber: 1, StartedAt: started})
		require.NoError(t, err)
		assert.NotEmpty(t, a.ID)
		assert.False(t, a.Submitted())

		_, err = s.CreateAttempt(ctx, Attempt{QuizID: "z1", UserID: "u", AttemptNumber: 2, StartedAt: started})
		assert.ErrorIs(t, err, ErrConflict, "one open attempt per pair")

		_, err = s.CreateAttempt(ctx, Attempt{QuizID: "missing", UserID: "u", AttemptNumber: 1, StartedAt: started})
		assert.ErrorIs(t, err, ErrNotFound)

		open, ok, err := s.FindOpenAttempt(ctx, "u", "z1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, a.ID, open.ID)
		assert.True(t, open.StartedAt.Equal(started))

		answers := []QuestionAnswer{{QuestionID: "q1", Parts: []Part{{Position: 0, Value: "paris"}}}}
		require.NoError(t, s.UpdateAnswers(ctx, a.ID, answers))

		at := started.Add(time.Minute)
		done, err := s.FinalizeAttempt(ctx, a.ID, Finalization{
			Answers: answers, Score: 50, Passed: false, SubmittedAt: at,
		})
		require.NoError(t, err)
		assert.Equal(t, 50, done.ScoreValue())
		assert.True(t, done.SubmittedAt.Equal(at))
		assert.Equal(t, "paris", done.Answers[0].Parts[0].Value)

		_, err = s.FinalizeAttempt(ctx, a.ID, Finalization{Score: 100, SubmittedAt: at})
		assert.ErrorIs(t, err, ErrAlreadySubmitted)
		assert.ErrorIs(t, s.UpdateAnswers(ctx, a.ID, nil), ErrAlreadySubmitted)
		assert.ErrorIs(t, s.UpdateAnswers(ctx, "ghost", nil), ErrNotFound)

		again, err := s.GetAttempt(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, 50, again.ScoreValue())

		_, ok, err = s.FindOpenAttempt(ctx, "u", "z1")
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = s.CreateAttempt(ctx, Attempt{QuizID: "z1", UserID: "u", AttemptNumber: 1, StartedAt: started})
		assert.ErrorIs(t, err, ErrConflict, "attempt numbers are unique")

		second, err := s.CreateAttempt(ctx, Attempt{QuizID: "z1", UserID: "u", AttemptNumber: 2, StartedAt: started})
		require.NoError(t, err)
		_, err = s.FinalizeAttempt(ctx, second.ID, Finalization{Score: 80, Passed: true, SubmittedAt: at.Add(time.Minute)})
		require.NoError(t, err)

		list, err := s.ListSubmittedAttempts(ctx, "u", "z1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, []int{1, 2}, []int{list[0].AttemptNumber, list[1].AttemptNumber})

		all, err := s.ListUserSubmittedAttempts(ctx, "u")
		require.NoError(t, err)
		assert.Len(t, all, 2)

		none, err := s.ListUserSubmittedAttempts(ctx, "other")
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestService_OnSQLiteStore(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newSQLiteStore(t))
	_, err := svc.AuthorQuiz(ctx, Quiz{ID: "geo", Title: "Capitals"}, []Question{
		{ID: "g1", Content: `<span class="cloze">?</span>`, Gaps: []Gap{{Answers: []string{"Paris"}}}},
	})
	require.NoError(t, err)

	st, err := svc.Start(ctx, "geo", "u1")
	require.NoError(t, err)
	sub, err := svc.Submit(ctx, st.Attempt.ID, "u1", []QuestionAnswer{{QuestionID: "g1", Parts: []Part{{Value: "PARIS"}}}})
	require.NoError(t, err)
	assert.Equal(t, 100, sub.Score)

	redo, err := svc.Submit(ctx, st.Attempt.ID, "u1", []QuestionAnswer{{QuestionID: "g1", Parts: []Part{{Value: "lyon"}}}})
	require.NoError(t, err)
	assert.True(t, redo.Redirected)
	assert.Equal(t, 2, redo.Attempt.AttemptNumber)
	assert.Equal(t, 0, redo.Score)

	best, ok, err := svc.BestAttempt(ctx, "u1", "geo")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, st.Attempt.ID, best.ID)
}

func TestSQLStore_CorruptAnswersSurface(t *testing.T) {
	s := newSQLiteStore(t).(*SQLStore)
	ctx := context.Background()
	seedQuiz(t, s)
	a, err := s.CreateAttempt(ctx, Attempt{QuizID: "z1", UserID: "u", AttemptNumber: 1, StartedAt: time.Now()})
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx, s.q(`UPDATE attempts SET answers_json=? WHERE id=?`), "not json", a.ID)
	require.NoError(t, err)

	cases := []struct {
		name string
		read func() error
	}{
		{"get", func() error { _, err := s.GetAttempt(ctx, a.ID); return err }},
		{"find open", func() error { _, _, err := s.FindOpenAttempt(ctx, "u", "z1"); return err }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.read()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "answers")
			assert.NotErrorIs(t, err, ErrNotFound)
		})
	}
}
