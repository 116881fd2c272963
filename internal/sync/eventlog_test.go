package syncx

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

func TestEventRepo_AttemptSubmitted(t *testing.T) {
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, "file:eventlogtest?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbh.Close() })

	repo := NewEventRepo(dbh, db.DriverSQLite, "")
	at := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	score, passed := 85, true
	require.NoError(t, repo.AttemptSubmitted(ctx, quiz.Attempt{
		ID: "a1", QuizID: "z1", UserID: "u1", AttemptNumber: 2,
		SubmittedAt: &at, Score: &score, Passed: &passed,
	}))
	require.NoError(t, repo.Append(ctx, Event{SiteID: "edge", Type: "Custom", Key: "k", DataJSON: "{}"}))

	events, err := repo.After(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, TypeAttemptSubmitted, events[0].Type)
	assert.Equal(t, "a1", events[0].Key)
	assert.Equal(t, "local", events[0].SiteID)
	assert.Equal(t, "edge", events[1].SiteID)
	assert.Less(t, events[0].Seq, events[1].Seq)

	var p submittedPayload
	require.NoError(t, json.Unmarshal([]byte(events[0].DataJSON), &p))
	assert.Equal(t, 85, p.Score)
	assert.True(t, p.Passed)
	assert.True(t, p.SubmittedAt.Equal(at))

	rest, err := repo.After(ctx, events[0].Seq, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "Custom", rest[0].Type)
}
