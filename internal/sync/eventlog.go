package syncx

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

const TypeAttemptSubmitted = "AttemptSubmitted"

type Event struct {
	Seq       int64
	SiteID    string
	Type      string
	Key       string
	DataJSON  string
	CreatedAt int64
}

type EventRepo struct {
	db     *sql.DB
	driver db.Driver
	siteID string
}

func NewEventRepo(dbh *sql.DB, driver db.Driver, siteID string) *EventRepo {
	if siteID == "" {
		siteID = "local"
	}
	return &EventRepo{db: dbh, driver: driver, siteID: siteID}
}

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	if e.SiteID == "" {
		e.SiteID = r.siteID
	}
	_, err := r.db.ExecContext(ctx, db.Rebind(r.driver,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES (?,?,?,?,?)`),
		e.SiteID, e.Type, e.Key, e.DataJSON, time.Now().Unix())
	return err
}

// After returns up to limit events with Seq greater than seq, oldest first.
func (r *EventRepo) After(ctx context.Context, seq int64, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, db.Rebind(r.driver,
		`SELECT seq, site_id, typ, key, data, created_at FROM event_log WHERE seq > ? ORDER BY seq LIMIT ?`),
		seq, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Seq, &e.SiteID, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type submittedPayload struct {
	AttemptID     string    `json:"attempt_id"`
	QuizID        string    `json:"quiz_id"`
	UserID        string    `json:"user_id"`
	AttemptNumber int       `json:"attempt_number"`
	Score         int       `json:"score"`
	Passed        bool      `json:"passed"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// AttemptSubmitted implements quiz.EventSink.
func (r *EventRepo) AttemptSubmitted(ctx context.Context, a quiz.Attempt) error {
	p := submittedPayload{
		AttemptID:     a.ID,
		QuizID:        a.QuizID,
		UserID:        a.UserID,
		AttemptNumber: a.AttemptNumber,
		Score:         a.ScoreValue(),
		Passed:        a.PassedValue(),
	}
	if a.SubmittedAt != nil {
		p.SubmittedAt = *a.SubmittedAt
	}
	buf, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return r.Append(ctx, Event{Type: TypeAttemptSubmitted, Key: a.ID, DataJSON: string(buf)})
}

var _ quiz.EventSink = (*EventRepo)(nil)
