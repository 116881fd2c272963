package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-quiz/internal/db"
)

type SQLStore struct {
	db     *sql.DB
	driver db.Driver
}

func NewSQLStore(dbh *sql.DB, driver db.Driver) *SQLStore {
	return &SQLStore{db: dbh, driver: driver}
}

func (s *SQLStore) q(query string) string { return db.Rebind(s.driver, query) }

func (s *SQLStore) PutQuiz(ctx context.Context, qz Quiz) error {
	ids, err := json.Marshal(qz.QuestionIDs)
	if err != nil {
		return err
	}
	settings, err := json.Marshal(qz.Settings)
	if err != nil {
		return err
	}
	var pass sql.NullInt64
	if qz.PassScore != nil {
		pass = sql.NullInt64{Int64: int64(*qz.PassScore), Valid: true}
	}
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO quizzes (id,title,question_ids_json,visibility,settings_json,pass_score,created_at)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, question_ids_json=EXCLUDED.question_ids_json,
		  visibility=EXCLUDED.visibility, settings_json=EXCLUDED.settings_json, pass_score=EXCLUDED.pass_score`),
		qz.ID, qz.Title, string(ids), string(qz.Visibility), string(settings), pass, qz.CreatedAt)
	return err
}

func (s *SQLStore) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT id,title,question_ids_json,visibility,settings_json,pass_score,created_at
		FROM quizzes WHERE id=?`), id)
	var (
		qz            Quiz
		ids, settings string
		visibility    string
		pass          sql.NullInt64
	)
	if err := row.Scan(&qz.ID, &qz.Title, &ids, &visibility, &settings, &pass, &qz.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quiz{}, notFound("quiz", id)
		}
		return Quiz{}, err
	}
	qz.Visibility = Visibility(visibility)
	if err := json.Unmarshal([]byte(ids), &qz.QuestionIDs); err != nil {
		return Quiz{}, fmt.Errorf("quiz %s: question ids: %w", id, err)
	}
	if err := json.Unmarshal([]byte(settings), &qz.Settings); err != nil {
		return Quiz{}, fmt.Errorf("quiz %s: settings: %w", id, err)
	}
	if pass.Valid {
		p := int(pass.Int64)
		qz.PassScore = &p
	}
	return qz, nil
}

func (s *SQLStore) PutQuestion(ctx context.Context, q Question) error {
	gaps, err := json.Marshal(q.Gaps)
	if err != nil {
		return fmt.Errorf("question %s: gaps: %w", q.ID, err)
	}
	dropdowns, err := json.Marshal(q.Dropdowns)
	if err != nil {
		return fmt.Errorf("question %s: dropdowns: %w", q.ID, err)
	}
	hints, err := json.Marshal(q.Hints)
	if err != nil {
		return fmt.Errorf("question %s: hints: %w", q.ID, err)
	}
	schema, err := json.Marshal(q.Schema)
	if err != nil {
		return fmt.Errorf("question %s: schema: %w", q.ID, err)
	}
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO questions (id,kind,content,gaps_json,dropdowns_json,hints_json,schema_json,updated_at)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT (id) DO UPDATE SET kind=EXCLUDED.kind, content=EXCLUDED.content, gaps_json=EXCLUDED.gaps_json,
		  dropdowns_json=EXCLUDED.dropdowns_json, hints_json=EXCLUDED.hints_json, schema_json=EXCLUDED.schema_json,
		  updated_at=EXCLUDED.updated_at`),
		q.ID, string(q.Kind), q.Content, string(gaps), string(dropdowns), string(hints), string(schema), time.Now().Unix())
	return err
}

func (s *SQLStore) GetQuestions(ctx context.Context, ids []string) ([]Question, error) {
	out := make([]Question, 0, len(ids))
	for _, id := range ids {
		row := s.db.QueryRowContext(ctx, s.q(`SELECT id,kind,content,gaps_json,dropdowns_json,hints_json,schema_json
			FROM questions WHERE id=?`), id)
		var (
			q                                Question
			kind, gaps, dropdowns, hints, sc string
		)
		if err := row.Scan(&q.ID, &kind, &q.Content, &gaps, &dropdowns, &hints, &sc); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, notFound("question", id)
			}
			return nil, err
		}
		q.Kind = QuestionKind(kind)
		for _, f := range []struct {
			raw string
			dst interface{}
		}{{gaps, &q.Gaps}, {dropdowns, &q.Dropdowns}, {hints, &q.Hints}, {sc, &q.Schema}} {
			if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
				return nil, fmt.Errorf("question %s: %w", id, err)
			}
		}
		out = append(out, q)
	}
	return out, nil
}

func (s *SQLStore) CreateAttempt(ctx context.Context, a Attempt) (Attempt, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Answers == nil {
		a.Answers = []QuestionAnswer{}
	}
	answers, err := json.Marshal(a.Answers)
	if err != nil {
		return Attempt{}, err
	}
	err = db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var exist int
		if err := tx.QueryRowContext(ctx, s.q(`SELECT 1 FROM quizzes WHERE id=?`), a.QuizID).Scan(&exist); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return notFound("quiz", a.QuizID)
			}
			return err
		}
		_, err := tx.ExecContext(ctx, s.q(`INSERT INTO attempts (id,quiz_id,user_id,attempt_number,answers_json,started_at)
			VALUES (?,?,?,?,?,?)`),
			a.ID, a.QuizID, a.UserID, a.AttemptNumber, string(answers), a.StartedAt.UnixMilli())
		if db.IsUniqueViolation(err) {
			return ErrConflict
		}
		return err
	})
	if err != nil {
		return Attempt{}, err
	}
	return s.GetAttempt(ctx, a.ID)
}

func (s *SQLStore) FindOpenAttempt(ctx context.Context, userID, quizID string) (Attempt, bool, error) {
	list, err := s.queryAttempts(ctx, `WHERE user_id=? AND quiz_id=? AND submitted_at IS NULL`, userID, quizID)
	if err != nil {
		return Attempt{}, false, err
	}
	if len(list) == 0 {
		return Attempt{}, false, nil
	}
	return list[0], true, nil
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	list, err := s.queryAttempts(ctx, `WHERE id=?`, id)
	if err != nil {
		return Attempt{}, err
	}
	if len(list) == 0 {
		return Attempt{}, notFound("attempt", id)
	}
	return list[0], nil
}

func (s *SQLStore) UpdateAnswers(ctx context.Context, attemptID string, answers []QuestionAnswer) error {
	if answers == nil {
		answers = []QuestionAnswer{}
	}
	buf, err := json.Marshal(answers)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE attempts SET answers_json=? WHERE id=? AND submitted_at IS NULL`),
		string(buf), attemptID)
	if err != nil {
		return err
	}
	return s.lockedOrMissing(ctx, res, attemptID)
}

func (s *SQLStore) FinalizeAttempt(ctx context.Context, attemptID string, f Finalization) (Attempt, error) {
	answers, err := json.Marshal(f.Answers)
	if err != nil {
		return Attempt{}, err
	}
	keys, err := json.Marshal(f.CorrectAnswers)
	if err != nil {
		return Attempt{}, err
	}
	results, err := json.Marshal(f.Results)
	if err != nil {
		return Attempt{}, err
	}
	// the submitted_at guard makes this a compare-and-set
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE attempts
		SET answers_json=?, score=?, passed=?, correct_answers_json=?, results_json=?, submitted_at=?
		WHERE id=? AND submitted_at IS NULL`),
		string(answers), f.Score, f.Passed, string(keys), string(results), f.SubmittedAt.UnixMilli(), attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if err := s.lockedOrMissing(ctx, res, attemptID); err != nil {
		return Attempt{}, err
	}
	return s.GetAttempt(ctx, attemptID)
}

// lockedOrMissing turns a zero-row conditional update into the right error.
func (s *SQLStore) lockedOrMissing(ctx context.Context, res sql.Result, attemptID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := s.GetAttempt(ctx, attemptID); err != nil {
		return err
	}
	return ErrAlreadySubmitted
}

func (s *SQLStore) ListSubmittedAttempts(ctx context.Context, userID, quizID string) ([]Attempt, error) {
	return s.queryAttempts(ctx, `WHERE user_id=? AND quiz_id=? AND submitted_at IS NOT NULL ORDER BY attempt_number`, userID, quizID)
}

func (s *SQLStore) ListUserSubmittedAttempts(ctx context.Context, userID string) ([]Attempt, error) {
	return s.queryAttempts(ctx, `WHERE user_id=? AND submitted_at IS NOT NULL ORDER BY quiz_id, attempt_number`, userID)
}

func (s *SQLStore) queryAttempts(ctx context.Context, where string, args ...interface{}) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT id,quiz_id,user_id,attempt_number,answers_json,started_at,
		submitted_at,score,passed,correct_answers_json,results_json FROM attempts `+where), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Attempt{}
	for rows.Next() {
		var (
			a             Attempt
			answers       string
			started       int64
			submitted     sql.NullInt64
			score         sql.NullInt64
			passed        sql.NullBool
			keys, results sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.QuizID, &a.UserID, &a.AttemptNumber, &answers, &started,
			&submitted, &score, &passed, &keys, &results); err != nil {
			return nil, err
		}
		a.StartedAt = time.UnixMilli(started).UTC()
		if err := json.Unmarshal([]byte(answers), &a.Answers); err != nil {
			return nil, fmt.Errorf("attempt %s: answers: %w", a.ID, err)
		}
		if submitted.Valid {
			t := time.UnixMilli(submitted.Int64).UTC()
			a.SubmittedAt = &t
		}
		if score.Valid {
			v := int(score.Int64)
			a.Score = &v
		}
		if passed.Valid {
			v := passed.Bool
			a.Passed = &v
		}
		if keys.Valid {
			if err := json.Unmarshal([]byte(keys.String), &a.CorrectAnswers); err != nil {
				return nil, fmt.Errorf("attempt %s: correct answers: %w", a.ID, err)
			}
		}
		if results.Valid {
			if err := json.Unmarshal([]byte(results.String), &a.Results); err != nil {
				return nil, fmt.Errorf("attempt %s: results: %w", a.ID, err)
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
