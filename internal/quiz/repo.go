package quiz

import "context"

// QuizStore is read-only to the attempt lifecycle; writes happen at authoring time.
type QuizStore interface {
	PutQuiz(ctx context.Context, q Quiz) error
	GetQuiz(ctx context.Context, id string) (Quiz, error)
	PutQuestion(ctx context.Context, q Question) error
	// GetQuestions returns questions in the order of ids; unknown ids are ErrNotFound.
	GetQuestions(ctx context.Context, ids []string) ([]Question, error)
}

// AttemptStore must itself guarantee at most one open attempt per
// (user, quiz): CreateAttempt fails with ErrConflict when one exists or the
// attempt number is taken. UpdateAnswers and FinalizeAttempt fail with
// ErrAlreadySubmitted once the attempt is locked.
type AttemptStore interface {
	CreateAttempt(ctx context.Context, a Attempt) (Attempt, error)
	FindOpenAttempt(ctx context.Context, userID, quizID string) (Attempt, bool, error)
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	UpdateAnswers(ctx context.Context, attemptID string, answers []QuestionAnswer) error
	FinalizeAttempt(ctx context.Context, attemptID string, f Finalization) (Attempt, error)
	ListSubmittedAttempts(ctx context.Context, userID, quizID string) ([]Attempt, error)
	ListUserSubmittedAttempts(ctx context.Context, userID string) ([]Attempt, error)
}

type Store interface {
	QuizStore
	AttemptStore
}
