package quiz

const (
	DefaultPassThreshold  = 80
	DefaultRetryThreshold = 90
)

// RetryPolicy gates starting a fresh attempt after a submission. Its
// threshold is independent of the pass threshold.
type RetryPolicy struct {
	Threshold int
}

// CanRetry reports whether a new attempt may be started given the most
// recent attempt. No attempt at all means the quiz is open; an attempt still
// in progress must be resumed instead.
func (p RetryPolicy) CanRetry(last *Attempt) bool {
	if last == nil {
		return true
	}
	if !last.Submitted() {
		return false
	}
	return last.ScoreValue() < p.Threshold
}

// RetryStatus is what a client needs to decide between "retry" and "view only".
type RetryStatus struct {
	CanRetry      bool   `json:"can_retry"`
	Threshold     int    `json:"threshold"`
	HasOpen       bool   `json:"has_open_attempt"`
	OpenAttemptID string `json:"open_attempt_id,omitempty"`
	LastScore     *int   `json:"last_score,omitempty"`
}

// latestSubmitted picks the attempt with the highest attempt number.
func latestSubmitted(list []Attempt) *Attempt {
	var last *Attempt
	for i := range list {
		if !list[i].Submitted() {
			continue
		}
		if last == nil || list[i].AttemptNumber > last.AttemptNumber {
			last = &list[i]
		}
	}
	return last
}
