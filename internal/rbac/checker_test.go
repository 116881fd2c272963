package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecker_DefaultPolicy(t *testing.T) {
	c := NewChecker(nil)
	cases := []struct {
		role, perm string
		want       bool
	}{
		{"student", PermAttemptSubmit, true},
		{"student", PermQuizCreate, false},
		{"student", PermAttemptViewAll, false},
		{"teacher", PermQuizCreate, true},
		{"teacher", PermAttemptViewAll, true},
		{"admin", "anything:at-all", true},
		{"ghost", PermQuizView, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, c.Has(tc.role, tc.perm), "%s %s", tc.role, tc.perm)
	}
	assert.True(t, c.Any("student", PermQuizCreate, PermQuizView))
	assert.False(t, c.Any("student", PermQuizCreate, PermAttemptViewAll))
	assert.False(t, c.Any("student"))
}

func TestChecker_Wildcards(t *testing.T) {
	c := NewChecker(map[string][]string{
		"grader": {"attempt:*", "quiz:view"},
		"root":   {"*"},
	})
	cases := []struct {
		role, perm string
		want       bool
	}{
		{"grader", "attempt:view-all", true},
		{"grader", "attempt:", true},
		{"grader", "attempts:list", false},
		{"grader", "quiz:view", true},
		{"grader", "quiz:viewer", false},
		{"grader", "quiz:create", false},
		{"root", "anything", true},
		{"student", PermQuizView, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, c.Has(tc.role, tc.perm), "%q %s", tc.role, tc.perm)
	}
}

func TestRoleContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", RoleFromContext(ctx))
	assert.Equal(t, "teacher", RoleFromContext(WithRole(ctx, "teacher")))
}

func TestRequire(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := Require(PermQuizCreate)(ok)

	req := httptest.NewRequest(http.MethodPost, "/quizzes", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(WithRole(req.Context(), "student")))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(WithRole(req.Context(), "teacher")))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code, "no role")
}
