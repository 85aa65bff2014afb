package docstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryKey_Deterministic(t *testing.T) {
	assert.Equal(t, "modules-100", Query{Collection: "modules", Limit: 100}.Key())

	a := Query{Collection: "attendance"}.Where("traineeId", "u1").Where("module", "m2").WithLimit(100)
	b := Query{Collection: "attendance"}.Where("module", "m2").Where("traineeId", "u1").WithLimit(100)
	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, "attendance-module=m2-traineeId=u1-100", a.Key())

	c := a.WithLimit(50)
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestQueryWhere_SkipsEmptyAndDoesNotAlias(t *testing.T) {
	base := Query{Collection: "grades"}.Where("traineeId", "u1")
	withEmpty := base.Where("assessmentId", "  ")
	assert.Len(t, withEmpty.Filters, 1)

	x := base.Where("assessmentId", "a1")
	y := base.Where("assessmentId", "a2")
	require.Len(t, x.Filters, 2)
	require.Len(t, y.Filters, 2)
	assert.Equal(t, "a1", x.Filters[1].Value)
	assert.Equal(t, "a2", y.Filters[1].Value)
}

func TestQueryValidate(t *testing.T) {
	assert.NoError(t, Query{Collection: "modules", Limit: 10}.Validate())

	err := Query{}.Validate()
	require.Error(t, err)
	assert.Equal(t, CodeInvalidArgument, CodeOf(err))

	err = Query{Collection: "x", Limit: -1}.Validate()
	assert.Equal(t, CodeInvalidArgument, CodeOf(err))
}

func TestQueryMatches(t *testing.T) {
	q := Query{Collection: "messages"}.Where("recipientId", "u1")
	assert.True(t, q.Matches(map[string]any{"recipientId": "u1", "body": "hi"}))
	assert.False(t, q.Matches(map[string]any{"recipientId": "u2"}))
	assert.False(t, q.Matches(map[string]any{"body": "hi"}))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"permission denied", &Error{Code: CodePermissionDenied}, Permanent},
		{"failed precondition", &Error{Code: CodeFailedPrecondition, Message: "requires an index"}, Permanent},
		{"invalid argument", &Error{Code: CodeInvalidArgument}, Permanent},
		{"unavailable", &Error{Code: CodeUnavailable}, Permanent},
		{"deadline", &Error{Code: CodeDeadlineExceeded}, Transient},
		{"aborted", &Error{Code: CodeAborted}, Transient},
		{"wrapped permanent", fmt.Errorf("listen: %w", &Error{Code: CodePermissionDenied}), Permanent},
		{"permission mentioning timeout", &Error{Code: CodePermissionDenied, Message: "timeout while checking rules"}, Permanent},
		{"deadline mentioning bad request", &Error{Code: CodeDeadlineExceeded, Message: "bad request queue full"}, Transient},
		{"untagged transport failure", errors.New("WebChannelConnection RPC 'Listen' stream transport errored"), Permanent},
		{"untagged bad request", errors.New("server said 400 Bad Request"), Permanent},
		{"untagged blip", errors.New("connection reset by peer"), Transient},
		{"context deadline", context.DeadlineExceeded, Transient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("get user: %w", Errorf(CodeNotFound, "users/%s", "u1"))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, &Error{Code: CodePermissionDenied}))
	assert.Equal(t, "not-found: users/u1", errors.Unwrap(err).Error())
}

func TestParseCode(t *testing.T) {
	assert.Equal(t, CodePermissionDenied, ParseCode(" Permission-Denied "))
	assert.Equal(t, CodeUnknown, ParseCode("weird"))
}

func TestOnceHandle(t *testing.T) {
	calls := 0
	h := OnceHandle(func() { calls++ })
	h.Cancel()
	h.Cancel()
	assert.Equal(t, 1, calls)
}

func TestToTime(t *testing.T) {
	ref := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	got, ok := ToTime(ref)
	assert.True(t, ok)
	assert.True(t, got.Equal(ref))

	got, ok = ToTime(float64(ref.UnixMilli()))
	assert.True(t, ok)
	assert.True(t, got.Equal(ref))

	got, ok = ToTime("2024-05-01T12:00:00Z")
	assert.True(t, ok)
	assert.True(t, got.Equal(ref))

	_, ok = ToTime(nil)
	assert.False(t, ok)
	_, ok = ToTime("not a time")
	assert.False(t, ok)
}
