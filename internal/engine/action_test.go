package engine

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/tanguc/vobotty/internal/telemetry"

	"github.com/stretchr/testify/require"
)

type timeoutError struct{}

func (timeoutError) Error() string { return "i/o timeout" }
func (timeoutError) Timeout() bool { return true }
func (timeoutError) Temporary() bool { return true }

// authenticated returns a session that already went through login and
// verification, the action reply is the third one.
func authenticated(t *testing.T, website Website, action reply) (*AuthSession, *recordingTransport, *telemetry.Recorder) {
	t.Helper()

	transport := &recordingTransport{replies: []reply{
		ok("", "sid=abc; Path=/"),
		ok(memberMarker, "csrf=t1"),
		action,
	}}
	tel := &telemetry.Recorder{}
	session := NewAuthSession(NewAccount("u1", "p1-secret"), website, transport, tel)
	require.NoError(t, session.Login(context.Background()))
	require.NoError(t, session.Verify(context.Background()))
	return session, transport, tel
}

func TestPerformRequiresAuthenticated(t *testing.T) {
	testCases := []struct {
		name    string
		prepare func(s *AuthSession)
		state   StateKind
	}{
		{name: "unauthenticated", prepare: func(*AuthSession) {}, state: Unauthenticated},
		{
			name: "pending verification",
			prepare: func(s *AuthSession) {
				require.NoError(t, s.Login(context.Background()))
			},
			state: PendingVerification,
		},
		{
			name: "failed",
			prepare: func(s *AuthSession) {
				s.abandon(context.Canceled)
			},
			state: Failed,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			transport := &recordingTransport{replies: []reply{ok("", "sid=abc")}}
			session := NewAuthSession(NewAccount("u1", "p1"), newFakeWebsite(), transport, &telemetry.Recorder{})
			test.prepare(session)
			before := len(transport.Calls())

			result, err := NewActionExecutor(session, &telemetry.Recorder{}).Perform(context.Background())

			var perr *PreconditionError
			require.ErrorAs(t, err, &perr)
			require.Equal(t, test.state, perr.State)
			require.Equal(t, ActionResult{}, result)
			require.Len(t, transport.Calls(), before)
		})
	}
}

func TestPerformSuccess(t *testing.T) {
	for _, code := range []int{200, 201, 204, 299} {
		session, transport, tel := authenticated(t, newFakeWebsite(), status(code, ""))

		result, err := NewActionExecutor(session, tel).Perform(context.Background())
		require.NoError(t, err)
		require.True(t, result.Succeeded())
		require.Equal(t, ActionResult{Outcome: Success}, result)

		calls := transport.Calls()
		require.Len(t, calls, 3)
		require.Equal(t, http.MethodPost, calls[2].Method)
		require.Equal(t, "https://bot.example.com/vote", calls[2].URL.String())
		require.Equal(t, "vote", calls[2].Query.Get("action"))
		require.Equal(t, "sid=abc; csrf=t1", calls[2].Cookie)
		require.Nil(t, calls[2].Form)
	}
}

func TestPerformRejectedStatus(t *testing.T) {
	testCases := []struct {
		code   int
		reason string
	}{
		{code: 302, reason: "302"},
		{code: 400, reason: "400"},
		{code: 409, reason: "409"},
		{code: 429, reason: "429"},
		{code: 500, reason: "500"},
	}

	for _, test := range testCases {
		session, _, tel := authenticated(t, newFakeWebsite(), status(test.code, "<p>try later</p>"))

		result, err := NewActionExecutor(session, tel).Perform(context.Background())
		require.NoError(t, err)
		require.Equal(t, Failure, result.Outcome)
		require.Equal(t, test.reason, result.Reason)

		var berr *BusinessError
		require.ErrorAs(t, result.Err, &berr)
		require.Equal(t, test.code, berr.Status)
		require.False(t, berr.AlreadyActed)
		require.Empty(t, berr.Notice)
	}
}

func TestPerformAlreadyActed(t *testing.T) {
	website := newFakeWebsite()
	website.noticeContains = "come back in 3 hours"
	session, _, tel := authenticated(t, website, status(409, "already voted, come back in 3 hours"))

	result, err := NewActionExecutor(session, tel).Perform(context.Background())
	require.NoError(t, err)
	require.Equal(t, Failure, result.Outcome)
	require.Equal(t, "already-acted", result.Reason)

	var berr *BusinessError
	require.ErrorAs(t, result.Err, &berr)
	require.True(t, berr.AlreadyActed)
	require.Equal(t, "come back in 3 hours", berr.Notice)
	require.Contains(t, berr.Error(), "come back in 3 hours")
}

func TestPerformAlreadyActedMarkerIgnoredOnSuccess(t *testing.T) {
	session, _, tel := authenticated(t, newFakeWebsite(), ok("thanks, already voted today"))

	result, err := NewActionExecutor(session, tel).Perform(context.Background())
	require.NoError(t, err)
	require.Equal(t, ActionResult{Outcome: Success}, result)
}

func TestPerformTransportFailures(t *testing.T) {
	testCases := []struct {
		name    string
		err     error
		reason  string
		timeout bool
	}{
		{name: "deadline", err: context.DeadlineExceeded, reason: "timeout", timeout: true},
		{name: "net timeout", err: timeoutError{}, reason: "timeout", timeout: true},
		{name: "refused", err: errors.New("dial tcp: connection refused"), reason: "dial tcp: connection refused"},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			session, _, tel := authenticated(t, newFakeWebsite(), failed(test.err))

			result, err := NewActionExecutor(session, tel).Perform(context.Background())
			require.NoError(t, err)
			require.Equal(t, Failure, result.Outcome)
			require.Equal(t, test.reason, result.Reason)

			var terr *TransportError
			require.ErrorAs(t, result.Err, &terr)
			require.Equal(t, test.timeout, terr.Timeout)
			require.ErrorIs(t, result.Err, test.err)
		})
	}
}

func TestPerformReportsOutcome(t *testing.T) {
	session, _, tel := authenticated(t, newFakeWebsite(), status(409, ""))

	_, err := NewActionExecutor(session, tel).Perform(context.Background())
	require.NoError(t, err)

	require.Contains(t, tel.IDs(telemetry.LevelWarning), "engine:action-executor.perform")
	require.True(t, tel.Contains("409"))
	require.False(t, tel.Contains("p1-secret"))
}
