package engine

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tanguc/vobotty/internal/assert"
	"github.com/tanguc/vobotty/internal/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("vobotty/engine")

const (
	report_auth_session_login  = "auth-session.login"
	report_auth_session_verify = "auth-session.verify"
)

type StateKind int

const (
	Unauthenticated StateKind = iota
	PendingVerification
	Authenticated
	Failed
)

func (k StateKind) String() string {
	switch k {
	case Unauthenticated:
		return "unauthenticated"
	case PendingVerification:
		return "pending-verification"
	case Authenticated:
		return "authenticated"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(k))
}

// SessionState is the state of an AuthSession, Reason is only set when Kind
// is Failed.
type SessionState struct {
	Kind   StateKind
	Reason error
}

func (s SessionState) String() string {
	if s.Kind == Failed && s.Reason != nil {
		return fmt.Sprintf("failed(%s)", s.Reason)
	}
	return s.Kind.String()
}

// AuthSession logs one account in and confirms the login worked.
//
// Unauthenticated -Login-> PendingVerification -Verify-> Authenticated, any
// failure moves to Failed. Authenticated and Failed are final: logging in again
// takes a new AuthSession.
type AuthSession struct {
	account   Account
	website   Website
	transport Transport
	jar       *CookieJar
	state     SessionState
	tel       telemetry.API
}

func NewAuthSession(account Account, website Website, transport Transport, tel telemetry.API) *AuthSession {
	assert.NotNil(website)
	assert.NotNil(transport)
	assert.NotNil(tel)

	return &AuthSession{
		account:   account,
		website:   website,
		transport: transport,
		jar:       NewCookieJar(),
		state:     SessionState{Kind: Unauthenticated},
		tel:       telemetry.NewScopedAPI("engine", tel),
	}
}

func (s *AuthSession) State() SessionState {
	return s.state
}

func (s *AuthSession) Account() Account {
	return s.account
}

func (s *AuthSession) transition(id string, kind StateKind, params ...any) {
	from := s.state.Kind
	s.state = SessionState{Kind: kind}
	s.tel.ReportInfo(id, append([]any{s.account.Identifier(), fmt.Sprintf("%s -> %s", from, kind)}, params...)...)
}

func (s *AuthSession) fail(span trace.Span, id string, err error) error {
	from := s.state.Kind
	s.state = SessionState{Kind: Failed, Reason: err}
	s.tel.ReportWarning(id, s.account.Identifier(), fmt.Sprintf("%s -> %s", from, Failed), err)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// abandon drops everything the session captured, used when the caller gives
// up on the session halfway.
func (s *AuthSession) abandon(reason error) {
	s.jar = NewCookieJar()
	if s.state.Kind == Failed {
		return
	}
	s.state = SessionState{Kind: Failed, Reason: reason}
}

func (s *AuthSession) endpoint(path string) (Request, error) {
	u, err := s.website.Descriptor().Resolve(path)
	if err != nil {
		return Request{}, err
	}
	return Request{URL: u}, nil
}

// Login submits the account credentials. Only the status class of the answer
// is trusted here, 2xx and 3xx move on to verification.
func (s *AuthSession) Login(ctx context.Context) error {
	if s.state.Kind != Unauthenticated {
		return &PreconditionError{Op: "login", State: s.state.Kind}
	}

	ctx, span := tracer.Start(ctx, "auth-session:Login", trace.WithAttributes(
		attribute.String("website", s.website.Name()),
		attribute.String("account", s.account.Identifier()),
	))
	defer span.End()

	req, err := s.endpoint(s.website.Descriptor().LoginPath)
	if err != nil {
		return s.fail(span, report_auth_session_login, err)
	}
	req.Method = http.MethodPost
	req.Form = s.website.LoginForm(s.account)

	res, err := s.transport.Do(ctx, req)
	if err != nil {
		return s.fail(span, report_auth_session_login, &AuthenticationError{
			Err: newTransportError("login", err),
		})
	}
	span.SetAttributes(attribute.Int("status", res.StatusCode))

	if res.StatusCode < 200 || res.StatusCode >= 400 {
		return s.fail(span, report_auth_session_login, &AuthenticationError{Status: res.StatusCode})
	}

	s.jar.Capture(res.Header)
	s.transition(
		report_auth_session_login, PendingVerification,
		fmt.Sprintf("status %d", res.StatusCode),
		fmt.Sprintf("%d cookies", s.jar.Len()),
	)
	return nil
}

// Verify loads the verification page with the session cookies and looks for
// the membership marker.
func (s *AuthSession) Verify(ctx context.Context) error {
	if s.state.Kind != PendingVerification {
		return &PreconditionError{Op: "verify", State: s.state.Kind}
	}

	ctx, span := tracer.Start(ctx, "auth-session:Verify", trace.WithAttributes(
		attribute.String("website", s.website.Name()),
		attribute.String("account", s.account.Identifier()),
	))
	defer span.End()

	req, err := s.endpoint(s.website.Descriptor().VerifyPath)
	if err != nil {
		return s.fail(span, report_auth_session_verify, err)
	}
	req.Method = http.MethodGet
	req.Cookie = s.jar.Render()

	res, err := s.transport.Do(ctx, req)
	if err != nil {
		return s.fail(span, report_auth_session_verify, &ProtocolError{
			Reason: reasonNotConnected,
			Err:    newTransportError("verify", err),
		})
	}
	span.SetAttributes(attribute.Int("status", res.StatusCode))
	s.jar.Capture(res.Header)

	if res.StatusCode >= 400 {
		return s.fail(span, report_auth_session_verify, &ProtocolError{
			Reason: reasonNotConnected,
			Status: res.StatusCode,
		})
	}
	if !s.website.IsMember(res.Body) {
		return s.fail(span, report_auth_session_verify, &ProtocolError{
			Reason: reasonNotConnected,
		})
	}

	s.transition(report_auth_session_verify, Authenticated, "membership marker found")
	return nil
}
