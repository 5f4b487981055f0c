package engine

import (
	"context"
	"net/http"
	"strconv"

	"github.com/tanguc/vobotty/internal/assert"
	"github.com/tanguc/vobotty/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const report_action_executor_perform = "action-executor.perform"

const reasonAlreadyActed = "already-acted"

type Outcome string

const (
	Success Outcome = "success"
	Failure Outcome = "failure"
)

// ActionResult is the outcome of one action attempt. Reason is empty on
// success, otherwise the status code, "timeout", "already-acted" or the
// transport error text.
type ActionResult struct {
	Outcome Outcome
	Reason  string
	Err     error
}

func (r ActionResult) Succeeded() bool {
	return r.Outcome == Success
}

// ActionExecutor performs the site action on an authenticated session,
// reusing its cookie jar and transport.
type ActionExecutor struct {
	session *AuthSession
	tel     telemetry.API
}

func NewActionExecutor(session *AuthSession, tel telemetry.API) *ActionExecutor {
	assert.NotNil(session)
	assert.NotNil(tel)
	return &ActionExecutor{
		session: session,
		tel:     telemetry.NewScopedAPI("engine", tel),
	}
}

// Perform sends exactly one action request. The returned error is only set
// for a session that is not Authenticated or a descriptor that cannot be
// resolved, in both cases no request is sent. Everything the site or the
// network answers is reported through the ActionResult.
func (e *ActionExecutor) Perform(ctx context.Context) (ActionResult, error) {
	s := e.session
	if s.state.Kind != Authenticated {
		return ActionResult{}, &PreconditionError{Op: "perform", State: s.state.Kind}
	}

	ctx, span := tracer.Start(ctx, "action-executor:Perform", trace.WithAttributes(
		attribute.String("website", s.website.Name()),
		attribute.String("account", s.account.Identifier()),
	))
	defer span.End()

	req, err := s.endpoint(s.website.Descriptor().ActionPath)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		e.tel.ReportBroken(report_action_executor_perform, s.account.Identifier(), err)
		return ActionResult{}, err
	}
	req.Method = http.MethodPost
	req.Query = s.website.ActionQuery()
	req.Cookie = s.jar.Render()

	result := e.classify(ctx, req)
	span.SetAttributes(
		attribute.String("outcome", string(result.Outcome)),
		attribute.String("reason", result.Reason),
	)
	if !result.Succeeded() {
		span.SetStatus(codes.Error, result.Reason)
		e.tel.ReportWarning(report_action_executor_perform, s.account.Identifier(), result.Reason, result.Err)
		return result, nil
	}
	e.tel.ReportInfo(report_action_executor_perform, s.account.Identifier(), string(result.Outcome))
	return result, nil
}

func (e *ActionExecutor) classify(ctx context.Context, req Request) ActionResult {
	s := e.session

	res, err := s.transport.Do(ctx, req)
	if err != nil {
		terr := newTransportError("perform", err)
		return ActionResult{Outcome: Failure, Reason: terr.Reason(), Err: terr}
	}
	s.jar.Capture(res.Header)

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return ActionResult{Outcome: Success}
	}

	berr := &BusinessError{
		Status:       res.StatusCode,
		AlreadyActed: s.website.AlreadyActed(res.Body),
		Notice:       s.website.Notice(res.Body),
	}
	reason := strconv.Itoa(res.StatusCode)
	if berr.AlreadyActed {
		reason = reasonAlreadyActed
	}
	return ActionResult{Outcome: Failure, Reason: reason, Err: berr}
}
