package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tanguc/vobotty/internal/assert"
	"github.com/tanguc/vobotty/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const report_bot_session_run = "bot-session.run"

const (
	reasonCanceled      = "canceled"
	reasonConfiguration = "configuration"
)

// Result is what one BotSession run produced.
type Result struct {
	Account string
	Website string
	// State is the final state of the authentication phase.
	State SessionState
	// Action is only set when the session reached Authenticated.
	Action   ActionResult
	Outcome  Outcome
	Reason   string
	Err      error
	Duration time.Duration
}

func (r Result) Succeeded() bool {
	return r.Outcome == Success
}

// BotSession runs login, verification and the action for one account. It
// never has more than one request in flight, concurrent calls to Run are
// serialized.
type BotSession struct {
	mu        sync.Mutex
	account   Account
	website   Website
	transport Transport
	tel       telemetry.API
}

func NewBotSession(account Account, website Website, transport Transport, tel telemetry.API) *BotSession {
	assert.NotNil(website)
	assert.NotNil(transport)
	assert.NotNil(tel)

	return &BotSession{
		account:   account,
		website:   website,
		transport: transport,
		tel:       tel,
	}
}

func failureReason(err error) string {
	var cerr *ConfigurationError
	var aerr *AuthenticationError
	var perr *ProtocolError
	var terr *TransportError
	switch {
	case errors.As(err, &cerr):
		return reasonConfiguration
	case errors.As(err, &aerr):
		if errors.As(aerr.Err, &terr) {
			return fmt.Sprintf("authentication: %s", terr.Reason())
		}
		return fmt.Sprintf("authentication: %d", aerr.Status)
	case errors.As(err, &perr):
		return perr.Reason
	}
	return err.Error()
}

// Run drives a fresh AuthSession to Authenticated and performs the action
// once. Every run starts from an empty cookie jar. When ctx is cancelled
// between two steps the session is abandoned and its cookies dropped.
func (b *BotSession) Run(ctx context.Context) Result {
	return b.run(ctx, "bot-session:Run", true)
}

// Check only logs in and verifies the session, the action is never sent.
// A successful check reports Success with the Authenticated state.
func (b *BotSession) Check(ctx context.Context) Result {
	return b.run(ctx, "bot-session:Check", false)
}

func (b *BotSession) run(ctx context.Context, spanName string, act bool) Result {
	b.mu.Lock()
	defer b.mu.Unlock()

	ctx, span := tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.String("website", b.website.Name()),
		attribute.String("account", b.account.Identifier()),
	))
	defer span.End()

	start := time.Now()
	result := Result{
		Account: b.account.Identifier(),
		Website: b.website.Name(),
		State:   SessionState{Kind: Unauthenticated},
	}

	finish := func(outcome Outcome, reason string, err error) Result {
		result.Outcome = outcome
		result.Reason = reason
		result.Err = err
		result.Duration = time.Since(start)

		span.SetAttributes(attribute.String("outcome", string(outcome)))
		if outcome == Success {
			b.tel.ReportInfo(report_bot_session_run, result.Account, string(outcome), result.Duration.String())
		} else {
			span.SetStatus(codes.Error, reason)
			b.tel.ReportWarning(report_bot_session_run, result.Account, string(outcome), reason)
		}
		return result
	}

	err := b.website.Descriptor().Validate()
	if err != nil {
		result.State = SessionState{Kind: Failed, Reason: err}
		b.tel.ReportBroken(report_bot_session_run, b.website.Name(), err)
		return finish(Failure, reasonConfiguration, err)
	}

	auth := NewAuthSession(b.account, b.website, b.transport, b.tel)

	abandoned := func() bool {
		if ctx.Err() == nil {
			return false
		}
		auth.abandon(ctx.Err())
		result.State = auth.State()
		return true
	}

	for _, step := range []func(context.Context) error{auth.Login, auth.Verify} {
		if abandoned() {
			return finish(Failure, reasonCanceled, ctx.Err())
		}
		err := step(ctx)
		result.State = auth.State()
		if err == nil {
			continue
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			auth.abandon(ctx.Err())
			return finish(Failure, reasonCanceled, err)
		}
		return finish(Failure, failureReason(err), err)
	}

	if !act {
		return finish(Success, "", nil)
	}
	if abandoned() {
		return finish(Failure, reasonCanceled, ctx.Err())
	}

	action, err := NewActionExecutor(auth, b.tel).Perform(ctx)
	if err != nil {
		return finish(Failure, failureReason(err), err)
	}
	result.Action = action
	if errors.Is(ctx.Err(), context.Canceled) && !action.Succeeded() {
		auth.abandon(ctx.Err())
		return finish(Failure, reasonCanceled, action.Err)
	}
	return finish(action.Outcome, action.Reason, action.Err)
}
