package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tanguc/vobotty/internal/accounts"
	"github.com/tanguc/vobotty/internal/assert"
	"github.com/tanguc/vobotty/internal/chrono"
	"github.com/tanguc/vobotty/internal/engine"
	"github.com/tanguc/vobotty/internal/telemetry"
	"github.com/tanguc/vobotty/internal/tunnel"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("vobotty/runner")
	meter  = otel.Meter("vobotty/runner")
)

const (
	report_runner_run        = "runner.run"
	report_runner_mark_acted = "runner.mark-acted"
	report_runner_skipped    = "runner.skipped"
)

// Website is a target the runner can fetch accounts for.
type Website interface {
	engine.Website
	// Domain is the key the site's accounts are stored under.
	Domain() string
}

// TransportFactory builds the transport of one session. Every session gets
// its own so sessions never share connection or cookie state.
type TransportFactory func(endpoint tunnel.Endpoint) (engine.Transport, error)

type Options struct {
	Website      Website
	Source       accounts.Source
	Tunnel       tunnel.Tunnel
	NewTransport TransportFactory
	// Concurrency is the maximum number of sessions in flight, defaults to 1.
	Concurrency int
	// Cooldown is the minimum time between two actions of an account.
	Cooldown time.Duration
	Clock    chrono.TimeAPI
	Tel      telemetry.API
}

type Runner struct {
	opts           Options
	tel            telemetry.API
	sessionCounter metric.Int64Counter

	// markMu serializes write-backs, the accounts of a domain share one row.
	markMu sync.Mutex
}

func New(opts Options) (*Runner, error) {
	assert.NotNil(opts.Website)
	assert.NotNil(opts.Source)
	assert.NotNil(opts.NewTransport)
	assert.NotNil(opts.Tel)

	if opts.Tunnel == nil {
		opts.Tunnel = tunnel.Direct{}
	}
	if opts.Clock == nil {
		opts.Clock = chrono.NewStandardTime()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	sessionCounter, err := meter.Int64Counter(
		"vobotty_sessions_total",
		metric.WithDescription("The total amount of bot sessions run, by outcome."),
	)
	if err != nil {
		return nil, err
	}

	return &Runner{
		opts:           opts,
		tel:            telemetry.NewScopedAPI("runner", opts.Tel),
		sessionCounter: sessionCounter,
	}, nil
}

// Summary is everything one Run did.
type Summary struct {
	RunID     string
	Site      string
	StartedAt time.Time
	Duration  time.Duration
	// Results are in the order the accounts were stored in.
	Results []engine.Result
	// Skipped holds the identifiers that were not eligible.
	Skipped []string
}

func (s Summary) Succeeded() int {
	count := 0
	for _, r := range s.Results {
		if r.Succeeded() {
			count++
		}
	}
	return count
}

func (s Summary) Failed() int {
	return len(s.Results) - s.Succeeded()
}

// connect brings the tunnel up, no session may start before it succeeds.
func (r *Runner) connect(ctx context.Context) (tunnel.Endpoint, error) {
	endpoint, err := r.opts.Tunnel.Connect(ctx)
	if err != nil {
		return tunnel.Endpoint{}, fmt.Errorf("tunnel not ready: %w", err)
	}
	return endpoint, nil
}

// Run acts once with every eligible account of the website. Store errors are
// returned unchanged, session failures only show up in the summary.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	site := r.opts.Website
	summary := Summary{
		RunID:     uuid.NewString(),
		Site:      site.Name(),
		StartedAt: r.opts.Clock.Now(),
	}

	ctx, span := tracer.Start(ctx, "runner:Run", trace.WithAttributes(
		attribute.String("run_id", summary.RunID),
		attribute.String("website", site.Name()),
	))
	defer span.End()

	fail := func(err error) (Summary, error) {
		span.SetStatus(codes.Error, err.Error())
		r.tel.ReportBroken(report_runner_run, summary.RunID, err)
		return summary, err
	}

	endpoint, err := r.connect(ctx)
	if err != nil {
		return fail(err)
	}

	records, err := r.opts.Source.FetchAccounts(ctx, site.Domain())
	if err != nil {
		return fail(err)
	}

	eligible := accounts.Eligible(records, summary.StartedAt, r.opts.Cooldown)
	eligibleIds := make(map[string]bool, len(eligible))
	for _, record := range eligible {
		eligibleIds[record.Identifier] = true
	}
	for _, record := range records {
		if !eligibleIds[record.Identifier] {
			summary.Skipped = append(summary.Skipped, record.Identifier)
		}
	}
	r.tel.ReportCount(report_runner_skipped, int64(len(summary.Skipped)))

	summary.Results = make([]engine.Result, len(eligible))
	markErrs := make([]error, len(eligible))

	semaphore := make(chan struct{}, r.opts.Concurrency)
	wg := sync.WaitGroup{}
	for i, record := range eligible {
		wg.Add(1)
		semaphore <- struct{}{}
		go func(i int, record accounts.Record) {
			defer wg.Done()
			defer func() { <-semaphore }()
			summary.Results[i], markErrs[i] = r.runOne(ctx, endpoint, record)
		}(i, record)
	}
	wg.Wait()

	summary.Duration = r.opts.Clock.Now().Sub(summary.StartedAt)
	span.SetAttributes(
		attribute.Int("succeeded", summary.Succeeded()),
		attribute.Int("failed", summary.Failed()),
		attribute.Int("skipped", len(summary.Skipped)),
	)

	err = errors.Join(markErrs...)
	if err != nil {
		return fail(err)
	}
	r.tel.ReportInfo(
		report_runner_run, summary.RunID,
		fmt.Sprintf("%d succeeded", summary.Succeeded()),
		fmt.Sprintf("%d failed", summary.Failed()),
		fmt.Sprintf("%d skipped", len(summary.Skipped)),
	)
	return summary, nil
}

func (r *Runner) session(endpoint tunnel.Endpoint, record accounts.Record) (*engine.BotSession, error) {
	transport, err := r.opts.NewTransport(endpoint)
	if err != nil {
		return nil, err
	}
	return engine.NewBotSession(record.Account(), r.opts.Website, transport, r.opts.Tel), nil
}

func (r *Runner) runOne(ctx context.Context, endpoint tunnel.Endpoint, record accounts.Record) (engine.Result, error) {
	session, err := r.session(endpoint, record)
	if err != nil {
		result := engine.Result{
			Account: record.Identifier,
			Website: r.opts.Website.Name(),
			Outcome: engine.Failure,
			Reason:  "transport",
			Err:     err,
		}
		r.count(ctx, result)
		return result, nil
	}

	result := session.Run(ctx)
	r.count(ctx, result)
	if !result.Succeeded() {
		return result, nil
	}

	writer, ok := r.opts.Source.(accounts.Writer)
	if !ok {
		return result, nil
	}
	r.markMu.Lock()
	err = writer.MarkActed(ctx, r.opts.Website.Domain(), record.Identifier, r.opts.Clock.Now())
	r.markMu.Unlock()
	if err != nil {
		r.tel.ReportBroken(report_runner_mark_acted, record.Identifier, err)
		return result, err
	}
	return result, nil
}

func (r *Runner) count(ctx context.Context, result engine.Result) {
	r.sessionCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("website", result.Website),
		attribute.String("outcome", string(result.Outcome)),
	))
}

// Check logs `identifier` in and verifies the session without acting.
func (r *Runner) Check(ctx context.Context, identifier string) (engine.Result, error) {
	endpoint, err := r.connect(ctx)
	if err != nil {
		return engine.Result{}, err
	}
	records, err := r.opts.Source.FetchAccounts(ctx, r.opts.Website.Domain())
	if err != nil {
		return engine.Result{}, err
	}
	for _, record := range records {
		if record.Identifier != identifier {
			continue
		}
		session, err := r.session(endpoint, record)
		if err != nil {
			return engine.Result{}, err
		}
		return session.Check(ctx), nil
	}
	return engine.Result{}, fmt.Errorf("account %s: %w", identifier, accounts.ErrNotFound)
}
