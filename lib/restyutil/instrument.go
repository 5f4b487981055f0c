package restyutil

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/semconv/v1.13.0/httpconv"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentOutput receives a full dump of every HTTP exchange.
type InstrumentOutput interface {
	Write(id string, contents string)
}

type instrumentCtx struct {
	output       InstrumentOutput
	tracer       trace.Tracer
	idcounter    *uint64
	secretFields []string
}

// InstrumentClient traces every request made by `client` and logs it at debug
// level. `tracer` can be nil, it will default to a library name of "resty".
// `output` can also be nil, exchanges are then not dumped anywhere.
// `secretFields` are form fields masked in the dumps on top of the ones whose
// name looks like a credential.
func InstrumentClient(client *resty.Client, tracer trace.Tracer, output InstrumentOutput, secretFields ...string) {
	if tracer == nil {
		tracer = otel.Tracer("resty")
	}

	var idcounter uint64
	i := instrumentCtx{
		output:       output,
		tracer:       tracer,
		idcounter:    &idcounter,
		secretFields: secretFields,
	}
	client.OnBeforeRequest(i.onBeforeRequest)
	client.OnAfterResponse(i.onAfterResponse)
	client.OnError(i.onError)
}

type messageIdKeyType struct{}

var messageIdKey messageIdKeyType

func messageId(ctx context.Context) string {
	id, _ := ctx.Value(messageIdKey).(string)
	return id
}

func (i instrumentCtx) onBeforeRequest(_ *resty.Client, req *resty.Request) error {
	ctx, _ := i.tracer.Start(req.Context(), fmt.Sprintf("http %s", req.Method))

	id := strconv.FormatUint(atomic.AddUint64(i.idcounter, 1), 10)
	ctx = context.WithValue(ctx, messageIdKey, id)
	slog.DebugContext(
		ctx, "start request",
		"method", req.Method,
		"url", req.URL,
		"message_id", id,
	)

	req.SetContext(ctx)
	return nil
}

func (i instrumentCtx) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	ctx := res.Request.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	if res.RawResponse != nil {
		span.SetAttributes(httpconv.ClientResponse(res.RawResponse)...)
	}
	// setting request attributes here since res.Request.RawRequest is nil in onBeforeRequest
	if res.Request.RawRequest != nil {
		span.SetAttributes(httpconv.ClientRequest(res.Request.RawRequest)...)
	}

	id := messageId(ctx)
	if i.output != nil {
		i.output.Write(id, formatHttpMessage(res, i.secretFields))
	}
	slog.DebugContext(
		ctx, "request finished",
		"method", res.Request.Method,
		"url", res.Request.URL,
		"status", res.StatusCode(),
		"duration", res.Time(),
		"message_id", id,
	)

	return nil
}

func (i instrumentCtx) onError(req *resty.Request, err error) {
	ctx := req.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.RecordError(err)
	span.SetStatus(codes.Error, "request failed")
	if req.RawRequest != nil {
		span.SetAttributes(httpconv.ClientRequest(req.RawRequest)...)
	}

	slog.DebugContext(
		ctx, "request failed",
		"method", req.Method,
		"url", req.URL,
		"err", err,
		"message_id", messageId(ctx),
	)
}

// Logger routes resty's internal logging into slog.
type Logger struct{}

func (Logger) Errorf(format string, v ...any) {
	slog.Error(fmt.Sprintf(format, v...), "component", "resty")
}

func (Logger) Warnf(format string, v ...any) {
	slog.Warn(fmt.Sprintf(format, v...), "component", "resty")
}

func (Logger) Debugf(format string, v ...any) {
	slog.Debug(fmt.Sprintf(format, v...), "component", "resty")
}
