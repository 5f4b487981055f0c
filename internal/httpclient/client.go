package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tanguc/vobotty/internal/assert"
	"github.com/tanguc/vobotty/internal/engine"
	"github.com/tanguc/vobotty/internal/telemetry"
	"github.com/tanguc/vobotty/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("vobotty/httpclient")

const report_client_do = "client.do"

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
)

type Options struct {
	// Timeout bounds a whole request, defaults to DefaultTimeout.
	Timeout   time.Duration
	UserAgent string
	// Proxy is an http, https or socks5 proxy URL, empty means direct.
	Proxy string
	// RequestsPerSecond of 0 disables rate limiting. The limit belongs to the
	// client unless Limiter is set.
	RequestsPerSecond float64
	Burst             int
	// Limiter is shared by every client it is given to, it takes precedence
	// over RequestsPerSecond.
	Limiter          *rate.Limiter
	CloudflareBypass bool
	// Output receives a dump of every exchange when set.
	Output restyutil.InstrumentOutput
	// SecretFields are form fields masked in the Output dumps.
	SecretFields []string
}

// NewLimiter returns nil when requestsPerSecond disables rate limiting.
func NewLimiter(requestsPerSecond float64, burst int) *rate.Limiter {
	if requestsPerSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// Client is the resty implementation of engine.Transport. It never follows
// redirects and keeps no cookies of its own.
type Client struct {
	http *resty.Client
	tel  telemetry.API
}

var _ engine.Transport = (*Client)(nil)

func New(opts Options, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("httpclient", tel)

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	httpClient := resty.New()
	httpClient.SetLogger(restyutil.Logger{})
	// the session owns its cookies
	httpClient.SetCookieJar(nil)
	httpClient.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))
	httpClient.SetTimeout(opts.Timeout)
	httpClient.SetHeader("user-agent", opts.UserAgent)

	if opts.Proxy != "" {
		proxyUrl, err := url.Parse(opts.Proxy)
		if err != nil || proxyUrl.Scheme == "" || proxyUrl.Host == "" {
			return nil, fmt.Errorf("invalid proxy url %q", opts.Proxy)
		}
		httpClient.SetProxy(proxyUrl.String())
	}
	// must come after SetProxy, resty can only configure a *http.Transport
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	rateLimiter := opts.Limiter
	if rateLimiter == nil {
		rateLimiter = NewLimiter(opts.RequestsPerSecond, opts.Burst)
	}
	if rateLimiter != nil {
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	restyutil.InstrumentClient(httpClient, tracer, opts.Output, opts.SecretFields...)

	return &Client{http: httpClient, tel: tel}, nil
}

func (c *Client) Do(ctx context.Context, req engine.Request) (engine.Response, error) {
	if req.URL == nil {
		return engine.Response{}, fmt.Errorf("httpclient: request without url")
	}

	r := c.http.R().SetContext(ctx)
	if req.Form != nil {
		r.SetFormDataFromValues(req.Form)
	}
	if req.Query != nil {
		r.SetQueryParamsFromValues(req.Query)
	}
	if req.Cookie != "" {
		r.SetHeader("Cookie", req.Cookie)
	}

	res, err := r.Execute(req.Method, req.URL.String())
	if err != nil {
		c.tel.ReportDebug(report_client_do, req.Method, req.URL.String(), err)
		return engine.Response{}, err
	}

	return engine.Response{
		StatusCode: res.StatusCode(),
		Header:     res.Header(),
		Body:       res.Body(),
	}, nil
}
