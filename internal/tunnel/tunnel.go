package tunnel

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/tanguc/vobotty/internal/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/proxy"
)

var tracer = otel.Tracer("vobotty/tunnel")

const report_tunnel_connect = "tunnel.connect"

const DefaultProbeTimeout = 10 * time.Second

// Endpoint is what sessions need to go through a ready tunnel.
type Endpoint struct {
	// ProxyURL is empty when requests go out directly.
	ProxyURL string
}

// Tunnel must be connected before any session starts.
type Tunnel interface {
	Connect(ctx context.Context) (Endpoint, error)
}

// Direct sends requests without any tunnel.
type Direct struct{}

func (Direct) Connect(context.Context) (Endpoint, error) {
	return Endpoint{}, nil
}

// Proxy routes requests through an http, https, socks5 or socks5h proxy. It is
// ready once the proxy accepts a connection and, for SOCKS proxies with a
// ProbeAddress, once a connection to that address went through it.
type Proxy struct {
	URL          string
	ProbeAddress string
	Timeout      time.Duration
	Tel          telemetry.API
}

func (p Proxy) tel() telemetry.API {
	if p.Tel == nil {
		return telemetry.NewScopedAPI("tunnel", telemetry.SlogAPI{})
	}
	return telemetry.NewScopedAPI("tunnel", p.Tel)
}

func defaultPort(scheme string) string {
	switch scheme {
	case "http":
		return "80"
	case "https":
		return "443"
	}
	return "1080"
}

func (p Proxy) Connect(ctx context.Context) (Endpoint, error) {
	tel := p.tel()

	proxyUrl, err := url.Parse(p.URL)
	if err != nil {
		return Endpoint{}, fmt.Errorf("tunnel: invalid proxy url: %w", err)
	}
	switch proxyUrl.Scheme {
	case "http", "https", "socks5", "socks5h":
	default:
		return Endpoint{}, fmt.Errorf("tunnel: unsupported proxy scheme %q", proxyUrl.Scheme)
	}
	if proxyUrl.Hostname() == "" {
		return Endpoint{}, fmt.Errorf("tunnel: proxy url without host")
	}

	ctx, span := tracer.Start(ctx, "tunnel:Connect", trace.WithAttributes(
		attribute.String("proxy", proxyUrl.Redacted()),
	))
	defer span.End()

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fail := func(err error) (Endpoint, error) {
		span.SetStatus(codes.Error, err.Error())
		tel.ReportWarning(report_tunnel_connect, proxyUrl.Redacted(), err)
		return Endpoint{}, err
	}

	port := proxyUrl.Port()
	if port == "" {
		port = defaultPort(proxyUrl.Scheme)
	}
	address := net.JoinHostPort(proxyUrl.Hostname(), port)

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return fail(fmt.Errorf("tunnel: proxy %s unreachable: %w", address, err))
	}
	conn.Close()

	if p.ProbeAddress != "" && (proxyUrl.Scheme == "socks5" || proxyUrl.Scheme == "socks5h") {
		err = probeSocks(ctx, proxyUrl, dialer, p.ProbeAddress)
		if err != nil {
			return fail(err)
		}
	}

	tel.ReportInfo(report_tunnel_connect, proxyUrl.Redacted(), "ready")
	return Endpoint{ProxyURL: proxyUrl.String()}, nil
}

func probeSocks(ctx context.Context, proxyUrl *url.URL, forward *net.Dialer, probe string) error {
	socksUrl := *proxyUrl
	// x/net/proxy only registers the socks5 scheme
	socksUrl.Scheme = "socks5"
	d, err := proxy.FromURL(&socksUrl, forward)
	if err != nil {
		return fmt.Errorf("tunnel: socks dialer: %w", err)
	}

	var conn net.Conn
	if cd, ok := d.(proxy.ContextDialer); ok {
		conn, err = cd.DialContext(ctx, "tcp", probe)
	} else {
		conn, err = d.Dial("tcp", probe)
	}
	if err != nil {
		return fmt.Errorf("tunnel: probe %s through proxy: %w", probe, err)
	}
	return conn.Close()
}
