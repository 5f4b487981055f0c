package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/tanguc/vobotty/internal/accounts"
	"github.com/tanguc/vobotty/internal/engine"
	"github.com/tanguc/vobotty/internal/httpclient"
	"github.com/tanguc/vobotty/internal/runner"
	"github.com/tanguc/vobotty/internal/targets"
	"github.com/tanguc/vobotty/internal/telemetry"
	"github.com/tanguc/vobotty/internal/tunnel"
	"github.com/tanguc/vobotty/lib/configutil"
	"github.com/tanguc/vobotty/lib/util/serviceutil"
)

var tel = telemetry.SlogAPI{}

func loadConfig() Config {
	config, err := configutil.ReadConfig[Config](configPath)
	if os.IsNotExist(err) {
		serviceutil.Fatal("read config", fmt.Errorf("no config at %s", configPath))
	}
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	return config
}

func lookupSite(config Config) *targets.Site {
	registry, err := targets.NewRegistry(config.Sites)
	if err != nil {
		serviceutil.Fatal("load sites", err)
	}
	site, err := registry.Lookup(siteName)
	if err != nil {
		serviceutil.Fatal("lookup site", err)
	}
	return site
}

// openStore opens and migrates the accounts database.
func openStore(ctx context.Context, config Config) (*accounts.Store, error) {
	db, err := config.Database.OpenDB()
	if err != nil {
		return nil, err
	}
	store := accounts.NewStore(db, tel)
	err = store.Migrate(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// openSource prefers the accounts file when one is configured.
func openSource(ctx context.Context, config Config) (accounts.Source, error) {
	if config.AccountsFile != "" {
		return accounts.FileSource{Path: config.AccountsFile}, nil
	}
	return openStore(ctx, config)
}

func newTunnel(config Config) tunnel.Tunnel {
	if config.Tunnel.Proxy == "" {
		return tunnel.Direct{}
	}
	return tunnel.Proxy{
		URL:          config.Tunnel.Proxy,
		ProbeAddress: config.Tunnel.Probe,
		Timeout:      config.probeTimeout(),
		Tel:          tel,
	}
}

// newTransportFactory builds one client per session, every client draws from
// the same limiter so requests_per_second bounds the whole run.
func newTransportFactory(config Config, site *targets.Site) runner.TransportFactory {
	limiter := httpclient.NewLimiter(config.Http.RequestsPerSecond, config.Http.Burst)
	return func(endpoint tunnel.Endpoint) (engine.Transport, error) {
		client, err := httpclient.New(httpclient.Options{
			Timeout:          config.httpTimeout(),
			UserAgent:        config.Http.UserAgent,
			Proxy:            endpoint.ProxyURL,
			Limiter:          limiter,
			CloudflareBypass: config.Http.CloudflareBypass,
			Output:           restyInstrumentOutput,
			SecretFields:     []string{site.Config().SecretField},
		}, tel)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

func newRunner(ctx context.Context, config Config, site *targets.Site) (*runner.Runner, error) {
	source, err := openSource(ctx, config)
	if err != nil {
		return nil, err
	}
	return runner.New(runner.Options{
		Website:      site,
		Source:       source,
		Tunnel:       newTunnel(config),
		NewTransport: newTransportFactory(config, site),
		Concurrency:  config.Concurrency,
		Cooldown:     config.cooldown(),
		Tel:          tel,
	})
}
