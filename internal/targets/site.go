package targets

import (
	"fmt"
	"net/url"
	"sort"

	"github.com/tanguc/vobotty/internal/engine"
	"github.com/tanguc/vobotty/lib/htmlutil"
)

// SiteConfig describes one target website. Every field can come from config,
// fields left empty fall back to the built-in site with the same name.
type SiteConfig struct {
	Name string `json:"name"`
	// Domain is the key accounts are stored under, defaults to the host name.
	Domain string `json:"domain"`

	Host       string `json:"host"`
	LoginPath  string `json:"login_path"`
	VerifyPath string `json:"verify_path"`
	ActionPath string `json:"action_path"`

	IdentifierField string `json:"identifier_field"`
	SecretField     string `json:"secret_field"`
	// SubmitField and SubmitValue are sent along the credentials, some login
	// forms check for the submit button.
	SubmitField string `json:"submit_field"`
	SubmitValue string `json:"submit_value"`

	MemberMarker       string            `json:"member_marker"`
	ActionQuery        map[string]string `json:"action_query"`
	AlreadyActedMarker string            `json:"already_acted_marker"`
	NoticeSelector     string            `json:"notice_selector"`
}

func (c SiteConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("site: name is required")
	}
	if c.Host == "" {
		return fmt.Errorf("site %s: host is required", c.Name)
	}
	if c.IdentifierField == "" || c.SecretField == "" {
		return fmt.Errorf("site %s: identifier_field and secret_field are required", c.Name)
	}
	if c.MemberMarker == "" {
		return fmt.Errorf("site %s: member_marker is required", c.Name)
	}
	return nil
}

// Site implements engine.Website from a SiteConfig.
type Site struct {
	cfg        SiteConfig
	descriptor engine.Descriptor
}

var _ engine.Website = (*Site)(nil)

func NewSite(cfg SiteConfig) (*Site, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	if cfg.Domain == "" {
		host, err := url.Parse(cfg.Host)
		if err != nil || host.Hostname() == "" {
			return nil, &engine.ConfigurationError{Field: "host", Value: cfg.Host, Err: fmt.Errorf("cannot derive domain")}
		}
		cfg.Domain = host.Hostname()
	}
	return &Site{
		cfg: cfg,
		descriptor: engine.Descriptor{
			Host:       cfg.Host,
			LoginPath:  cfg.LoginPath,
			VerifyPath: cfg.VerifyPath,
			ActionPath: cfg.ActionPath,
		},
	}, nil
}

func (s *Site) Name() string {
	return s.cfg.Name
}

func (s *Site) Domain() string {
	return s.cfg.Domain
}

func (s *Site) Config() SiteConfig {
	return s.cfg
}

func (s *Site) Descriptor() engine.Descriptor {
	return s.descriptor
}

func (s *Site) LoginForm(account engine.Account) url.Values {
	form := url.Values{
		s.cfg.IdentifierField: {account.Identifier()},
		s.cfg.SecretField:     {account.Secret()},
	}
	if s.cfg.SubmitField != "" {
		form.Set(s.cfg.SubmitField, s.cfg.SubmitValue)
	}
	return form
}

func (s *Site) IsMember(body []byte) bool {
	return htmlutil.ContainsMarker(body, s.cfg.MemberMarker)
}

func (s *Site) ActionQuery() url.Values {
	query := url.Values{}
	keys := make([]string, 0, len(s.cfg.ActionQuery))
	for k := range s.cfg.ActionQuery {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		query.Set(k, s.cfg.ActionQuery[k])
	}
	return query
}

func (s *Site) AlreadyActed(body []byte) bool {
	return htmlutil.ContainsMarker(body, s.cfg.AlreadyActedMarker)
}

func (s *Site) Notice(body []byte) string {
	return htmlutil.Notice(body, s.cfg.NoticeSelector)
}
