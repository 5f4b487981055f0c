package targets

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"dario.cat/mergo"
)

const AmaknaName = "amakna"

// Amakna is the built-in configuration of the Amakna private server vote page.
func Amakna() SiteConfig {
	return SiteConfig{
		Name:               AmaknaName,
		Domain:             "ganymede.ws",
		Host:               "https://ganymede.ws",
		LoginPath:          "/login",
		VerifyPath:         "/",
		ActionPath:         "/vote",
		IdentifierField:    "user_name",
		SecretField:        "user_password",
		SubmitField:        "login",
		SubmitValue:        "1",
		MemberMarker:       `<div id="member">`,
		ActionQuery:        map[string]string{"action": "vote"},
		AlreadyActedMarker: "already voted",
		NoticeSelector:     ".alert",
	}
}

func builtins() map[string]SiteConfig {
	return map[string]SiteConfig{
		AmaknaName: Amakna(),
	}
}

// Registry holds every known site by name.
type Registry struct {
	sites map[string]*Site
}

// NewRegistry builds the registry from the built-in sites with `overrides`
// applied on top. An override with the name of a built-in only replaces the
// fields it sets, any other name defines a new site.
func NewRegistry(overrides []SiteConfig) (*Registry, error) {
	configs := builtins()
	for _, override := range overrides {
		if override.Name == "" {
			return nil, fmt.Errorf("site override without a name")
		}
		cfg, ok := configs[override.Name]
		if !ok {
			configs[override.Name] = override
			continue
		}
		err := mergo.Merge(&cfg, override, mergo.WithOverride)
		if err != nil {
			return nil, fmt.Errorf("merge site %s: %w", override.Name, err)
		}
		if override.ActionQuery != nil {
			cfg.ActionQuery = override.ActionQuery
		}
		configs[override.Name] = cfg
	}

	sites := make(map[string]*Site, len(configs))
	for name, cfg := range configs {
		site, err := NewSite(cfg)
		if err != nil {
			return nil, err
		}
		sites[name] = site
	}
	return &Registry{sites: sites}, nil
}

func (r *Registry) Lookup(name string) (*Site, error) {
	site, ok := r.sites[name]
	if !ok {
		return nil, fmt.Errorf("unknown site %q, known sites: %v", name, r.Names())
	}
	return site, nil
}

// Names returns the known site names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sites))
	for name := range r.sites {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sites returns every site, sorted by name.
func (r *Registry) Sites() []*Site {
	out := make([]*Site, 0, len(r.sites))
	for _, site := range r.sites {
		out = append(out, site)
	}
	slices.SortFunc(out, func(a, b *Site) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return out
}
