package targets

import (
	"net/url"
	"testing"

	"github.com/tanguc/vobotty/internal/engine"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestAmaknaDefaults(t *testing.T) {
	registry, err := NewRegistry(nil)
	require.NoError(t, err)
	require.Equal(t, []string{"amakna"}, registry.Names())

	site, err := registry.Lookup("amakna")
	require.NoError(t, err)
	require.Equal(t, "ganymede.ws", site.Domain())

	d := site.Descriptor()
	require.NoError(t, d.Validate())
	login, err := d.Resolve(d.LoginPath)
	require.NoError(t, err)
	require.Equal(t, "https://ganymede.ws/login", login.String())
	action, err := d.Resolve(d.ActionPath)
	require.NoError(t, err)
	require.Equal(t, "https://ganymede.ws/vote", action.String())

	form := site.LoginForm(engine.NewAccount("u1", "p1"))
	expected := url.Values{
		"user_name":     {"u1"},
		"user_password": {"p1"},
		"login":         {"1"},
	}
	if diff := cmp.Diff(expected, form); diff != "" {
		t.Fatal(diff)
	}
	require.Equal(t, "action=vote", site.ActionQuery().Encode())
}

func TestSiteMarkers(t *testing.T) {
	site, err := NewSite(Amakna())
	require.NoError(t, err)

	require.True(t, site.IsMember([]byte(`<body><div id="member">u1</div></body>`)))
	require.False(t, site.IsMember([]byte(`<body><div id='member'>u1</div></body>`)))
	require.False(t, site.IsMember(nil))

	require.True(t, site.AlreadyActed([]byte("you have already voted today")))
	require.False(t, site.AlreadyActed([]byte("thanks")))

	body := []byte(`<html><div class="alert">
		Come back   in 3 hours
	</div><div class="alert">second</div></html>`)
	require.Equal(t, "Come back in 3 hours", site.Notice(body))
	require.Equal(t, "", site.Notice([]byte("<p>nothing</p>")))
}

func TestSiteWithoutOptionalMarkers(t *testing.T) {
	site, err := NewSite(SiteConfig{
		Name:            "bare",
		Host:            "http://127.0.0.1:8080/app/",
		IdentifierField: "login",
		SecretField:     "pass",
		MemberMarker:    "logout",
	})
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1", site.Domain())
	require.False(t, site.AlreadyActed([]byte("already voted")))
	require.Equal(t, "", site.Notice([]byte(`<div class="alert">x</div>`)))
	require.Empty(t, site.ActionQuery())
	require.Equal(t, url.Values{"login": {"u1"}, "pass": {"p1"}}, site.LoginForm(engine.NewAccount("u1", "p1")))
}

func TestSiteConfigValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(c *SiteConfig)
	}{
		{name: "no name", mutate: func(c *SiteConfig) { c.Name = "" }},
		{name: "no host", mutate: func(c *SiteConfig) { c.Host = "" }},
		{name: "no identifier field", mutate: func(c *SiteConfig) { c.IdentifierField = "" }},
		{name: "no secret field", mutate: func(c *SiteConfig) { c.SecretField = "" }},
		{name: "no member marker", mutate: func(c *SiteConfig) { c.MemberMarker = "" }},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			cfg := Amakna()
			test.mutate(&cfg)
			_, err := NewSite(cfg)
			require.Error(t, err)
		})
	}
}

func TestRegistryOverrides(t *testing.T) {
	registry, err := NewRegistry([]SiteConfig{
		{
			Name:        "amakna",
			Host:        "https://mirror.ganymede.ws/site/",
			ActionQuery: map[string]string{"do": "vote", "server": "2"},
		},
		{
			Name:            "other",
			Host:            "https://other.example.com",
			LoginPath:       "/auth",
			VerifyPath:      "/me",
			ActionPath:      "/act",
			IdentifierField: "email",
			SecretField:     "password",
			MemberMarker:    "Sign out",
		},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"amakna", "other"}, registry.Names())

	amakna, err := registry.Lookup("amakna")
	require.NoError(t, err)
	cfg := amakna.Config()
	require.Equal(t, "https://mirror.ganymede.ws/site/", cfg.Host)
	// untouched fields keep their defaults
	require.Equal(t, "/login", cfg.LoginPath)
	require.Equal(t, `<div id="member">`, cfg.MemberMarker)
	require.Equal(t, "ganymede.ws", cfg.Domain)
	require.Equal(t, "do=vote&server=2", amakna.ActionQuery().Encode())

	other, err := registry.Lookup("other")
	require.NoError(t, err)
	require.Equal(t, "other.example.com", other.Domain())

	sites := registry.Sites()
	require.Len(t, sites, 2)
	require.Equal(t, "amakna", sites[0].Name())
}

func TestRegistryErrors(t *testing.T) {
	_, err := NewRegistry([]SiteConfig{{Host: "https://x.example.com"}})
	require.Error(t, err)

	_, err = NewRegistry([]SiteConfig{{Name: "incomplete", Host: "https://x.example.com"}})
	require.Error(t, err)

	registry, err := NewRegistry(nil)
	require.NoError(t, err)
	_, err = registry.Lookup("missing")
	require.ErrorContains(t, err, "amakna")
}
