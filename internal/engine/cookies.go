package engine

import (
	"net/http"
	"strings"
)

// CookieJar keeps the name=value pairs a site sets during one session.
// Cookie attributes (Path, Expires, HttpOnly, ...) are discarded. A name keeps
// the position it was first captured at, later captures only replace its value.
type CookieJar struct {
	names  []string
	values map[string]string
}

func NewCookieJar() *CookieJar {
	return &CookieJar{values: map[string]string{}}
}

func (j *CookieJar) set(name, value string) {
	if _, exists := j.values[name]; !exists {
		j.names = append(j.names, name)
	}
	j.values[name] = value
}

func parseSetCookie(raw string) (name, value string, ok bool) {
	pair, _, _ := strings.Cut(raw, ";")
	name, value, found := strings.Cut(pair, "=")
	if !found {
		return "", "", false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", false
	}
	return name, strings.TrimSpace(value), true
}

// Capture stores every Set-Cookie header (matched case-insensitively) of a
// response.
func (j *CookieJar) Capture(header http.Header) {
	for key, values := range header {
		if !strings.EqualFold(key, "Set-Cookie") {
			continue
		}
		for _, raw := range values {
			name, value, ok := parseSetCookie(raw)
			if !ok {
				continue
			}
			j.set(name, value)
		}
	}
}

// Render returns the jar as the value of an outgoing Cookie header.
func (j *CookieJar) Render() string {
	pairs := make([]string, len(j.names))
	for i, name := range j.names {
		pairs[i] = name + "=" + j.values[name]
	}
	return strings.Join(pairs, "; ")
}

func (j *CookieJar) Get(name string) (string, bool) {
	value, ok := j.values[name]
	return value, ok
}

func (j *CookieJar) Len() int {
	return len(j.names)
}
