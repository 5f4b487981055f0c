package engine

import (
	"fmt"
	"net/url"
)

// Descriptor is the static endpoint configuration of one target website.
type Descriptor struct {
	Host       string
	LoginPath  string
	VerifyPath string
	ActionPath string
}

func (d Descriptor) base() (*url.URL, error) {
	base, err := url.Parse(d.Host)
	if err != nil {
		return nil, &ConfigurationError{Field: "host", Value: d.Host, Err: err}
	}
	if !base.IsAbs() || base.Host == "" {
		return nil, &ConfigurationError{
			Field: "host",
			Value: d.Host,
			Err:   fmt.Errorf("not an absolute url"),
		}
	}
	base.RawQuery = ""
	base.ForceQuery = false
	base.Fragment = ""
	base.RawFragment = ""
	return base, nil
}

// Resolve joins `path` onto the host with standard url reference resolution.
// The relative path replaces the document part of the host, the host's query
// and fragment are dropped.
func (d Descriptor) Resolve(path string) (*url.URL, error) {
	base, err := d.base()
	if err != nil {
		return nil, err
	}
	ref, err := url.Parse(path)
	if err != nil {
		return nil, &ConfigurationError{Field: "path", Value: path, Err: err}
	}
	return base.ResolveReference(ref), nil
}

// Validate resolves every endpoint of the descriptor.
func (d Descriptor) Validate() error {
	for _, path := range []string{d.LoginPath, d.VerifyPath, d.ActionPath} {
		_, err := d.Resolve(path)
		if err != nil {
			return err
		}
	}
	return nil
}
