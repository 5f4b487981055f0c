package accounts

import (
	"context"
	"errors"
	"fmt"
	"os"

	devenv "github.com/tanguc/vobotty/dev/env"

	"github.com/titanous/json5"
)

// FileSource reads accounts from a JSON (or JSON5) file mapping each domain
// to its array of records. The file is read on every fetch and never written.
type FileSource struct {
	Path string
}

var _ Source = FileSource{}

func (f FileSource) FetchAccounts(ctx context.Context, domain string) ([]Record, error) {
	path, err := devenv.ResolvePath(f.Path)
	if err != nil {
		return nil, storeError("fetch", domain, ErrTransient, err)
	}
	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, storeError("fetch", domain, ErrNotFound, err)
	}
	if err != nil {
		return nil, storeError("fetch", domain, ErrTransient, err)
	}

	var domains map[string][]Record
	err = json5.Unmarshal(contents, &domains)
	if err != nil {
		return nil, storeError("fetch", domain, ErrMalformed, fmt.Errorf("parse %s: %w", path, err))
	}
	records, ok := domains[domain]
	if !ok {
		return nil, storeError("fetch", domain, ErrNotFound, nil)
	}
	for _, r := range records {
		err = r.validate()
		if err != nil {
			return nil, storeError("fetch", domain, ErrMalformed, err)
		}
	}
	return records, nil
}
