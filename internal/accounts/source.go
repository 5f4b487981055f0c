package accounts

import (
	"context"
	"time"
)

// Source hands out the accounts stored for a domain.
type Source interface {
	FetchAccounts(ctx context.Context, domain string) ([]Record, error)
}

// Writer is implemented by sources that can record what happened to an
// account.
type Writer interface {
	MarkActed(ctx context.Context, domain, identifier string, at time.Time) error
	SetDisabled(ctx context.Context, domain, identifier string, disabled bool) error
}
