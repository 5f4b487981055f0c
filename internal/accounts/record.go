package accounts

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tanguc/vobotty/internal/engine"
)

var (
	// ErrNotFound means nothing is stored for the domain or identifier.
	ErrNotFound = errors.New("accounts: not found")
	// ErrTransient is a failure of the backing store that may go away on its own.
	ErrTransient = errors.New("accounts: store unavailable")
	// ErrMalformed means stored data could not be decoded.
	ErrMalformed = errors.New("accounts: malformed data")
)

// StoreError carries the domain a store operation was about, Err wraps one of
// the sentinel errors.
type StoreError struct {
	Op     string
	Domain string
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Domain, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeError(op, domain string, kind error, err error) error {
	if err == nil {
		return &StoreError{Op: op, Domain: domain, Err: kind}
	}
	return &StoreError{Op: op, Domain: domain, Err: fmt.Errorf("%w: %w", kind, err)}
}

// Record is one stored account.
type Record struct {
	Identifier  string     `json:"identifier"`
	Secret      string     `json:"secret"`
	LastActedAt *time.Time `json:"last_acted_at,omitempty"`
	Disabled    bool       `json:"disabled,omitempty"`
}

func (r Record) Account() engine.Account {
	return engine.NewAccount(r.Identifier, r.Secret)
}

func (r Record) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("identifier", r.Identifier),
		slog.Bool("disabled", r.Disabled),
	}
	if r.LastActedAt != nil {
		attrs = append(attrs, slog.Time("last_acted_at", *r.LastActedAt))
	}
	return slog.GroupValue(attrs...)
}

func (r Record) validate() error {
	if r.Identifier == "" {
		return fmt.Errorf("record without identifier")
	}
	if r.Secret == "" {
		return fmt.Errorf("record %s without secret", r.Identifier)
	}
	return nil
}

// Eligible keeps the records that may act at `now`: not disabled, and either
// never acted or last acted at least `cooldown` ago. Order is preserved.
func Eligible(records []Record, now time.Time, cooldown time.Duration) []Record {
	var out []Record
	for _, r := range records {
		if r.Disabled {
			continue
		}
		if r.LastActedAt != nil && now.Sub(*r.LastActedAt) < cooldown {
			continue
		}
		out = append(out, r)
	}
	return out
}
