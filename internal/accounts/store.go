package accounts

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/tanguc/vobotty/internal/assert"
	"github.com/tanguc/vobotty/internal/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

//go:embed schema.sql
var Schema string

var tracer = otel.Tracer("vobotty/accounts")

const (
	report_store_fetch  = "store.fetch"
	report_store_update = "store.update"
)

// Store keeps every domain's accounts as one JSON document in the `accounts`
// table. It works with any database/sql driver that speaks sqlite (modernc
// sqlite locally, libsql remotely).
type Store struct {
	db  *sql.DB
	tel telemetry.API
}

var (
	_ Source = (*Store)(nil)
	_ Writer = (*Store)(nil)
)

func NewStore(db *sql.DB, tel telemetry.API) *Store {
	assert.NotNil(db)
	assert.NotNil(tel)
	return &Store{db: db, tel: telemetry.NewScopedAPI("accounts", tel)}
}

// Migrate creates the accounts table when it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	if err != nil {
		return fmt.Errorf("migrate accounts: %w", err)
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func readDomain(ctx context.Context, q queryer, op, domain string) ([]Record, error) {
	var data string
	err := q.QueryRowContext(ctx, "select data from accounts where domain = ?", domain).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storeError(op, domain, ErrNotFound, nil)
	}
	if err != nil {
		return nil, storeError(op, domain, ErrTransient, err)
	}

	var records []Record
	err = json.Unmarshal([]byte(data), &records)
	if err != nil {
		return nil, storeError(op, domain, ErrMalformed, err)
	}
	for _, r := range records {
		err = r.validate()
		if err != nil {
			return nil, storeError(op, domain, ErrMalformed, err)
		}
	}
	return records, nil
}

// FetchAccounts returns every account stored for `domain`, disabled ones
// included.
func (s *Store) FetchAccounts(ctx context.Context, domain string) ([]Record, error) {
	ctx, span := tracer.Start(ctx, "store:FetchAccounts", trace.WithAttributes(
		attribute.String("domain", domain),
	))
	defer span.End()

	records, err := readDomain(ctx, s.db, "fetch", domain)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if !errors.Is(err, ErrNotFound) {
			s.tel.ReportBroken(report_store_fetch, domain, err)
		}
		return nil, err
	}
	s.tel.ReportDebug(report_store_fetch, domain, len(records))
	return records, nil
}

// Save replaces everything stored for `domain`.
func (s *Store) Save(ctx context.Context, domain string, records []Record) error {
	for _, r := range records {
		err := r.validate()
		if err != nil {
			return storeError("save", domain, ErrMalformed, err)
		}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return storeError("save", domain, ErrMalformed, err)
	}
	_, err = s.db.ExecContext(
		ctx,
		"insert into accounts(domain, data) values (?, ?) on conflict(domain) do update set data = excluded.data",
		domain, string(data),
	)
	if err != nil {
		return storeError("save", domain, ErrTransient, err)
	}
	return nil
}

// update runs `mutate` on the records of `domain` inside a transaction.
func (s *Store) update(ctx context.Context, op, domain string, createMissing bool, mutate func([]Record) ([]Record, error)) error {
	ctx, span := tracer.Start(ctx, "store:"+op, trace.WithAttributes(
		attribute.String("domain", domain),
	))
	defer span.End()

	fail := func(err error) error {
		span.SetStatus(codes.Error, err.Error())
		s.tel.ReportWarning(report_store_update, op, domain, err)
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fail(storeError(op, domain, ErrTransient, err))
	}
	defer tx.Rollback()

	records, err := readDomain(ctx, tx, op, domain)
	if errors.Is(err, ErrNotFound) && createMissing {
		records, err = nil, nil
	}
	if err != nil {
		return fail(err)
	}

	records, err = mutate(records)
	if err != nil {
		return fail(err)
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fail(storeError(op, domain, ErrMalformed, err))
	}

	_, err = tx.ExecContext(
		ctx,
		"insert into accounts(domain, data) values (?, ?) on conflict(domain) do update set data = excluded.data",
		domain, string(data),
	)
	if err != nil {
		return fail(storeError(op, domain, ErrTransient, err))
	}
	err = tx.Commit()
	if err != nil {
		return fail(storeError(op, domain, ErrTransient, err))
	}
	return nil
}

func findRecord(records []Record, identifier string) int {
	return slices.IndexFunc(records, func(r Record) bool {
		return r.Identifier == identifier
	})
}

// Add appends a new account to `domain`, creating the domain if needed.
func (s *Store) Add(ctx context.Context, domain string, record Record) error {
	err := record.validate()
	if err != nil {
		return storeError("add", domain, ErrMalformed, err)
	}
	return s.update(ctx, "add", domain, true, func(records []Record) ([]Record, error) {
		if findRecord(records, record.Identifier) >= 0 {
			return nil, &StoreError{
				Op:     "add",
				Domain: domain,
				Err:    fmt.Errorf("account %s already exists", record.Identifier),
			}
		}
		return append(records, record), nil
	})
}

// MarkActed records that `identifier` performed the action at `at`.
func (s *Store) MarkActed(ctx context.Context, domain, identifier string, at time.Time) error {
	at = at.UTC()
	return s.update(ctx, "mark-acted", domain, false, func(records []Record) ([]Record, error) {
		i := findRecord(records, identifier)
		if i < 0 {
			return nil, storeError("mark-acted", domain, ErrNotFound, fmt.Errorf("account %s", identifier))
		}
		records[i].LastActedAt = &at
		return records, nil
	})
}

func (s *Store) SetDisabled(ctx context.Context, domain, identifier string, disabled bool) error {
	return s.update(ctx, "set-disabled", domain, false, func(records []Record) ([]Record, error) {
		i := findRecord(records, identifier)
		if i < 0 {
			return nil, storeError("set-disabled", domain, ErrNotFound, fmt.Errorf("account %s", identifier))
		}
		records[i].Disabled = disabled
		return records, nil
	})
}
