package accounts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tanguc/vobotty/internal/telemetry"
	configlibsql "github.com/tanguc/vobotty/lib/configuration/libsql"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func setupStore(t testing.TB) *Store {
	t.Helper()

	db, err := configlibsql.Struct{File: ":memory:"}.OpenDB()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	store := NewStore(db, &telemetry.Recorder{})
	err = store.Migrate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func setupFileStore(t testing.TB) *Store {
	t.Helper()

	db, err := configlibsql.Struct{File: filepath.Join(t.TempDir(), "accounts.db")}.OpenDB()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	store := NewStore(db, &telemetry.Recorder{})
	err = store.Migrate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func ptr[T any](v T) *T {
	return &v
}

func TestStoreFetchUnknownDomain(t *testing.T) {
	store := setupStore(t)

	_, err := store.FetchAccounts(context.Background(), "ganymede.ws")
	require.ErrorIs(t, err, ErrNotFound)
	var serr *StoreError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, "ganymede.ws", serr.Domain)
}

func TestStoreSaveAndFetch(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	acted := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []Record{
		{Identifier: "u1", Secret: "p1"},
		{Identifier: "u2", Secret: "p2", LastActedAt: &acted, Disabled: true},
	}
	require.NoError(t, store.Save(ctx, "ganymede.ws", records))

	got, err := store.FetchAccounts(ctx, "ganymede.ws")
	require.NoError(t, err)
	if diff := cmp.Diff(records, got); diff != "" {
		t.Fatal(diff)
	}

	// saving again replaces the whole domain
	require.NoError(t, store.Save(ctx, "ganymede.ws", records[:1]))
	got, err = store.FetchAccounts(ctx, "ganymede.ws")
	require.NoError(t, err)
	require.Len(t, got, 1)

	_, err = store.FetchAccounts(ctx, "other.example.com")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStoreAdd(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "ganymede.ws", Record{Identifier: "u1", Secret: "p1"}))
	require.NoError(t, store.Add(ctx, "ganymede.ws", Record{Identifier: "u2", Secret: "p2"}))

	err := store.Add(ctx, "ganymede.ws", Record{Identifier: "u1", Secret: "other"})
	require.ErrorContains(t, err, "already exists")

	err = store.Add(ctx, "ganymede.ws", Record{Identifier: "u3"})
	require.ErrorIs(t, err, ErrMalformed)

	got, err := store.FetchAccounts(ctx, "ganymede.ws")
	require.NoError(t, err)
	require.Equal(t, []Record{
		{Identifier: "u1", Secret: "p1"},
		{Identifier: "u2", Secret: "p2"},
	}, got)
}

func TestStoreMarkActedAndDisable(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "ganymede.ws", []Record{
		{Identifier: "u1", Secret: "p1"},
		{Identifier: "u2", Secret: "p2"},
	}))

	at := time.Date(2024, 5, 2, 8, 30, 0, 0, time.FixedZone("CEST", 2*60*60))
	require.NoError(t, store.MarkActed(ctx, "ganymede.ws", "u2", at))
	require.NoError(t, store.SetDisabled(ctx, "ganymede.ws", "u1", true))

	got, err := store.FetchAccounts(ctx, "ganymede.ws")
	require.NoError(t, err)
	require.True(t, got[0].Disabled)
	require.Nil(t, got[0].LastActedAt)
	require.False(t, got[1].Disabled)
	require.NotNil(t, got[1].LastActedAt)
	require.True(t, at.Equal(*got[1].LastActedAt))

	require.NoError(t, store.SetDisabled(ctx, "ganymede.ws", "u1", false))
	got, err = store.FetchAccounts(ctx, "ganymede.ws")
	require.NoError(t, err)
	require.False(t, got[0].Disabled)

	require.ErrorIs(t, store.MarkActed(ctx, "ganymede.ws", "nobody", at), ErrNotFound)
	require.ErrorIs(t, store.SetDisabled(ctx, "unknown.example.com", "u1", true), ErrNotFound)
}

func TestStoreConcurrentMarkActedOnFile(t *testing.T) {
	store := setupFileStore(t)
	ctx := context.Background()

	var records []Record
	for i := range 8 {
		records = append(records, Record{Identifier: fmt.Sprintf("u%d", i), Secret: "s"})
	}
	require.NoError(t, store.Save(ctx, "ganymede.ws", records))

	at := time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC)
	errs := make([]error, len(records))
	var wg sync.WaitGroup
	for i, record := range records {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = store.MarkActed(ctx, "ganymede.ws", record.Identifier, at)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, records[i].Identifier)
	}
	got, err := store.FetchAccounts(ctx, "ganymede.ws")
	require.NoError(t, err)
	require.Len(t, got, len(records))
	for _, record := range got {
		require.NotNil(t, record.LastActedAt, record.Identifier)
		require.True(t, at.Equal(*record.LastActedAt))
	}
}

func TestStoreMalformedData(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	testCases := []struct {
		domain string
		data   string
	}{
		{domain: "not-json", data: "{nope"},
		{domain: "not-array", data: `{"identifier": "u1"}`},
		{domain: "no-secret", data: `[{"identifier": "u1"}]`},
		{domain: "bad-time", data: `[{"identifier": "u1", "secret": "p1", "last_acted_at": "yesterday"}]`},
	}

	for _, test := range testCases {
		_, err := store.db.ExecContext(ctx, "insert into accounts(domain, data) values (?, ?)", test.domain, test.data)
		require.NoError(t, err)

		_, err = store.FetchAccounts(ctx, test.domain)
		require.ErrorIs(t, err, ErrMalformed, test.domain)
	}
}

func TestStoreUnavailable(t *testing.T) {
	store := setupStore(t)
	require.NoError(t, store.db.Close())

	_, err := store.FetchAccounts(context.Background(), "ganymede.ws")
	require.ErrorIs(t, err, ErrTransient)
	require.ErrorIs(t, store.MarkActed(context.Background(), "ganymede.ws", "u1", time.Now()), ErrTransient)
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "accounts.json5")
	err := os.WriteFile(path, []byte(`{
		// comments are allowed
		"ganymede.ws": [
			{identifier: "u1", secret: "p1"},
			{identifier: "u2", secret: "p2", disabled: true, last_acted_at: "2024-03-01T12:00:00Z"}
		],
		"broken.example.com": [{identifier: "u1"}]
	}`), 0600)
	require.NoError(t, err)

	source := FileSource{Path: path}

	got, err := source.FetchAccounts(context.Background(), "ganymede.ws")
	require.NoError(t, err)
	require.Equal(t, []Record{
		{Identifier: "u1", Secret: "p1"},
		{Identifier: "u2", Secret: "p2", Disabled: true, LastActedAt: ptr(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))},
	}, got)

	_, err = source.FetchAccounts(context.Background(), "unknown.example.com")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = source.FetchAccounts(context.Background(), "broken.example.com")
	require.ErrorIs(t, err, ErrMalformed)

	_, err = FileSource{Path: filepath.Join(dir, "missing.json")}.FetchAccounts(context.Background(), "ganymede.ws")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, os.WriteFile(path, []byte("{oops"), 0600))
	_, err = source.FetchAccounts(context.Background(), "ganymede.ws")
	require.ErrorIs(t, err, ErrMalformed)
}

func TestEligible(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cooldown := 3 * time.Hour

	records := []Record{
		{Identifier: "never", Secret: "s"},
		{Identifier: "disabled", Secret: "s", Disabled: true},
		{Identifier: "recent", Secret: "s", LastActedAt: ptr(now.Add(-time.Hour))},
		{Identifier: "exactly", Secret: "s", LastActedAt: ptr(now.Add(-cooldown))},
		{Identifier: "old", Secret: "s", LastActedAt: ptr(now.Add(-24 * time.Hour))},
		{Identifier: "disabled-old", Secret: "s", Disabled: true, LastActedAt: ptr(now.Add(-24 * time.Hour))},
	}

	var names []string
	for _, r := range Eligible(records, now, cooldown) {
		names = append(names, r.Identifier)
	}
	require.Equal(t, []string{"never", "exactly", "old"}, names)

	require.Empty(t, Eligible(nil, now, cooldown))
}

func TestRecordNeverLogsSecret(t *testing.T) {
	r := Record{Identifier: "u1", Secret: "hunter2"}
	require.NotContains(t, r.LogValue().String(), "hunter2")
	require.Equal(t, "u1", r.Account().Identifier())
	require.Equal(t, "hunter2", r.Account().Secret())
	require.False(t, errors.Is(ErrNotFound, ErrTransient))
}
