package testutil

import (
	"database/sql"
	"strings"
	"testing"

	configlibsql "github.com/tanguc/vobotty/lib/configuration/libsql"
	"github.com/tanguc/vobotty/lib/telemetry"
)

type DBParams struct {
	// if unspecified, the database is left empty
	Schema string
	// if unspecified, it will use `:memory:`, may start with "<dev_state>"
	Path string
}

// SetupDB routes logs into the test log and opens a database that is closed
// when the test ends.
func SetupDB(t testing.TB, params DBParams) *sql.DB {
	t.Helper()
	telemetry.SetupForTesting(t)

	path := params.Path
	if path == "" {
		path = ":memory:"
	}
	db, err := configlibsql.Struct{File: path}.OpenDB()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	if params.Schema == "" {
		return db
	}
	_, err = db.Exec(params.Schema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		t.Fatal(err)
	}
	return db
}
