package configlibsql

import (
	"database/sql"
	"fmt"
	"net/url"

	devenv "github.com/tanguc/vobotty/dev/env"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Struct points at either a local sqlite file or a remote libsql database.
// A remote `url` (libsql://, https://, wss://) takes precedence over `file`.
type Struct struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func (config Struct) Validate() error {
	if config.Url == "" && config.File == "" {
		return fmt.Errorf("database: either file or url must be specified")
	}
	if config.Url != "" {
		parsed, err := url.Parse(config.Url)
		if err != nil {
			return fmt.Errorf("database: invalid url: %w", err)
		}
		switch parsed.Scheme {
		case "libsql", "https", "http", "wss", "ws":
		default:
			return fmt.Errorf("database: unsupported url scheme %q", parsed.Scheme)
		}
	}
	return nil
}

func (config Struct) OpenDB() (*sql.DB, error) {
	err := config.Validate()
	if err != nil {
		return nil, err
	}

	if config.Url == "" {
		if config.File == ":memory:" {
			db, err := sql.Open("sqlite", ":memory:")
			if err != nil {
				return nil, err
			}
			// every connection would get its own empty database
			db.SetMaxOpenConns(1)
			return db, nil
		}
		dbpath, err := devenv.ResolvePath(config.File)
		if err != nil {
			return nil, err
		}
		// transactions take the write lock on begin so concurrent read-modify-write
		// updates queue on busy_timeout instead of failing to upgrade
		return sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_txlock=immediate", dbpath))
	}

	values := url.Values{}
	if config.AuthToken != "" {
		values.Add("authToken", config.AuthToken)
	}
	dsn := config.Url
	if len(values) > 0 {
		dsn += "?" + values.Encode()
	}
	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, err
	}
	return db, nil
}
