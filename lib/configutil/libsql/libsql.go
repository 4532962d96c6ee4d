// Package configlibsql opens the database a config file points to, either a
// local sqlite file or a remote libsql server.
package configlibsql

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

type Struct struct {
	// Target is a path to a sqlite file, ":memory:" or a libsql://, http:// or https:// url.
	Target string `json:"target"`
}

// Remote reports if `target` points to a libsql server.
func Remote(target string) bool {
	for _, prefix := range []string{"libsql://", "http://", "https://"} {
		if strings.HasPrefix(target, prefix) {
			return true
		}
	}
	return false
}

func (config Struct) OpenDB() (*sql.DB, error) {
	if config.Target == "" {
		return nil, fmt.Errorf("a target was not specified")
	}
	if Remote(config.Target) {
		return sql.Open("libsql", config.Target)
	}

	if config.Target != ":memory:" {
		err := os.MkdirAll(filepath.Dir(config.Target), 0755)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", config.Target)
	if err != nil {
		return nil, err
	}
	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
