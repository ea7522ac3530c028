package dsn

import (
	"context"
	"database/sql"
	"database/sql/driver"

	"github.com/mattn/go-sqlite3"
)

// sqliteConnector opens connections through a creator function instead of a
// registered driver name.
type sqliteConnector struct {
	create func() (driver.Conn, error)
	drv    *sqlite3.SQLiteDriver
}

func (c *sqliteConnector) Connect(context.Context) (driver.Conn, error) { return c.create() }

func (c *sqliteConnector) Driver() driver.Driver { return c.drv }

// openSQLite opens an existing file lazily; mode=rw refuses to create one.
// The first query connects.
func openSQLite(path string) (*sql.DB, error) {
	return openSQLiteMode(path, "rw"), nil
}

// OpenSQLiteFile opens a SQLite database at path, creating it if needed.
// Seeding uses it; chat sessions go through Configure, which never creates files.
func OpenSQLiteFile(path string) (*sql.DB, error) {
	db := openSQLiteMode(path, "rwc")
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func openSQLiteMode(path, mode string) *sql.DB {
	drv := &sqlite3.SQLiteDriver{}
	dsn := "file:" + path + "?mode=" + mode + "&_busy_timeout=5000"
	return sql.OpenDB(&sqliteConnector{
		drv:    drv,
		create: func() (driver.Conn, error) { return drv.Open(dsn) },
	})
}
