// Copyright (c) 2025 Sqlchat
// Licensed under the MIT License. See LICENSE file in the project root for details.

package seeding

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"sqlchat/cli/internal/logging"
	"sqlchat/cli/internal/sqlexec"
)

// TableName is the table the seeder owns.
const TableName = "students"

// DefaultCount is the number of records per run.
const DefaultCount = 100

var createTable = map[sqlexec.Dialect]string{
	sqlexec.SQLite: `CREATE TABLE IF NOT EXISTS students (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    age INTEGER,
    grade INTEGER,
    city TEXT,
    enrollment_date TEXT
)`,
	sqlexec.MySQL: `CREATE TABLE IF NOT EXISTS students (
    id INT AUTO_INCREMENT PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    age INT,
    grade INT,
    city VARCHAR(255),
    enrollment_date VARCHAR(10)
)`,
	sqlexec.Postgres: `CREATE TABLE IF NOT EXISTS students (
    id SERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    age INTEGER,
    grade INTEGER,
    city TEXT,
    enrollment_date TEXT
)`,
}

// Result summarizes a seeding run.
type Result struct {
	// Inserted rows in this run
	Inserted int
	// Total rows in the table after the run
	Total int64
}

// Seeder appends synthetic students to a database.
type Seeder struct {
	db       *sql.DB
	dialect  sqlexec.Dialect
	gen      *Generator
	log      *logrus.Entry
	progress func(Event)
}

// Option customizes a Seeder.
type Option func(*Seeder)

// WithProgress registers a callback invoked synchronously for each event.
func WithProgress(fn func(Event)) Option { return func(s *Seeder) { s.progress = fn } }

// WithLogger sets the diagnostic logger.
func WithLogger(l *logrus.Entry) Option { return func(s *Seeder) { s.log = l } }

// New creates a Seeder. A nil generator means one seeded from the clock.
func New(db *sql.DB, dialect sqlexec.Dialect, gen *Generator, opts ...Option) *Seeder {
	if gen == nil {
		gen = NewGenerator(defaultSeed())
	}
	s := &Seeder{
		db:       db,
		dialect:  dialect,
		gen:      gen,
		log:      logging.Discard(),
		progress: func(Event) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureSchema creates the students table if it does not exist. An existing
// table is left as is.
func (s *Seeder) EnsureSchema(ctx context.Context) error {
	ddl, ok := createTable[s.dialect]
	if !ok {
		return fmt.Errorf("unsupported dialect %q", s.dialect)
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create %s table: %w", TableName, err)
	}
	return nil
}

// Seed inserts count new records. All inserts share one transaction that is
// committed once: a failure part way through leaves the table unchanged.
func (s *Seeder) Seed(ctx context.Context, count int) (Result, error) {
	if count < 0 {
		return Result{}, fmt.Errorf("count must not be negative, got %d", count)
	}
	if err := s.EnsureSchema(ctx); err != nil {
		return Result{}, err
	}
	s.progress(Event{Type: EventSchemaReady, Table: TableName, Total: count})

	inserted, err := s.insertBatch(ctx, count)
	if err != nil {
		s.log.WithError(err).WithField("count", count).Warn("seeding rolled back")
		s.progress(Event{Type: EventRolledBack, Table: TableName, Done: inserted, Total: count, Message: err.Error()})
		return Result{}, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+TableName).Scan(&total); err != nil {
		return Result{Inserted: inserted}, fmt.Errorf("count rows: %w", err)
	}
	s.progress(Event{Type: EventCommitted, Table: TableName, Done: inserted, Total: count})
	s.log.WithFields(logrus.Fields{"inserted": inserted, "total": total}).Info("seeding committed")
	return Result{Inserted: inserted, Total: total}, nil
}

func (s *Seeder) insertBatch(ctx context.Context, count int) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() // no-op after commit

	stmt, err := tx.PrepareContext(ctx, s.insertSQL())
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < count; i++ {
		st := s.gen.Next()
		if _, err := stmt.ExecContext(ctx, st.Name, st.Age, st.Grade, st.City, st.EnrollmentDate); err != nil {
			return i, fmt.Errorf("insert row %d: %w", i+1, err)
		}
		s.progress(Event{Type: EventProgress, Table: TableName, Done: i + 1, Total: count})
	}
	if err := tx.Commit(); err != nil {
		return count, fmt.Errorf("commit: %w", err)
	}
	return count, nil
}

func (s *Seeder) insertSQL() string {
	if s.dialect == sqlexec.Postgres {
		return "INSERT INTO students (name, age, grade, city, enrollment_date) VALUES ($1, $2, $3, $4, $5)"
	}
	return "INSERT INTO students (name, age, grade, city, enrollment_date) VALUES (?, ?, ?, ?, ?)"
}
