// Copyright (c) 2025 Sqlchat
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dsn

import (
	"database/sql"
	"fmt"
)

// SourceKind tags the ConnectionSpec variant.
type SourceKind int

const (
	// Local is an embedded SQLite file.
	Local SourceKind = iota
	// Remote is a networked server reached by URI.
	Remote
)

func (k SourceKind) String() string {
	if k == Remote {
		return "remote"
	}
	return "local"
}

// Driver names the database engine behind a handle.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverMySQL    Driver = "mysql"
	DriverPostgres Driver = "postgres"
)

// DisplayName is the engine name used in status messages.
func (d Driver) DisplayName() string {
	switch d {
	case DriverMySQL:
		return "MySQL"
	case DriverPostgres:
		return "PostgreSQL"
	case DriverSQLite:
		return "SQLite"
	}
	return string(d)
}

// ConnectionSpec describes where the chat session reads from.
// It is comparable and used as its own cache key.
type ConnectionSpec struct {
	Kind SourceKind

	// Local
	Path string

	// Remote
	Driver   Driver
	Host     string
	User     string
	Password string
	Database string
}

// LocalSpec builds a Local spec.
func LocalSpec(path string) ConnectionSpec {
	return ConnectionSpec{Kind: Local, Path: path}
}

// RemoteSpec builds a Remote spec.
func RemoteSpec(driver Driver, host, user, password, database string) ConnectionSpec {
	return ConnectionSpec{
		Kind:     Remote,
		Driver:   driver,
		Host:     host,
		User:     user,
		Password: password,
		Database: database,
	}
}

// String never includes the password.
func (s ConnectionSpec) String() string {
	if s.Kind == Local {
		return "sqlite:" + s.Path
	}
	return fmt.Sprintf("%s://%s@%s/%s", s.Driver, s.User, s.Host, s.Database)
}

// Handle is a reusable reference to an open, pooled connection.
type Handle struct {
	DB     *sql.DB
	Driver Driver
	// Source describes the data source with credentials masked.
	Source string
}
