// Copyright (c) 2025 Sqlchat
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dsn

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"

	"sqlchat/cli/internal/cache"
	sqlerrors "sqlchat/cli/internal/errors"
	"sqlchat/cli/internal/logging"
	"sqlchat/cli/internal/metrics"
)

// DefaultCacheTTL bounds how long a configured handle is reused.
const DefaultCacheTTL = 2 * time.Hour

// Reporter receives the user-visible outcome of a configuration attempt.
type Reporter interface {
	Success(msg string)
	Failure(msg string)
}

type nopReporter struct{}

func (nopReporter) Success(string) {}
func (nopReporter) Failure(string) {}

// remoteFields carries the validation rules for a Remote spec.
type remoteFields struct {
	Host     string `validate:"required"`
	User     string `validate:"required"`
	Password string `validate:"required"`
	Database string `validate:"required"`
}

// Configurator turns a ConnectionSpec into a live Handle, memoizing handles
// per spec for the cache TTL.
type Configurator struct {
	baseDir  string
	reporter Reporter
	log      *logrus.Entry
	validate *validator.Validate
	handles  *cache.TTL[ConnectionSpec, *Handle]

	openLocal  func(path string) (*sql.DB, error)
	openRemote func(spec ConnectionSpec, uri string) (*sql.DB, error)
}

// Option customizes a Configurator.
type Option func(*Configurator)

// WithBaseDir anchors relative local paths; the default is the working directory.
func WithBaseDir(dir string) Option { return func(c *Configurator) { c.baseDir = dir } }

// WithReporter sets the sink for success and failure messages.
func WithReporter(r Reporter) Option { return func(c *Configurator) { c.reporter = r } }

// WithLogger sets the diagnostic logger.
func WithLogger(l *logrus.Entry) Option { return func(c *Configurator) { c.log = l } }

// WithCache sets the TTL and clock used for handle reuse.
func WithCache(ttl time.Duration, clock cache.Clock) Option {
	return func(c *Configurator) { c.handles = cache.NewTTL[ConnectionSpec, *Handle](ttl, clock) }
}

// NewConfigurator builds a Configurator with a two hour handle cache.
func NewConfigurator(opts ...Option) *Configurator {
	c := &Configurator{
		reporter:   nopReporter{},
		log:        logging.Discard(),
		validate:   validator.New(),
		handles:    cache.NewTTL[ConnectionSpec, *Handle](DefaultCacheTTL, nil),
		openLocal:  openSQLite,
		openRemote: openRemote,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configure returns a handle for spec. Within the TTL the same spec yields the
// same handle without reconnecting. Failures are reported and never cached.
func (c *Configurator) Configure(ctx context.Context, spec ConnectionSpec) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, hit, err := c.handles.GetOrCreate(spec, func() (*Handle, error) {
		switch spec.Kind {
		case Local:
			return c.configureLocal(spec)
		case Remote:
			return c.configureRemote(spec)
		}
		return nil, sqlerrors.New(sqlerrors.UnsupportedDriver, fmt.Sprintf("unknown source kind %d", spec.Kind))
	})
	if !hit {
		metrics.ObserveConfigure(spec.Kind.String(), err)
	}
	if err != nil {
		c.log.WithField("source", spec.String()).WithError(err).Warn("configure database failed")
		return nil, err
	}
	if hit {
		c.log.WithField("source", h.Source).Debug("reusing cached database handle")
	}
	return h, nil
}

// Resolve returns the absolute path a Local spec points at.
func (c *Configurator) Resolve(spec ConnectionSpec) string {
	if filepath.IsAbs(spec.Path) {
		return spec.Path
	}
	base := c.baseDir
	if base == "" {
		if wd, err := os.Getwd(); err == nil {
			base = wd
		}
	}
	return filepath.Join(base, spec.Path)
}

// Evict drops the cached handle for spec, if any. Callers that close a handle
// evict it first so the closed pool is never handed out again.
func (c *Configurator) Evict(spec ConnectionSpec) {
	c.handles.Delete(spec)
}

// Forget drops every cached handle. Handles already returned stay open.
func (c *Configurator) Forget() {
	c.handles.Clear()
}

func (c *Configurator) configureLocal(spec ConnectionSpec) (*Handle, error) {
	p := c.Resolve(spec)
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		msg := fmt.Sprintf("%s file not found in project directory.", filepath.Base(spec.Path))
		c.reporter.Failure(msg)
		if err == nil {
			err = fmt.Errorf("%s is a directory", p)
		}
		return nil, sqlerrors.Wrap(sqlerrors.MissingResource, msg, err)
	}

	db, err := c.openLocal(p)
	if err != nil {
		c.reporter.Failure(fmt.Sprintf("Could not open %s.", spec.Path))
		return nil, sqlerrors.Wrap(sqlerrors.MissingResource, "open local database", err)
	}
	c.reporter.Success(fmt.Sprintf("Using local SQLite DB at: %s", p))
	c.log.WithField("path", p).Info("configured local database")
	return &Handle{DB: db, Driver: DriverSQLite, Source: "sqlite:" + p}, nil
}

func (c *Configurator) configureRemote(spec ConnectionSpec) (*Handle, error) {
	// The host check runs before anything else so a malformed host never
	// reaches a driver.
	if strings.Contains(spec.Host, "@") {
		msg := "Hostname should not contain '@'. Use only 'localhost' or an IP address."
		c.reporter.Failure(msg)
		return nil, sqlerrors.New(sqlerrors.MalformedHost, msg)
	}

	fields := remoteFields{Host: spec.Host, User: spec.User, Password: spec.Password, Database: spec.Database}
	if err := c.validate.Struct(fields); err != nil {
		msg := fmt.Sprintf("Incomplete %s connection details.", spec.Driver.DisplayName())
		c.reporter.Failure(msg)
		return nil, sqlerrors.Wrap(sqlerrors.IncompleteCredentials, msg, missingFields(err))
	}

	switch spec.Driver {
	case DriverMySQL, DriverPostgres:
	default:
		msg := fmt.Sprintf("Unsupported driver %q.", spec.Driver)
		c.reporter.Failure(msg)
		return nil, sqlerrors.New(sqlerrors.UnsupportedDriver, msg)
	}

	uri := ComposeURI(spec)
	db, err := c.openRemote(spec, uri)
	if err != nil {
		msg := fmt.Sprintf("Could not configure %s connection.", spec.Driver.DisplayName())
		c.reporter.Failure(msg)
		return nil, sqlerrors.Wrap(sqlerrors.UnsupportedDriver, msg, err)
	}

	source := logging.Mask(uri)
	c.reporter.Success(fmt.Sprintf("Connected to %s database.", spec.Driver.DisplayName()))
	c.log.WithField("source", source).Info("configured remote database")
	return &Handle{DB: db, Driver: spec.Driver, Source: source}, nil
}

// missingFields lists the empty fields named by a validator error.
func missingFields(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		names = append(names, strings.ToLower(fe.Field()))
	}
	return fmt.Errorf("missing %s", strings.Join(names, ", "))
}

// openRemote builds a lazily connecting pool. No network I/O happens here.
func openRemote(spec ConnectionSpec, uri string) (*sql.DB, error) {
	switch spec.Driver {
	case DriverMySQL:
		cfg, err := mysqlConfig(uri)
		if err != nil {
			return nil, err
		}
		connector, err := mysql.NewConnector(cfg)
		if err != nil {
			return nil, err
		}
		return sql.OpenDB(connector), nil
	case DriverPostgres:
		cfg, err := pgx.ParseConfig(postgresURI(uri))
		if err != nil {
			return nil, err
		}
		return stdlib.OpenDB(*cfg), nil
	}
	return nil, fmt.Errorf("unsupported driver %q", spec.Driver)
}

// mysqlConfig translates a composed mysql:// URI into a driver config.
func mysqlConfig(uri string) (*mysql.Config, error) {
	spec, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	cfg := mysql.NewConfig()
	cfg.User = spec.User
	cfg.Passwd = spec.Password
	cfg.Net = "tcp"
	cfg.Addr = spec.Host
	cfg.DBName = spec.Database
	return cfg, nil
}

// postgresURI rewrites the scheme to one pgx accepts. Passwords encoded with
// '+' for spaces are re-encoded with %20, which pgx expects in userinfo.
func postgresURI(uri string) string {
	rest := strings.TrimPrefix(uri, string(DriverPostgres)+"://")
	at := strings.LastIndex(rest, "@")
	if at == -1 {
		return "postgres://" + rest
	}
	auth := strings.ReplaceAll(rest[:at], "+", "%20")
	return "postgres://" + auth + rest[at:]
}

// Ping verifies that the handle can reach its server.
func Ping(ctx context.Context, h *Handle, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return h.DB.PingContext(ctx)
}
