// Package migrations exposes the embedded wallet snapshot schema per SQL dialect.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	wallet "github.com/goliatone/go-wallet"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	DefaultSourceLabel = "go-wallet"

	rootDir = "data/sql/migrations"
)

// Source is the migration directory for one dialect.
type Source struct {
	Dialect string
	Dir     string
	FS      fs.FS
}

// Plan records what Register handed to the host migrator.
type Plan struct {
	SourceLabel string
	Dialects    []string
	Sources     []Source
}

type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type Option func(*Plan)

func WithSourceLabel(label string) Option {
	return func(p *Plan) {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			p.SourceLabel = trimmed
		}
	}
}

// WithDialects limits registration to the named dialects.
func WithDialects(dialects ...string) Option {
	return func(p *Plan) {
		selected := make([]string, 0, len(dialects))
		for _, dialect := range dialects {
			dialect = normalizeDialect(dialect)
			if dialect == "" || contains(selected, dialect) {
				continue
			}
			selected = append(selected, dialect)
		}
		if len(selected) > 0 {
			p.Dialects = selected
		}
	}
}

// Sources resolves the postgres and sqlite directories of root, or of the
// embedded module filesystem when root is nil.
func Sources(root fs.FS) ([]Source, error) {
	if root == nil {
		root = wallet.GetMigrationsFS()
	}
	base, err := fs.Sub(root, rootDir)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve %s: %w", rootDir, err)
	}
	sqliteFS, err := fs.Sub(base, DialectSQLite)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite directory: %w", err)
	}

	sources := []Source{
		{Dialect: DialectPostgres, Dir: rootDir, FS: base},
		{Dialect: DialectSQLite, Dir: rootDir + "/" + DialectSQLite, FS: sqliteFS},
	}
	for _, source := range sources {
		ups, err := fs.Glob(source.FS, "*.up.sql")
		if err != nil {
			return nil, fmt.Errorf("migrations: glob %s: %w", source.Dir, err)
		}
		if len(ups) == 0 {
			return nil, fmt.Errorf("migrations: %s has no *.up.sql files", source.Dir)
		}
	}
	return sources, nil
}

// ForDialect returns the embedded migration directory for dialect.
func ForDialect(dialect string) (fs.FS, error) {
	sources, err := Sources(nil)
	if err != nil {
		return nil, err
	}
	dialect = normalizeDialect(dialect)
	for _, source := range sources {
		if source.Dialect == dialect {
			return source.FS, nil
		}
	}
	return nil, fmt.Errorf("migrations: unsupported dialect %q", dialect)
}

// Register hands each selected dialect directory to registerFn.
func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) (Plan, error) {
	plan := Plan{
		SourceLabel: DefaultSourceLabel,
		Dialects:    []string{DialectPostgres, DialectSQLite},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&plan)
		}
	}
	if registerFn == nil {
		return plan, fmt.Errorf("migrations: register function is required")
	}

	sources, err := Sources(nil)
	if err != nil {
		return plan, err
	}
	for _, source := range sources {
		if !contains(plan.Dialects, source.Dialect) {
			continue
		}
		if err := registerFn(ctx, source.Dialect, plan.SourceLabel, source.FS); err != nil {
			return plan, fmt.Errorf("migrations: register %s: %w", source.Dialect, err)
		}
		plan.Sources = append(plan.Sources, source)
	}
	if len(plan.Sources) == 0 {
		return plan, fmt.Errorf("migrations: no sources match dialects %v", plan.Dialects)
	}
	return plan, nil
}

func normalizeDialect(dialect string) string {
	dialect = strings.ToLower(strings.TrimSpace(dialect))
	switch dialect {
	case "sqlite3":
		return DialectSQLite
	case "pg", "postgresql":
		return DialectPostgres
	}
	return dialect
}

func contains(values []string, value string) bool {
	for _, existing := range values {
		if existing == value {
			return true
		}
	}
	return false
}
