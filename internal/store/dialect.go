package store

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/pkg/errors"
)

// dialect covers the SQL differences between the supported drivers.
type dialect struct {
	driver string
}

func newDialect(driver string) (dialect, error) {
	switch driver {
	case "sqlserver", "postgres", "sqlite3":
		return dialect{driver: driver}, nil
	}
	return dialect{}, errors.Errorf("unsupported sql driver %q", driver)
}

// arg returns the n-th (1-based) bind parameter.
func (d dialect) arg(n int) string {
	switch d.driver {
	case "sqlserver":
		return fmt.Sprintf("@p%d", n)
	case "postgres":
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// args returns bind parameters from..from+count-1 joined by commas.
func (d dialect) args(from, count int) string {
	out := make([]string, count)
	for i := range out {
		out[i] = d.arg(from + i)
	}
	return strings.Join(out, ", ")
}

// insert builds an INSERT statement. When returning is set the statement
// yields the generated id column as a single row.
func (d dialect) insert(table string, cols []string, returning string) string {
	colList := strings.Join(cols, ", ")
	values := d.args(1, len(cols))
	if returning == "" {
		return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, colList, values)
	}
	if d.driver == "sqlserver" {
		return fmt.Sprintf("INSERT INTO %s (%s) OUTPUT INSERTED.%s VALUES (%s)", table, colList, returning, values)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s", table, colList, values, returning)
}

// isDuplicate recognizes the driver's unique constraint violation.
func (d dialect) isDuplicate(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		// 2627: unique constraint, 2601: unique index.
		return msErr.Number == 2627 || msErr.Number == 2601
	}
	return false
}
