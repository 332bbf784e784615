// Package migrations bundles the SQL schema for the region reference store.
package migrations

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed *.sql
var files embed.FS

// Statements returns the statements of a migration direction ("up" or
// "down") split on semicolons, so drivers that reject multi-statement
// execs can run them one at a time.
func Statements(direction string) ([]string, error) {
	if direction != "up" && direction != "down" {
		return nil, fmt.Errorf("unknown migration direction %q", direction)
	}
	content, err := files.ReadFile("001_create_regions." + direction + ".sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read migration: %w", err)
	}

	var stmts []string
	for _, s := range strings.Split(string(content), ";") {
		if s = strings.TrimSpace(s); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts, nil
}
