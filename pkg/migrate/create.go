package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var nameSanitizeRe = regexp.MustCompile(`[^a-z0-9_]+`)

// The scaffold carries no SQL, so ValidateDir rejects it until it is filled in.
const migrationScaffold = `-- +goose Up
-- +goose StatementBegin
-- %[1]s: statements must run on postgres and sqlite
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- rollback %[1]s
-- +goose StatementEnd
`

// CreateSQLMigration writes an empty goose migration <dir>/<version>_<name>.sql
// versioned at the current UTC time.
func CreateSQLMigration(dir string, name string) (string, error) {
	return CreateSQLMigrationAt(dir, name, time.Now().UTC())
}

// CreateSQLMigrationAt is CreateSQLMigration with an explicit clock. The
// version is bumped past the newest file in dir so goose never sees it out of
// order, even when clocks disagree.
func CreateSQLMigrationAt(dir, name string, now time.Time) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	safe := sanitizeMigrationName(name)
	if safe == "" {
		return "", fmt.Errorf("name %q results in empty sanitized filename", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	existing, _ := ScanDir(dir)
	version := nextVersion(existing, now.UTC())
	fullpath := filepath.Join(dir, fmt.Sprintf("%s_%s.sql", version.Format(versionLayout), safe))

	f, err := os.OpenFile(fullpath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create migration %q: %w", fullpath, err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, migrationScaffold, safe); err != nil {
		return "", fmt.Errorf("write migration %q: %w", fullpath, err)
	}
	return fullpath, nil
}

func sanitizeMigrationName(name string) string {
	safe := strings.ToLower(strings.TrimSpace(name))
	safe = nameSanitizeRe.ReplaceAllString(safe, "_")
	return strings.Trim(safe, "_")
}

func nextVersion(existing []Migration, now time.Time) time.Time {
	version := now.Truncate(time.Second)
	if len(existing) == 0 {
		return version
	}
	latest, err := time.Parse(versionLayout, fmt.Sprintf("%014d", existing[len(existing)-1].Version))
	if err == nil && !version.After(latest) {
		version = latest.Add(time.Second)
	}
	return version
}
