package migrate

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/multierr"
)

const (
	versionLayout = "20060102150405"

	markerUp        = "-- +goose Up"
	markerDown      = "-- +goose Down"
	markerStmtBegin = "-- +goose StatementBegin"
	markerStmtEnd   = "-- +goose StatementEnd"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)

// Migration is one goose SQL file in a migrations directory.
type Migration struct {
	Version int64
	Name    string
	File    string
}

// ScanDir lists the SQL migrations in dir ordered by version and checks each
// one. Every problem found is reported, not just the first.
func ScanDir(dir string) ([]Migration, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	var (
		found    []Migration
		problems error
		seen     = map[int64]string{}
	)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			problems = multierr.Append(problems, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name))
			continue
		}
		version, _ := strconv.ParseInt(m[1], 10, 64)
		if prev, ok := seen[version]; ok {
			problems = multierr.Append(problems, fmt.Errorf("duplicate migration version %d in %q and %q", version, prev, name))
			continue
		}
		seen[version] = name

		if err := checkSQLFile(filepath.Join(dir, name)); err != nil {
			problems = multierr.Append(problems, fmt.Errorf("migration %q: %w", name, err))
		}
		found = append(found, Migration{Version: version, Name: m[2], File: name})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Version < found[j].Version })
	return found, problems
}

// ValidateDir reports every malformed migration in dir.
func ValidateDir(dir string) error {
	_, err := ScanDir(dir)
	return err
}

// checkSQLFile requires an Up section holding at least one statement, a Down
// section after it, and balanced StatementBegin/End markers.
func checkSQLFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var (
		section       string
		upStatements  int
		open, lineNum int
		problems      error
	)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, markerUp):
			section = "up"
		case strings.HasPrefix(line, markerDown):
			if section != "up" {
				problems = multierr.Append(problems, fmt.Errorf("line %d: Down section before Up", lineNum))
			}
			section = "down"
		case strings.HasPrefix(line, markerStmtBegin):
			open++
		case strings.HasPrefix(line, markerStmtEnd):
			if open == 0 {
				problems = multierr.Append(problems, fmt.Errorf("line %d: StatementEnd without StatementBegin", lineNum))
				continue
			}
			open--
		case line == "" || strings.HasPrefix(line, "--"):
		default:
			if section == "up" {
				upStatements++
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if section == "" {
		problems = multierr.Append(problems, fmt.Errorf("missing %q", markerUp))
	} else if section != "down" {
		problems = multierr.Append(problems, fmt.Errorf("missing %q", markerDown))
	}
	if upStatements == 0 && section != "" {
		problems = multierr.Append(problems, fmt.Errorf("no SQL in the Up section"))
	}
	if open != 0 {
		problems = multierr.Append(problems, fmt.Errorf("%d StatementBegin without StatementEnd", open))
	}
	return problems
}
