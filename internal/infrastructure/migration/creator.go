package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"
)

const migrationTemplate = `-- {{.Name}} ({{.Direction}})
-- Created: {{.Timestamp}}
{{- if .Description}}
-- {{.Description}}
{{- end}}

`

var migrationTmpl = template.Must(template.New("migration").Parse(migrationTemplate))

// MigrationFile is a generated up/down pair
type MigrationFile struct {
	Version     uint
	Name        string
	Description string
	UpPath      string
	DownPath    string
}

// Migration is one versioned pair found on disk
type Migration struct {
	Version uint
	Name    string
	HasDown bool
}

// CreateMigration writes the next sequential up/down pair into dir.
// Versions are zero-padded to six digits.
func CreateMigration(dir, name, description string) (*MigrationFile, error) {
	slug := sanitizeName(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	existing, err := ListMigrations(dir)
	if err != nil {
		return nil, err
	}
	var next uint = 1
	if n := len(existing); n > 0 {
		next = existing[n-1].Version + 1
	}

	base := fmt.Sprintf("%06d_%s", next, slug)
	mf := &MigrationFile{
		Version:     next,
		Name:        slug,
		Description: description,
		UpPath:      filepath.Join(dir, base+".up.sql"),
		DownPath:    filepath.Join(dir, base+".down.sql"),
	}

	stamp := time.Now().UTC().Format(time.RFC3339)
	if err := writeMigration(mf.UpPath, mf, "up", stamp); err != nil {
		return nil, err
	}
	if err := writeMigration(mf.DownPath, mf, "down", stamp); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, err
	}
	return mf, nil
}

func writeMigration(path string, mf *MigrationFile, direction, stamp string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	return migrationTmpl.Execute(f, map[string]string{
		"Name":        mf.Name,
		"Direction":   direction,
		"Timestamp":   stamp,
		"Description": mf.Description,
	})
}

// ListMigrations returns the migrations in dir ordered by version.
// A missing directory yields an empty list.
func ListMigrations(dir string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	byVersion := make(map[uint]*Migration)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version, name, direction, ok := parseFileName(entry.Name())
		if !ok {
			continue
		}
		m, seen := byVersion[version]
		if !seen {
			m = &Migration{Version: version, Name: name}
			byVersion[version] = m
		}
		if direction == "down" {
			m.HasDown = true
		}
	}

	out := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// parseFileName splits "000003_add_orders.up.sql"
func parseFileName(file string) (version uint, name, direction string, ok bool) {
	rest, found := strings.CutSuffix(file, ".sql")
	if !found {
		return 0, "", "", false
	}
	switch {
	case strings.HasSuffix(rest, ".up"):
		direction = "up"
	case strings.HasSuffix(rest, ".down"):
		direction = "down"
	default:
		return 0, "", "", false
	}
	rest = strings.TrimSuffix(rest, "."+direction)

	num, name, found := strings.Cut(rest, "_")
	if !found {
		return 0, "", "", false
	}
	v, err := strconv.ParseUint(num, 10, 64)
	if err != nil {
		return 0, "", "", false
	}
	return uint(v), name, direction, true
}

// sanitizeName lowercases name and collapses separators into underscores
func sanitizeName(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			pendingSep = true
		}
	}
	return b.String()
}
