package migrate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

const (
	markerUp   = "-- +goose Up"
	markerDown = "-- +goose Down"
)

var (
	filenameRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)
	unsafeRe   = regexp.MustCompile(`[^a-z0-9]+`)
)

// File is one goose SQL migration on disk.
type File struct {
	Version int64
	Name    string
	Path    string
}

// ParseFilename splits "<YYYYMMDDHHMMSS>_<name>.sql".
func ParseFilename(base string) (File, error) {
	m := filenameRe.FindStringSubmatch(base)
	if m == nil {
		return File{}, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", base)
	}
	if _, err := time.Parse(versionLayout, m[1]); err != nil {
		return File{}, fmt.Errorf("migration %q has an invalid timestamp: %w", base, err)
	}
	version, _ := strconv.ParseInt(m[1], 10, 64)
	return File{Version: version, Name: m[2]}, nil
}

// slug lowercases name and collapses anything outside [a-z0-9] into "_".
func slug(name string) string {
	return strings.Trim(unsafeRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
}

// CreateSQLMigration writes an empty Up/Down migration stamped with the
// current UTC time and returns its path.
func CreateSQLMigration(dir, name string) (string, error) {
	if dir == "" {
		return "", errors.New("dir is required")
	}
	safe := slug(name)
	if safe == "" {
		return "", fmt.Errorf("name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.sql", time.Now().UTC().Format(versionLayout), safe))
	body := fmt.Sprintf("%s\n-- +goose StatementBegin\n-- %s\n-- +goose StatementEnd\n\n%s\n-- +goose StatementBegin\n-- rollback %s\n-- +goose StatementEnd\n",
		markerUp, safe, markerDown, safe)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create migration %q: %w", path, err)
	}
	if _, err := f.WriteString(body); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write migration %q: %w", path, err)
	}
	return path, f.Close()
}

// ValidateDir checks every .sql file in dir: well-formed unique versions and
// both goose sections present.
func ValidateDir(dir string) error {
	_, err := Scan(dir)
	return err
}

// Scan returns the validated migrations of dir ordered by version.
func Scan(dir string) ([]File, error) {
	if dir == "" {
		return nil, errors.New("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	var files []File
	byVersion := make(map[int64]string)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
			continue
		}
		file, err := ParseFilename(entry.Name())
		if err != nil {
			return nil, err
		}
		if prev, dup := byVersion[file.Version]; dup {
			return nil, fmt.Errorf("duplicate migration version %d in %q and %q", file.Version, prev, entry.Name())
		}
		byVersion[file.Version] = entry.Name()

		file.Path = filepath.Join(dir, entry.Name())
		if err := checkSections(file.Path); err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no migrations found in %q", dir)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}

func checkSections(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %q: %w", path, err)
	}
	text := string(raw)
	up := strings.Index(text, markerUp)
	down := strings.Index(text, markerDown)
	switch {
	case up < 0:
		return fmt.Errorf("migration %q missing %q", filepath.Base(path), markerUp)
	case down < 0:
		return fmt.Errorf("migration %q missing %q", filepath.Base(path), markerDown)
	case down < up:
		return fmt.Errorf("migration %q declares Down before Up", filepath.Base(path))
	}
	return nil
}
