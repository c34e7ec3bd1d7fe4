package migrate

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

const (
	annotationUp    = "-- +goose Up"
	annotationDown  = "-- +goose Down"
	annotationBegin = "-- +goose StatementBegin"
	annotationEnd   = "-- +goose StatementEnd"
)

// Validate checks every .sql file at the root of fsys: the filename carries a
// unique 14 digit version, Up comes before Down, and StatementBegin/End pairs
// are balanced inside each section.
func Validate(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	seen := map[string]string{}
	count := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		if prev, ok := seen[m[1]]; ok {
			return fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, name)
		}
		seen[m[1]] = name
		count++

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read %q: %w", name, err)
		}
		if err := checkAnnotations(body); err != nil {
			return fmt.Errorf("migration %q: %w", name, err)
		}
	}

	if count == 0 {
		return fmt.Errorf("no migrations found")
	}
	return nil
}

// ValidateDir runs Validate against a directory on disk.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	if err := Validate(Source(dir)); err != nil {
		return fmt.Errorf("%s: %w", dir, err)
	}
	return nil
}

func checkAnnotations(body []byte) error {
	var (
		sawUp, sawDown bool
		open           bool
		line           int
	)
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		line++
		switch strings.TrimSpace(sc.Text()) {
		case annotationUp:
			if sawUp {
				return fmt.Errorf("line %d: second %q", line, annotationUp)
			}
			if open {
				return fmt.Errorf("line %d: %q inside an open statement", line, annotationUp)
			}
			sawUp = true
		case annotationDown:
			if !sawUp {
				return fmt.Errorf("line %d: %q before %q", line, annotationDown, annotationUp)
			}
			if sawDown {
				return fmt.Errorf("line %d: second %q", line, annotationDown)
			}
			if open {
				return fmt.Errorf("line %d: %q inside an open statement", line, annotationDown)
			}
			sawDown = true
		case annotationBegin:
			if open {
				return fmt.Errorf("line %d: nested %q", line, annotationBegin)
			}
			open = true
		case annotationEnd:
			if !open {
				return fmt.Errorf("line %d: %q without %q", line, annotationEnd, annotationBegin)
			}
			open = false
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}

	switch {
	case !sawUp:
		return fmt.Errorf("missing %q", annotationUp)
	case !sawDown:
		return fmt.Errorf("missing %q", annotationDown)
	case open:
		return fmt.Errorf("unterminated %q", annotationBegin)
	}
	return nil
}
