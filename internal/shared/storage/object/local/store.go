package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"coop-site/internal/shared/storage/object"
	"coop-site/internal/shared/util"
)

// Naming selects how stored files are named.
type Naming int

const (
	// FixedName writes week<N>.pdf and overwrites in place.
	FixedName Naming = iota
	// UniqueName writes <sanitized-base>-week<N>-<unix-millis>.pdf.
	UniqueName
)

// Store implements object.Backend on the local filesystem. Files land in dir
// and are published under urlPrefix by the static file server.
type Store struct {
	dir       string
	urlPrefix string
	naming    Naming
	now       func() time.Time
}

// NewFixed creates a store that keeps one file per week.
func NewFixed(dir, urlPrefix string) *Store {
	return &Store{dir: dir, urlPrefix: normalizeURLPrefix(urlPrefix), naming: FixedName, now: time.Now}
}

// NewUnique creates a store that writes a new file for every upload.
func NewUnique(dir, urlPrefix string) *Store {
	return &Store{dir: dir, urlPrefix: normalizeURLPrefix(urlPrefix), naming: UniqueName, now: time.Now}
}

// Name implements object.Backend.
func (s *Store) Name() string {
	if s.naming == UniqueName {
		return "local-unique"
	}
	return "local"
}

// Dir returns the directory files are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Store writes data and returns its public path.
func (s *Store) Store(ctx context.Context, data []byte, fileName string, week int) (object.Reference, error) {
	if err := ctx.Err(); err != nil {
		return object.Reference{}, err
	}
	if err := object.CheckSize(data); err != nil {
		return object.Reference{}, err
	}
	if err := object.CheckWeek(week); err != nil {
		return object.Reference{}, err
	}

	name := s.objectName(fileName, week)
	if err := s.write(name, data); err != nil {
		return object.Reference{}, err
	}
	return s.reference(name), nil
}

// Remove deletes the file behind ref. Missing files are ignored.
func (s *Store) Remove(ctx context.Context, ref object.Reference) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, ok := s.ownedName(ref)
	if !ok {
		return object.ErrNotOwned
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return object.FromFS("remove", err)
	}
	return nil
}

func (s *Store) objectName(fileName string, week int) string {
	if s.naming == FixedName {
		return fmt.Sprintf("week%d.pdf", week)
	}
	base := "menu"
	if sanitized, err := util.SanitizeFileName(fileName); err == nil {
		if b := util.BaseName(sanitized); b != "" {
			base = b
		}
	}
	// the week keeps same-millisecond uploads for different weeks apart
	return fmt.Sprintf("%s-week%d-%d.pdf", base, week, s.now().UnixMilli())
}

func (s *Store) reference(name string) object.Reference {
	return object.Reference{Path: s.urlPrefix + "/" + name}
}

// write replaces dir/name through a temp file and rename so readers never
// see a partial file.
func (s *Store) write(name string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return object.FromFS("mkdir", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return object.FromFS("create", err)
	}
	tmpPath := tmp.Name()

	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil {
		os.Remove(tmpPath)
		return object.FromFS("write", werr)
	}
	if cerr != nil {
		os.Remove(tmpPath)
		return object.FromFS("flush", cerr)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return object.FromFS("chmod", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpPath)
		return object.FromFS("rename", err)
	}
	return nil
}

func (s *Store) ownedName(ref object.Reference) (string, bool) {
	if ref.Path == "" {
		return "", false
	}
	rest, ok := strings.CutPrefix(ref.Path, s.urlPrefix+"/")
	if !ok {
		return "", false
	}
	name := path.Base(rest)
	if name != rest || name == "." || name == ".." || strings.HasPrefix(name, ".upload-") {
		return "", false
	}
	return name, true
}

func normalizeURLPrefix(prefix string) string {
	p := "/" + strings.Trim(strings.TrimSpace(prefix), "/")
	if p == "/" {
		return ""
	}
	return p
}

var _ object.Backend = (*Store)(nil)
