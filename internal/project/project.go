// Package project locates and initializes a chisel project.
//
// A project is any directory containing a .chisel/ subdirectory. The
// resolved root is passed explicitly to the store and hook pipeline; nothing
// below this package reads the working directory.
package project

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/yidong72/chisel/internal/config"
	"github.com/yidong72/chisel/internal/idgen"
)

// Keys of project-level settings kept in the store's config table.
const (
	KeyProjectName     = "project_name"
	KeyIDPrefix        = "id_prefix"
	KeyDefaultPriority = "default_priority"
)

// DefaultPriority applies when default_priority is unset or unparsable.
const DefaultPriority = 2

// DBFile is the SQLite database file inside the .chisel directory.
const DBFile = "chisel.db"

// DoltDir is the embedded Dolt database directory inside .chisel.
const DoltDir = "dolt"

// ErrNotInitialized is returned when no .chisel directory can be found.
var ErrNotInitialized = errors.New("no .chisel directory found (run 'chisel init' first)")

// Project is a discovered or freshly initialized project.
type Project struct {
	Root string // directory containing .chisel; hooks run here
	Dir  string // the .chisel directory itself
}

// DBPath returns the default SQLite database path.
func (p *Project) DBPath() string {
	return filepath.Join(p.Dir, DBFile)
}

// DoltPath returns the embedded Dolt directory.
func (p *Project) DoltPath() string {
	return filepath.Join(p.Dir, DoltDir)
}

// ConfigPath returns the project's config.yaml.
func (p *Project) ConfigPath() string {
	return filepath.Join(p.Dir, config.FileName)
}

// Discover finds the project for the current working directory.
// CHISEL_DIR, when set, names the .chisel directory directly.
func Discover() (*Project, error) {
	if dir := os.Getenv("CHISEL_DIR"); dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve CHISEL_DIR: %w", err)
		}
		if info, err := os.Stat(abs); err != nil || !info.IsDir() {
			return nil, fmt.Errorf("CHISEL_DIR %s is not a directory: %w", abs, ErrNotInitialized)
		}
		return &Project{Root: filepath.Dir(abs), Dir: abs}, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return DiscoverFrom(cwd)
}

// DiscoverFrom walks up from start looking for a .chisel directory.
func DiscoverFrom(start string) (*Project, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return nil, err
	}
	for {
		candidate := filepath.Join(dir, config.DirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return &Project{Root: dir, Dir: candidate}, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, ErrNotInitialized
		}
		dir = parent
	}
}

// Init creates root/.chisel with a starter config.yaml and .gitignore.
// Existing files are left untouched, so Init is safe to repeat.
func Init(root string) (*Project, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	p := &Project{Root: abs, Dir: filepath.Join(abs, config.DirName)}
	if err := os.MkdirAll(p.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", p.Dir, err)
	}
	if err := writeIfMissing(p.ConfigPath(), config.StarterConfig); err != nil {
		return nil, err
	}
	if err := writeIfMissing(filepath.Join(p.Dir, ".gitignore"), gitignore); err != nil {
		return nil, err
	}
	return p, nil
}

const gitignore = `# Local database and logs
chisel.db
chisel.db-*
dolt/
events.log
`

func writeIfMissing(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ConfigStore is the subset of the task store used for project settings.
type ConfigStore interface {
	SetConfig(ctx context.Context, key, value string) error
	GetConfig(ctx context.Context, key string) (string, error)
}

// Seed records the project settings in the store. An empty name defaults to
// the root directory's base name and an empty prefix to idgen.DefaultPrefix.
// Values already present are kept unless overridden explicitly.
func Seed(ctx context.Context, store ConfigStore, p *Project, name, prefix string) error {
	if name == "" {
		existing, err := store.GetConfig(ctx, KeyProjectName)
		if err != nil {
			return err
		}
		name = existing
		if name == "" {
			name = filepath.Base(p.Root)
		}
	}
	if prefix == "" {
		existing, err := store.GetConfig(ctx, KeyIDPrefix)
		if err != nil {
			return err
		}
		prefix = existing
		if prefix == "" {
			prefix = idgen.DefaultPrefix
		}
	}
	if err := idgen.ValidatePrefix(prefix); err != nil {
		return err
	}

	if err := store.SetConfig(ctx, KeyProjectName, name); err != nil {
		return fmt.Errorf("failed to set %s: %w", KeyProjectName, err)
	}
	if err := store.SetConfig(ctx, KeyIDPrefix, prefix); err != nil {
		return fmt.Errorf("failed to set %s: %w", KeyIDPrefix, err)
	}
	current, err := store.GetConfig(ctx, KeyDefaultPriority)
	if err != nil {
		return err
	}
	if current == "" {
		if err := store.SetConfig(ctx, KeyDefaultPriority, strconv.Itoa(DefaultPriority)); err != nil {
			return fmt.Errorf("failed to set %s: %w", KeyDefaultPriority, err)
		}
	}
	return nil
}

// DefaultPriorityFrom parses default_priority from the store, falling back
// to DefaultPriority when it is missing or outside 0..4.
func DefaultPriorityFrom(ctx context.Context, store ConfigStore) int {
	raw, err := store.GetConfig(ctx, KeyDefaultPriority)
	if err != nil || raw == "" {
		return DefaultPriority
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > 4 {
		return DefaultPriority
	}
	return n
}

// IDPrefixFrom returns the configured id prefix or idgen.DefaultPrefix.
func IDPrefixFrom(ctx context.Context, store ConfigStore) string {
	raw, err := store.GetConfig(ctx, KeyIDPrefix)
	if err != nil || raw == "" {
		return idgen.DefaultPrefix
	}
	return raw
}
