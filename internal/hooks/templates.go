package hooks

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// TemplatesFile is the per-project file holding user hook templates.
const TemplatesFile = "hook-templates.toml"

// Template is a named, reusable hook command.
type Template struct {
	Name        string `toml:"-" json:"name"`
	Command     string `toml:"command" json:"command"`
	Description string `toml:"description" json:"description,omitempty"`
}

// BuiltinTemplates are compiled into the binary.
var BuiltinTemplates = map[string]Template{
	"pytest":        {Command: "pytest tests/ -q", Description: "Python test suite"},
	"pytest-cov":    {Command: "pytest tests/ --cov --cov-fail-under=80", Description: "Python tests with 80% coverage floor"},
	"ruff":          {Command: "ruff check .", Description: "Python lint"},
	"ruff-fix":      {Command: "ruff check --fix .", Description: "Python lint with autofix"},
	"mypy":          {Command: "mypy src/", Description: "Python type check"},
	"black":         {Command: "black --check .", Description: "Python formatting"},
	"isort":         {Command: "isort --check-only .", Description: "Python import order"},
	"eslint":        {Command: "eslint .", Description: "JavaScript lint"},
	"prettier":      {Command: "prettier --check .", Description: "JavaScript formatting"},
	"tsc":           {Command: "tsc --noEmit", Description: "TypeScript type check"},
	"jest":          {Command: "jest --ci", Description: "JavaScript test suite"},
	"cargo-test":    {Command: "cargo test", Description: "Rust test suite"},
	"cargo-clippy":  {Command: "cargo clippy -- -D warnings", Description: "Rust lint"},
	"cargo-fmt":     {Command: "cargo fmt --check", Description: "Rust formatting"},
	"go-test":       {Command: "go test ./...", Description: "Go test suite"},
	"go-vet":        {Command: "go vet ./...", Description: "Go static checks"},
	"golangci-lint": {Command: "golangci-lint run", Description: "Go lint"},
}

type userTemplates struct {
	Templates map[string]Template `toml:"templates"`
}

// LoadUserTemplates reads <chiselDir>/hook-templates.toml if it exists:
//
//	[templates.integration]
//	command = "make integration"
//	description = "slow tests"
func LoadUserTemplates(chiselDir string) (map[string]Template, error) {
	if chiselDir == "" {
		return nil, nil
	}
	path := filepath.Join(chiselDir, TemplatesFile)
	data, err := os.ReadFile(path) // #nosec G304 -- path is constructed from the project directory
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", TemplatesFile, err)
	}

	var user userTemplates
	if err := toml.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("parse %s: %w", TemplatesFile, err)
	}
	for name, tmpl := range user.Templates {
		if strings.TrimSpace(tmpl.Command) == "" {
			return nil, fmt.Errorf("%s: template %q has no command", TemplatesFile, name)
		}
	}
	return user.Templates, nil
}

// Templates returns built-in templates merged with the user's; user entries
// override built-ins of the same name.
func Templates(chiselDir string) (map[string]Template, error) {
	result := make(map[string]Template, len(BuiltinTemplates))
	for name, tmpl := range BuiltinTemplates {
		tmpl.Name = name
		result[name] = tmpl
	}
	user, err := LoadUserTemplates(chiselDir)
	if err != nil {
		return nil, err
	}
	for name, tmpl := range user {
		tmpl.Name = name
		result[name] = tmpl
	}
	return result, nil
}

// SortedTemplates returns templates ordered by name.
func SortedTemplates(templates map[string]Template) []Template {
	out := make([]Template, 0, len(templates))
	for _, t := range templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ResolveCommand expands arg when it names a template; any other string is
// taken as a literal command.
func ResolveCommand(templates map[string]Template, arg string) (command string, fromTemplate bool) {
	if tmpl, ok := templates[strings.TrimSpace(arg)]; ok {
		return tmpl.Command, true
	}
	return arg, false
}
