package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoProjectConfig is returned when config set runs outside a project.
var ErrNoProjectConfig = errors.New("no .chisel/config.yaml found (run 'chisel init' first)")

// ProjectConfigPath returns the config.yaml of the nearest project.
func ProjectConfigPath() (string, error) {
	if path := findProjectConfig(); path != "" {
		return path, nil
	}
	return "", ErrNoProjectConfig
}

// SetYamlConfig sets a dotted key in the yaml file at path, creating
// intermediate mappings as needed. Other keys and comments are preserved.
func SetYamlConfig(path, key, value string) error {
	if key == "" {
		return fmt.Errorf("config key is required")
	}

	data, err := os.ReadFile(path) // #nosec G304 - path from ProjectConfigPath or caller
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}

	var root yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &root); err != nil {
			return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}
	// Empty or comment-only files have no document mapping yet.
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		root = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode}}}
	}
	if root.Content[0].Kind != yaml.MappingNode {
		root.Content[0] = &yaml.Node{Kind: yaml.MappingNode}
	}

	setPath(root.Content[0], strings.Split(key, "."), scalarNode(value))

	var buf strings.Builder
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&root); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to close encoder: %w", err)
	}
	if err := os.WriteFile(path, []byte(buf.String()), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}

	// Reload so later reads in this process see the change.
	if v != nil && v.ConfigFileUsed() == path {
		_ = v.ReadInConfig()
	}
	return nil
}

// setPath walks mapping along parts, replacing or appending the leaf.
func setPath(mapping *yaml.Node, parts []string, leaf *yaml.Node) {
	for i := 0; i < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value != parts[0] {
			continue
		}
		if len(parts) == 1 {
			mapping.Content[i+1] = leaf
			return
		}
		child := mapping.Content[i+1]
		if child.Kind != yaml.MappingNode {
			child = &yaml.Node{Kind: yaml.MappingNode}
			mapping.Content[i+1] = child
		}
		setPath(child, parts[1:], leaf)
		return
	}

	keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: parts[0]}
	if len(parts) == 1 {
		mapping.Content = append(mapping.Content, keyNode, leaf)
		return
	}
	child := &yaml.Node{Kind: yaml.MappingNode}
	mapping.Content = append(mapping.Content, keyNode, child)
	setPath(child, parts[1:], leaf)
}

// scalarNode tags booleans and integers so they round-trip unquoted.
func scalarNode(value string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Value: value}
	switch strings.ToLower(value) {
	case "true", "false":
		n.Tag = "!!bool"
		n.Value = strings.ToLower(value)
		return n
	}
	if isNumeric(value) {
		n.Tag = "!!int"
		if strings.Contains(value, ".") {
			n.Tag = "!!float"
		}
		return n
	}
	n.Tag = "!!str"
	return n
}

func isNumeric(s string) bool {
	if s == "" || s == "-" {
		return false
	}
	dots := 0
	for i, c := range s {
		switch {
		case c == '-' && i == 0:
		case c == '.':
			dots++
		case c < '0' || c > '9':
			return false
		}
	}
	return dots <= 1
}

// StarterConfig is written by chisel init.
const StarterConfig = `# chisel configuration
#
# Every key can also be set with a CHISEL_ environment variable,
# e.g. CHISEL_STORAGE_BACKEND=dolt or CHISEL_HOOKS_TIMEOUT=60s.

# json: false
# actor: ""

storage:
  backend: sqlite
  # dolt:
  #   host: 127.0.0.1
  #   port: 3307
  #   user: root
  #   database: chisel
  #   embedded: false

hooks:
  timeout: 300s
  parallelism: 1

# ai:
#   enabled: false
#   model: claude-haiku-4-5
`
