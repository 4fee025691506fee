// Package config holds the flat key/value settings of a recording project.
//
// Values come from built-in defaults, the user configuration file, the
// project file and command-line overrides, in that order. Nested YAML is
// flattened into dotted keys, so
//
//	produce:
//	  overlay:
//	    fraction: 6
//
// is read back with Int("produce.overlay.fraction").
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is a string-keyed, string-valued settings map with typed accessors.
type Config struct {
	values map[string]string
	// sources records which file (or "override") set each key, for diagnostics.
	sources map[string]string
}

// New returns an empty configuration; accessors fall back to the defaults.
func New() *Config {
	return &Config{
		values:  make(map[string]string),
		sources: make(map[string]string),
	}
}

// Load reads the given files in order; later files override earlier ones.
// Missing files are skipped.
func Load(paths ...string) (*Config, error) {
	cfg := New()
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := cfg.LoadFile(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
	}
	return cfg, nil
}

// LoadFile merges one YAML file into the configuration.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return c.merge(data, path)
}

// LoadBytes merges a YAML document, mainly for tests.
func (c *Config) LoadBytes(data []byte) error {
	return c.merge(data, "inline")
}

func (c *Config) merge(data []byte, origin string) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", origin, err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("parse %s: top level must be a mapping", origin)
	}
	return c.flatten("", root, origin)
}

func (c *Config) flatten(prefix string, node *yaml.Node, origin string) error {
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		key := k.Value
		if prefix != "" {
			key = prefix + "." + key
		}
		switch v.Kind {
		case yaml.MappingNode:
			if err := c.flatten(key, v, origin); err != nil {
				return err
			}
		case yaml.ScalarNode:
			if v.Tag == "!!null" {
				c.set(key, "", origin)
				continue
			}
			c.set(key, v.Value, origin)
		case yaml.AliasNode:
			if v.Alias != nil && v.Alias.Kind == yaml.ScalarNode {
				c.set(key, v.Alias.Value, origin)
				continue
			}
			return fmt.Errorf("parse %s: key %q: unsupported alias", origin, key)
		default:
			return fmt.Errorf("parse %s: key %q: lists are not supported", origin, key)
		}
	}
	return nil
}

func (c *Config) set(key, value, origin string) {
	c.values[key] = value
	c.sources[key] = origin
}

// Set stores value for key, overriding any file value.
func (c *Config) Set(key, value string) {
	c.set(key, value, "override")
}

// ApplyOverrides parses KEY=VALUE pairs as given on the command line.
func (c *Config) ApplyOverrides(pairs []string) error {
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return fmt.Errorf("override %q: want key=value", pair)
		}
		c.Set(key, strings.TrimSpace(value))
	}
	return nil
}

// Has reports whether key was set explicitly (file or override), ignoring defaults.
func (c *Config) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

// Source returns where key was set, or "default"/"" when it was not.
func (c *Config) Source(key string) string {
	if s, ok := c.sources[key]; ok {
		return s
	}
	if _, ok := defaults[key]; ok {
		return "default"
	}
	return ""
}

// String returns the explicit value or the default, trimmed.
func (c *Config) String(key string) string {
	if v, ok := c.values[key]; ok {
		return strings.TrimSpace(v)
	}
	return defaults[key]
}

// Bool interprets the value the way INI-style configs do. Unparseable values
// fall back to the default, and to false if there is none.
func (c *Config) Bool(key string) bool {
	if v, ok := c.values[key]; ok {
		if b, err := parseBool(v); err == nil {
			return b
		}
	}
	b, _ := parseBool(defaults[key])
	return b
}

// Int returns the integer value or the default (0 without one).
func (c *Config) Int(key string) int {
	if v, ok := c.values[key]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	n, _ := strconv.Atoi(defaults[key])
	return n
}

// Float returns the float value or the default (0 without one).
func (c *Config) Float(key string) float64 {
	if v, ok := c.values[key]; ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	f, _ := strconv.ParseFloat(defaults[key], 64)
	return f
}

// Keys lists explicitly set keys in sorted order.
func (c *Config) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var boolKeys = []string{
	KeyRecordWebcam, KeyRecordRegion, KeyRecordAnimated, KeyRecordWriteVTT,
	KeyProduceEverything, KeyProduceWebcamAudio, KeyProduceScreencastAudio,
	KeyProduceOverlay, KeyProduceOverlayTitle, KeyProduceSlideshow,
	KeyProduceSlidesAudio, KeyProduceTitle, KeyCompressAudio,
}

var intKeys = []string{
	KeyOverlayFraction, KeyOverlayX, KeyOverlayY, KeySlideshowFPS,
	KeySlidesDPI, KeySlidesDisplayHeight, KeySlidesStart,
}

var floatKeys = []string{
	KeyIntroDuration, KeyOutroDuration, KeySlidesHeightFactor,
}

// Validate reports explicitly set values that the typed accessors would ignore.
func (c *Config) Validate() error {
	var errs []error
	for _, k := range boolKeys {
		if v, ok := c.values[k]; ok {
			if _, err := parseBool(v); err != nil {
				errs = append(errs, fmt.Errorf("%s (%s): %q is not a boolean", k, c.sources[k], v))
			}
		}
	}
	for _, k := range intKeys {
		if v, ok := c.values[k]; ok {
			if _, err := strconv.Atoi(strings.TrimSpace(v)); err != nil {
				errs = append(errs, fmt.Errorf("%s (%s): %q is not an integer", k, c.sources[k], v))
			}
		}
	}
	for _, k := range floatKeys {
		if v, ok := c.values[k]; ok {
			if _, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err != nil {
				errs = append(errs, fmt.Errorf("%s (%s): %q is not a number", k, c.sources[k], v))
			}
		}
	}
	return errors.Join(errs...)
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "yes", "true", "on":
		return true, nil
	case "0", "no", "false", "off":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %q", v)
}

// UserFile returns the per-user configuration path, honouring XDG_CONFIG_HOME.
func UserFile() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "slidecast", "config.yaml")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "slidecast", "config.yaml")
	}
	return ""
}

// ProjectFile returns the project-specific configuration path.
func ProjectFile(dir, project string) string {
	return filepath.Join(dir, project+".yaml")
}
