package events

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	v1 "github.com/jovey-lab/project-jovey/internal/api/v1"
)

// EventTypeDefinition documents one event type: what aggregate it belongs to,
// what it means, and an example payload. Definitions are documentation for
// operators and API consumers; posting an event type that has no definition
// is allowed.
type EventTypeDefinition struct {
	EventType     string                 `yaml:"event_type" json:"event_type"`
	AggregateType string                 `yaml:"aggregate_type" json:"aggregate_type"`
	Description   string                 `yaml:"description" json:"description"`
	Example       map[string]interface{} `yaml:"example,omitempty" json:"example,omitempty"`
}

// Catalog loads event-type definitions from *.yaml files in a directory.
// Each file contains exactly one definition at the top level. Definitions are
// loaded once at startup and cached in memory, with no hot reload.
type Catalog struct {
	dir  string
	defs map[string]EventTypeDefinition // keyed by EventType
}

// NewCatalog creates a catalog and eagerly loads all definitions from dir.
// A missing directory is valid (empty catalog). Malformed files are errors.
func NewCatalog(dir string) (*Catalog, error) {
	c := &Catalog{
		dir:  dir,
		defs: make(map[string]EventTypeDefinition),
	}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) load() error {
	info, err := os.Stat(c.dir)
	if os.IsNotExist(err) {
		return nil // no catalog directory, valid (zero definitions)
	}
	if err != nil {
		return fmt.Errorf("event type catalog dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("event type catalog path %q is not a directory", c.dir)
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("reading event type catalog dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || (!strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}

		path := filepath.Join(c.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading catalog file %s: %w", path, err)
		}

		var def EventTypeDefinition
		if err := yaml.Unmarshal(data, &def); err != nil {
			return fmt.Errorf("parsing catalog file %s: %w", path, err)
		}

		if err := v1.ValidateEventType(def.EventType); err != nil {
			return fmt.Errorf("catalog file %s: %w", path, err)
		}
		def.EventType = strings.ToLower(def.EventType)
		def.AggregateType = strings.ToLower(def.AggregateType)

		if _, exists := c.defs[def.EventType]; exists {
			return fmt.Errorf("duplicate event type %q in catalog file %s", def.EventType, path)
		}
		c.defs[def.EventType] = def
	}

	return nil
}

// Definitions returns all loaded definitions ordered by event type.
func (c *Catalog) Definitions() []EventTypeDefinition {
	defs := make([]EventTypeDefinition, 0, len(c.defs))
	for _, def := range c.defs {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool {
		return defs[i].EventType < defs[j].EventType
	})
	return defs
}

// Get returns the definition for one event type.
func (c *Catalog) Get(eventType string) (EventTypeDefinition, bool) {
	def, ok := c.defs[strings.ToLower(eventType)]
	return def, ok
}
