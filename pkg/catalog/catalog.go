// pkg/catalog/catalog.go
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed default_catalog.json
var defaultCatalog []byte

// Default returns the built-in seed set.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads and validates the catalog at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return cat, nil
}

// LoadOrDefault loads path, or the embedded catalog when path is empty.
func LoadOrDefault(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	return Load(path)
}

// Parse validates data against the catalog schema and decodes it.
func Parse(data []byte) (*Catalog, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var cat Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return &cat, nil
}

// Validate checks the rules the JSON schema cannot express.
func (c *Catalog) Validate() error {
	seen := make(map[string]struct{}, len(c.Activities))
	for _, e := range c.Activities {
		if _, dup := seen[e.Name]; dup {
			return fmt.Errorf("duplicate activity %q", e.Name)
		}
		seen[e.Name] = struct{}{}

		if e.MaxParticipants < 1 {
			return fmt.Errorf("activity %q: max_participants must be positive", e.Name)
		}
		if len(e.Participants) > e.MaxParticipants {
			return fmt.Errorf("activity %q: %d participants exceed capacity %d",
				e.Name, len(e.Participants), e.MaxParticipants)
		}
		emails := make(map[string]struct{}, len(e.Participants))
		for _, p := range e.Participants {
			if _, dup := emails[p]; dup {
				return fmt.Errorf("activity %q: duplicate participant %q", e.Name, p)
			}
			emails[p] = struct{}{}
		}
	}
	return nil
}

// Save validates c, stamps LastUpdated and writes it to path.
func Save(path string, c *Catalog) error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	for i := range c.Activities {
		if c.Activities[i].Participants == nil {
			c.Activities[i].Participants = []string{}
		}
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := validateSchema(data); err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write catalog %s: %w", path, err)
	}
	return nil
}

// Diff compares the catalog with the activities a running server reports,
// keyed by name. Rosters are ignored since they change at runtime.
func (c *Catalog) Diff(live map[string]Entry) []string {
	var out []string
	for _, e := range c.Activities {
		got, ok := live[e.Name]
		if !ok {
			out = append(out, fmt.Sprintf("%s: missing on server", e.Name))
			continue
		}
		if got.Description != e.Description {
			out = append(out, fmt.Sprintf("%s: description differs", e.Name))
		}
		if got.Schedule != e.Schedule {
			out = append(out, fmt.Sprintf("%s: schedule %q, catalog has %q", e.Name, got.Schedule, e.Schedule))
		}
		if got.MaxParticipants != e.MaxParticipants {
			out = append(out, fmt.Sprintf("%s: max_participants %d, catalog has %d", e.Name, got.MaxParticipants, e.MaxParticipants))
		}
	}

	known := make(map[string]struct{}, len(c.Activities))
	for _, e := range c.Activities {
		known[e.Name] = struct{}{}
	}
	var extra []string
	for name := range live {
		if _, ok := known[name]; !ok {
			extra = append(extra, fmt.Sprintf("%s: not in catalog", name))
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// Names returns activity names in file order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.Activities))
	for i, e := range c.Activities {
		names[i] = e.Name
	}
	return names
}

func validateSchema(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(jsonSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("catalog validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
