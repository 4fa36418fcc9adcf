// Package locations loads the surf location catalog.
package locations

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"surfcast/internal/types"
)

type catalogFile struct {
	Locations []types.SurfLocation `yaml:"locations"`
}

// Catalog is an immutable, validated set of locations in file order.
type Catalog struct {
	entries []types.SurfLocation
	byID    map[string]int
}

// LoadFile reads and validates the catalog at path.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeValidationCatalog, "failed to read location catalog "+path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog. Unknown keys, invalid coordinates or
// geometry, and duplicate IDs are rejected.
func Parse(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f catalogFile
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, types.NewAppError(types.ErrCodeValidationCatalog, "malformed location catalog", err)
	}
	if len(f.Locations) == 0 {
		return nil, types.NewAppError(types.ErrCodeValidationCatalog, "location catalog is empty", nil)
	}

	v := validator.New()
	c := &Catalog{entries: f.Locations, byID: make(map[string]int, len(f.Locations))}
	for i, loc := range f.Locations {
		if err := v.Struct(loc); err != nil {
			return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationCatalog,
				fmt.Sprintf("invalid catalog entry %d", i), err,
				map[string]any{"location_id": loc.ID})
		}
		if _, dup := c.byID[loc.ID]; dup {
			return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationCatalog, "duplicate location id", nil,
				map[string]any{"location_id": loc.ID})
		}
		c.byID[loc.ID] = i
	}
	return c, nil
}

// Get returns the location with id.
func (c *Catalog) Get(id string) (types.SurfLocation, error) {
	i, ok := c.byID[id]
	if !ok {
		return types.SurfLocation{}, types.NewAppErrorWithDetails(types.ErrCodeNotFoundLocation, "unknown location", nil,
			map[string]any{"location_id": id})
	}
	return c.entries[i], nil
}

// All returns the locations in file order. The slice is a copy.
func (c *Catalog) All() []types.SurfLocation {
	return append([]types.SurfLocation(nil), c.entries...)
}

// Len is the number of locations.
func (c *Catalog) Len() int { return len(c.entries) }

// Summaries returns the public listing sorted by name.
func (c *Catalog) Summaries() []types.LocationSummary {
	out := make([]types.LocationSummary, len(c.entries))
	for i, loc := range c.entries {
		out[i] = loc.Summary()
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
