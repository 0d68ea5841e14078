package syncer

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eyedraw/eyedraw/internal/engine"
	"github.com/eyedraw/eyedraw/internal/shapes"
)

// Rule lists the parameters a target doodle mirrors from its source.
type Rule struct {
	Parameters []string `yaml:"parameters" json:"parameters"`
}

// Table is one drawing's sync configuration:
// target idSuffix → source selector → target selector → rule.
type Table map[string]map[string]map[string]Rule

// PageTable holds the Table of every source drawing on a page, keyed by
// drawing name.
type PageTable map[string]Table

// Targets returns the target id suffixes in a stable order.
func (t Table) Targets() []string {
	return slices.Sorted(maps.Keys(t))
}

// LoadTable reads a page table from a YAML or JSON file.
func LoadTable(path string) (PageTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseTable(f)
}

// ParseTable decodes a page table. JSON input is accepted as YAML.
func ParseTable(r io.Reader) (PageTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var table PageTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse sync table: %w", err)
	}
	return table, nil
}

// Validate reports selectors that name classes the catalog cannot build.
func (t Table) Validate(catalog *engine.Catalog) error {
	var errs []error
	for _, suffix := range t.Targets() {
		for src, targets := range t[suffix] {
			for _, sel := range append([]string{src}, slices.Collect(maps.Keys(targets))...) {
				if s := ParseSelector(sel); !catalog.Has(s.Class) {
					errs = append(errs, fmt.Errorf("sync %s: %q: %w", suffix, sel, engine.ErrUnknownClass))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// Validate checks every drawing's table.
func (p PageTable) Validate(catalog *engine.Catalog) error {
	var errs []error
	for _, name := range slices.Sorted(maps.Keys(p)) {
		if err := p[name].Validate(catalog); err != nil {
			errs = append(errs, fmt.Errorf("drawing %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Selector picks doodles by class and, for multi-part shapes, by the role
// a child doodle plays. "LacrimalDuct.upperDuct" selects the upper duct.
type Selector struct {
	Class string
	Role  string
}

func ParseSelector(s string) Selector {
	class, role, _ := strings.Cut(s, ".")
	return Selector{Class: class, Role: role}
}

func (s Selector) String() string {
	if s.Role == "" {
		return s.Class
	}
	return s.Class + "." + s.Role
}

func (s Selector) Matches(shape engine.Shape) bool {
	if shape == nil || shape.ClassName() != s.Class {
		return false
	}
	return s.Role == "" || shape.Base().Str(shapes.ChildNameParameter) == s.Role
}

// First returns the first doodle in painting order that the selector matches.
func (s Selector) First(d *engine.Drawing) engine.Shape {
	for _, shape := range d.AllOfClass(s.Class) {
		if s.Matches(shape) {
			return shape
		}
	}
	return nil
}
