package syncer

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/eyedraw/eyedraw/internal/engine"
)

// Resolver finds a drawing on the page by id suffix. *checker.Checker
// satisfies it.
type Resolver interface {
	InstanceByIDSuffix(suffix string) (*engine.Drawing, bool)
}

// LookupFailure reports a sync target that is not on the page. Only that
// target is skipped.
type LookupFailure struct {
	Drawing string
	Class   string
}

func (e *LookupFailure) Error() string {
	if e.Class == "" {
		return fmt.Sprintf("cannot sync with %s: instance not found", e.Drawing)
	}
	return fmt.Sprintf("cannot sync %s in %s: instance not found", e.Class, e.Drawing)
}

type attachment struct {
	table Table
	sub   engine.Subscription
}

// Synchronizer mirrors parameter changes from one drawing into others.
// Strings are copied. Numbers move by the same increment as the source, so
// doodles that are deliberately offset stay offset.
//
// Changes raised while a change is being propagated only travel to
// drawings that propagation has not reached yet, so mutual configurations
// settle after one pass.
type Synchronizer struct {
	resolver Resolver
	logger   *slog.Logger
	attached map[*engine.Drawing]*attachment
	visited  map[*engine.Drawing]bool
}

func New(resolver Resolver, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{
		resolver: resolver,
		logger:   logger.With("component", "syncer"),
		attached: make(map[*engine.Drawing]*attachment),
	}
}

// Attach starts mirroring drawing's parameter changes according to table.
// Attaching again replaces the table.
func (s *Synchronizer) Attach(drawing *engine.Drawing, table Table) {
	if a, ok := s.attached[drawing]; ok {
		a.table = table
		return
	}
	a := &attachment{table: table}
	a.sub = drawing.Register(engine.ObserverFunc(func(n engine.Notification) {
		if err := s.Sync(drawing, n.Doodle, n.Change); err != nil {
			s.logger.Warn("sync incomplete", "drawing", drawing.Name, "error", err)
		}
	}), engine.EventParameterChanged)
	s.attached[drawing] = a
}

func (s *Synchronizer) Detach(drawing *engine.Drawing) {
	if a, ok := s.attached[drawing]; ok {
		drawing.Unregister(a.sub)
		delete(s.attached, drawing)
	}
}

// Table returns the table drawing was attached with.
func (s *Synchronizer) Table(drawing *engine.Drawing) Table {
	if a, ok := s.attached[drawing]; ok {
		return a.table
	}
	return nil
}

// Sync applies one parameter change made to source in drawing. Each target
// drawing that received an update is repainted once. Missing targets are
// returned as LookupFailures after the remaining targets are updated.
func (s *Synchronizer) Sync(drawing *engine.Drawing, source engine.Shape, change *engine.ParameterChange) error {
	a, ok := s.attached[drawing]
	if !ok || source == nil || change == nil || len(a.table) == 0 {
		return nil
	}
	if s.visited == nil {
		s.visited = map[*engine.Drawing]bool{drawing: true}
		defer func() { s.visited = nil }()
	}

	var errs []error
	for _, suffix := range a.table.Targets() {
		rules := a.table[suffix]
		target, ok := s.resolver.InstanceByIDSuffix(suffix)
		if !ok {
			errs = append(errs, &LookupFailure{Drawing: suffix})
			continue
		}
		if s.visited[target] {
			continue
		}

		changed := false
		for _, src := range slices.Sorted(maps.Keys(rules)) {
			if !ParseSelector(src).Matches(source) {
				continue
			}
			for _, dst := range slices.Sorted(maps.Keys(rules[src])) {
				if !slices.Contains(rules[src][dst].Parameters, change.Parameter) {
					continue
				}
				shape := ParseSelector(dst).First(target)
				if shape == nil {
					errs = append(errs, &LookupFailure{Drawing: suffix, Class: dst})
					continue
				}
				if !shape.Base().WillSync {
					continue
				}
				s.visited[target] = true
				moved, err := transfer(shape.Base(), change)
				if err != nil {
					errs = append(errs, fmt.Errorf("sync %s in %s: %w", dst, suffix, err))
				}
				changed = changed || moved
			}
		}
		if changed {
			target.Repaint()
		}
	}
	return errors.Join(errs...)
}

// transfer applies change to target and reports whether target moved.
func transfer(target *engine.Doodle, change *engine.ParameterChange) (bool, error) {
	name := change.Parameter
	switch v := change.Value.(type) {
	case string:
		if target.Str(name) == v {
			return false, nil
		}
		return true, target.SetParameterFromString(name, v, true)

	case bool:
		if cur, ok := target.Value(name); ok && cur == v {
			return false, nil
		}
		return true, target.SetParameter(name, v)

	case float64:
		before := target.Float(name)
		if before == v {
			return false, nil
		}
		next := v
		if old, ok := change.OldValue.(float64); ok {
			if v == old {
				return false, nil
			}
			next = before + (v - old)
		}
		if next == before {
			return false, nil
		}
		// clamped into range first, dependents see the clamped value
		if err := target.SetSimpleParameter(name, next); err != nil {
			return false, err
		}
		target.UpdateDependentParameters(name)
		return target.Float(name) != before, nil
	}
	return false, fmt.Errorf("unsupported value %T for %s", change.Value, name)
}
