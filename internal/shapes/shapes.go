// Package shapes holds the ophthalmic doodle classes.
package shapes

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/eyedraw/eyedraw/internal/engine"
	"github.com/eyedraw/eyedraw/internal/geom"
)

var constructors = map[string]engine.Constructor{
	"AntSeg":            NewAntSeg,
	"PI":                NewPI,
	"Lacrimal":          NewLacrimal,
	"LacrimalDuct":      NewLacrimalDuct,
	"LacrimalPunctum":   NewLacrimalPunctum,
	"Hypopyon":          NewHypopyon,
	"CornealScar":       NewCornealScar,
	"SPEE":              NewSPEE,
	"Mucocele":          NewMucocele,
	"Epiphora":          NewEpiphora,
	"Patch":             NewPatch,
	"IntraluminalStent": NewIntraluminalStent,
	"ConjunctivalHaem":  NewConjunctivalHaem,
	"Lids":              NewLids,
	"LidLaxity":         NewLidLaxity,
}

// Catalog returns a catalog with every class in this package registered.
func Catalog() *engine.Catalog {
	c := engine.NewCatalog()
	for class, ctor := range constructors {
		c.Register(class, ctor)
	}
	return c
}

func deg(d float64) float64 { return d * math.Pi / 180 }

func isLeft(d *engine.Doodle) bool {
	return d.Drawing() != nil && d.Drawing().Eye() == engine.EyeLeft
}

// hourOf converts a clockwise angle from 12 o'clock into a clock hour.
func hourOf(angle float64, left bool) int {
	h := int(math.Round(geom.NormalizeAngle(angle)*6/math.Pi)) % 12
	if left {
		h = (12 - h) % 12
	}
	if h == 0 {
		h = 12
	}
	return h
}

// clockHourExtent describes the arc a doodle covers, e.g. "4-8".
func clockHourExtent(d *engine.Doodle) string {
	rot, arc := d.Float("rotation"), d.Float("arc")
	left := isLeft(d)
	start, end := hourOf(rot-arc/2, left), hourOf(rot+arc/2, left)
	if left {
		start, end = end, start
	}
	return fmt.Sprintf("%d-%d", start, end)
}

func capitalize(s string) string {
	for i, r := range s {
		return string(unicode.ToUpper(r)) + s[i+len(string(r)):]
	}
	return s
}

// joinDescription joins fragments with commas and capitalises the result.
func joinDescription(parts []string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return capitalize(strings.Join(kept, ", "))
}

func listParam(name string, kind engine.Kind, list ...string) engine.ParamSpec {
	return engine.ParamSpec{Name: name, Kind: kind, Type: engine.TypeString, List: list}
}

func boolParam(name string) engine.ParamSpec {
	return engine.ParamSpec{Name: name, Kind: engine.KindDerived, Type: engine.TypeBool}
}

func intParam(name string, kind engine.Kind, min, max float64) engine.ParamSpec {
	r := geom.NewRange(min, max)
	return engine.ParamSpec{Name: name, Kind: kind, Type: engine.TypeInt, Range: &r}
}

func floatParam(name string) engine.ParamSpec {
	return engine.ParamSpec{Name: name, Kind: engine.KindOther, Type: engine.TypeFloat}
}

func set(d *engine.Doodle, name string, v any) {
	if err := d.SetParameter(name, v); err != nil {
		d.Logger().Warn("parameter not set", "class", d.ClassName(), "parameter", name, "error", err)
	}
}
