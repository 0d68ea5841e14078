package controller

import (
	"strings"

	"github.com/eyedraw/eyedraw/internal/engine"
)

const noAbnormality = "No abnormality"

// Report returns the current report text.
func (c *Controller) Report() string { return c.report }

// SetReport replaces the report text, as when a clinician edits it by hand.
func (c *Controller) SetReport(text string) { c.report = text }

// Codes returns the clinical codes of every doodle in the drawing.
func (c *Controller) Codes() []engine.Code { return c.drawing.Codes() }

// AutoReport regenerates the report from the drawing. An editable report
// keeps the clinician's own text and swaps only the part generated last
// time.
func (c *Controller) AutoReport() string {
	lines := c.drawing.ReportData()
	if len(lines) == 0 {
		c.report = noAbnormality
		return c.report
	}
	generated := strings.Join(lines, "\n")
	if !c.props.AutoReportEditable {
		c.report = generated
		return c.report
	}

	existing := c.report
	switch {
	case strings.Contains(existing, generated):
	case c.previous != "" && strings.Contains(existing, c.previous):
		c.report = strings.Replace(existing, c.previous, generated, 1)
	default:
		if existing != "" && existing != "\n" && existing != " " {
			existing += "\n"
		}
		c.report = existing + generated
	}
	c.previous = generated
	return c.report
}
