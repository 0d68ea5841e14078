package engine

// GroupDescriber reports once for every instance of its class. The first
// instance in painting order speaks for the group.
type GroupDescriber interface {
	GroupDescription() string
}

// ReportData returns one description per doodle that has something to say,
// in painting order.
func (d *Drawing) ReportData() []string {
	var out []string
	grouped := make(map[string]bool)
	for _, s := range d.doodles {
		desc := s.Description()
		if g, ok := s.(GroupDescriber); ok {
			if grouped[s.ClassName()] {
				continue
			}
			grouped[s.ClassName()] = true
			desc = g.GroupDescription()
		}
		if desc != "" {
			out = append(out, desc)
		}
	}
	return out
}

// Codes returns the clinical codes of every doodle, deduplicated.
func (d *Drawing) Codes() []Code {
	seen := make(map[Code]bool)
	var out []Code
	for _, s := range d.doodles {
		for _, c := range s.Codes() {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}
