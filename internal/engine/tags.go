package engine

import "slices"

// Tag is a coded annotation chosen from an external search list.
type Tag struct {
	ID   string
	Text string
	Code string
}

// Tags returns the drawing's tags in insertion order.
func (d *Drawing) Tags() []Tag {
	return slices.Clone(d.tags)
}

// AddTag appends a tag unless one with the same text exists.
func (d *Drawing) AddTag(id, text, code string) bool {
	if slices.ContainsFunc(d.tags, func(t Tag) bool { return t.Text == text }) {
		return false
	}
	t := Tag{ID: id, Text: text, Code: code}
	d.tags = append(d.tags, t)
	d.Notify(Notification{Event: EventTagAdded, Tag: &t})
	return true
}

// RemoveTag deletes the tag with text.
func (d *Drawing) RemoveTag(text string) bool {
	i := slices.IndexFunc(d.tags, func(t Tag) bool { return t.Text == text })
	if i < 0 {
		return false
	}
	t := d.tags[i]
	d.tags = slices.Delete(d.tags, i, i+1)
	d.Notify(Notification{Event: EventTagDeleted, Tag: &t})
	return true
}
