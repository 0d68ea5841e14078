package collab

import (
	"errors"
	"fmt"

	"github.com/eyedraw/eyedraw/internal/engine"
	"github.com/eyedraw/eyedraw/internal/typeid"
)

var ErrReadOnly = errors.New("drawing is not editable")

// applyOperation performs op on d. It runs on the page loop. The returned
// id names the doodle the operation created, if any.
func applyOperation(d *engine.Drawing, op Operation) (string, error) {
	if !d.Editable && op.Type != OpSelectDoodle {
		return "", fmt.Errorf("%s: %w", d.Name, ErrReadOnly)
	}

	switch op.Type {
	case OpSetParameter:
		s, err := target(d, op)
		if err != nil {
			return "", err
		}
		return "", s.Base().SetParameterFromString(op.Parameter, op.Value, true)

	case OpAddDoodle:
		if op.Class == "" {
			return "", errors.New("doodle.add needs a class")
		}
		s, err := d.AddDoodle(op.Class, op.Params)
		if err != nil {
			return "", err
		}
		return s.Base().ID, nil

	case OpDeleteDoodle:
		s, err := target(d, op)
		if err != nil {
			return "", err
		}
		if !d.DeleteDoodle(s) {
			return "", fmt.Errorf("%s %s cannot be deleted", s.ClassName(), s.Base().ID)
		}
		return "", nil

	case OpSelectDoodle:
		if op.DoodleID == "" && op.Class == "" {
			d.Deselect()
			return "", nil
		}
		s, err := target(d, op)
		if err != nil {
			return "", err
		}
		d.Select(s)
		return "", nil

	case OpMouseUp:
		d.MouseUp()
		return "", nil

	case OpAddTag:
		if op.Tag == "" {
			return "", errors.New("tag.add needs a tag")
		}
		if !d.AddTag(typeid.NewTagID(), op.Tag, op.Code) {
			return "", fmt.Errorf("tag %q already on %s", op.Tag, d.Name)
		}
		return "", nil

	case OpRemoveTag:
		if !d.RemoveTag(op.Tag) {
			return "", fmt.Errorf("tag %q not on %s", op.Tag, d.Name)
		}
		return "", nil

	case OpCommand:
		return "", d.RunCommand(engine.Command{Method: op.Method, Args: op.Args})

	default:
		return "", fmt.Errorf("unknown operation type: %s", op.Type)
	}
}

func target(d *engine.Drawing, op Operation) (engine.Shape, error) {
	if op.DoodleID != "" {
		s, ok := d.DoodleByID(op.DoodleID)
		if !ok {
			return nil, fmt.Errorf("%s: %w", op.DoodleID, engine.ErrNotFound)
		}
		return s, nil
	}
	if s := d.FirstOfClass(op.Class); s != nil {
		return s, nil
	}
	return nil, fmt.Errorf("%s: %w", op.Class, engine.ErrNotFound)
}
