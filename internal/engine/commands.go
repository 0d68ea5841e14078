package engine

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Command is one scripted drawing call: a method name and its arguments.
// On the wire it is the pair ["method", [args...]].
type Command struct {
	Method string
	Args   []any
}

func (c Command) MarshalJSON() ([]byte, error) {
	args := c.Args
	if args == nil {
		args = []any{}
	}
	return json.Marshal([]any{c.Method, args})
}

func (c *Command) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		var obj struct {
			Method string `json:"method"`
			Args   []any  `json:"args"`
		}
		if objErr := json.Unmarshal(data, &obj); objErr != nil {
			return fmt.Errorf("command: %w", err)
		}
		c.Method, c.Args = obj.Method, obj.Args
		return nil
	}
	if len(pair) == 0 || len(pair) > 2 {
		return fmt.Errorf("command: expected [method, args], got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &c.Method); err != nil {
		return fmt.Errorf("command method: %w", err)
	}
	c.Args = nil
	if len(pair) == 2 {
		if err := json.Unmarshal(pair[1], &c.Args); err != nil {
			return fmt.Errorf("command %s args: %w", c.Method, err)
		}
	}
	return nil
}

func (c *Command) UnmarshalYAML(node *yaml.Node) error {
	var pair []yaml.Node
	if err := node.Decode(&pair); err != nil {
		return fmt.Errorf("command: %w", err)
	}
	if len(pair) == 0 || len(pair) > 2 {
		return fmt.Errorf("command: expected [method, args], got %d elements", len(pair))
	}
	if err := pair[0].Decode(&c.Method); err != nil {
		return fmt.Errorf("command method: %w", err)
	}
	c.Args = nil
	if len(pair) == 2 {
		if err := pair[1].Decode(&c.Args); err != nil {
			return fmt.Errorf("command %s args: %w", c.Method, err)
		}
	}
	return nil
}

type commandFunc func(d *Drawing, args []any) error

var commandTable = map[string]commandFunc{
	"addDoodle": func(d *Drawing, args []any) error {
		class, err := stringArg(args, 0)
		if err != nil {
			return err
		}
		var params map[string]any
		if len(args) > 1 {
			params, _ = args[1].(map[string]any)
		}
		_, err = d.AddDoodle(class, params)
		return err
	},
	"deleteDoodlesOfClass": func(d *Drawing, args []any) error {
		class, err := stringArg(args, 0)
		if err != nil {
			return err
		}
		d.DeleteAllOfClass(class)
		return nil
	},
	"deleteSelectedDoodle": func(d *Drawing, _ []any) error {
		d.DeleteSelected()
		return nil
	},
	"deselectDoodles": func(d *Drawing, _ []any) error {
		d.Deselect()
		return nil
	},
	"selectDoodleOfClass": func(d *Drawing, args []any) error {
		class, err := stringArg(args, 0)
		if err != nil {
			return err
		}
		s := d.FirstOfClass(class)
		if s == nil {
			return fmt.Errorf("%s: %w", class, ErrNotFound)
		}
		d.Select(s)
		return nil
	},
	"setParameterForDoodleOfClass": func(d *Drawing, args []any) error {
		class, err := stringArg(args, 0)
		if err != nil {
			return err
		}
		param, err := stringArg(args, 1)
		if err != nil {
			return err
		}
		if len(args) < 3 {
			return fmt.Errorf("missing value argument")
		}
		return d.SetParameterForDoodleOfClass(class, param, FormatValue(args[2]))
	},
	"addTag": func(d *Drawing, args []any) error {
		text, err := stringArg(args, 1)
		if err != nil {
			return err
		}
		id := FormatValue(argAt(args, 0))
		d.AddTag(id, text, FormatValue(argAt(args, 2)))
		return nil
	},
	"removeTag": func(d *Drawing, args []any) error {
		text, err := stringArg(args, 0)
		if err != nil {
			return err
		}
		d.RemoveTag(text)
		return nil
	},
	"flipHorizontally": func(d *Drawing, _ []any) error {
		d.FlipHorizontally()
		return nil
	},
	"zoom": func(d *Drawing, args []any) error {
		f, ok := toFloat(argAt(args, 0))
		if !ok {
			return fmt.Errorf("zoom: expected a number")
		}
		d.Zoom(f)
		return nil
	},
	"repaint": func(d *Drawing, _ []any) error {
		d.Repaint()
		return nil
	},
}

func argAt(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func stringArg(args []any, i int) (string, error) {
	s, ok := argAt(args, i).(string)
	if !ok || s == "" {
		return "", fmt.Errorf("argument %d: expected a string", i)
	}
	return s, nil
}

// Methods lists the command names a drawing accepts.
func Methods() []string {
	names := make([]string, 0, len(commandTable))
	for name := range commandTable {
		names = append(names, name)
	}
	return names
}

// RunCommand invokes one command.
func (d *Drawing) RunCommand(c Command) error {
	fn, ok := commandTable[c.Method]
	if !ok {
		return fmt.Errorf("%q: %w", c.Method, ErrUnknownCommand)
	}
	if err := fn(d, c.Args); err != nil {
		return fmt.Errorf("%s: %w", c.Method, err)
	}
	return nil
}

// RunCommands invokes cmds in order. A failing command is logged and the
// rest still run; the failures are returned joined.
func (d *Drawing) RunCommands(cmds []Command) error {
	var errs []error
	for _, c := range cmds {
		if err := d.RunCommand(c); err != nil {
			d.logger.Warn("command failed", "method", c.Method, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
