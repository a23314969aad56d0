package container

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"

	"github.com/silver2row/ctrl/block"
	"github.com/silver2row/ctrl/utils"
)

// InfoSections lists the sections Info can render, in the order "all" renders them.
var InfoSections = []string{"summary", "signals", "sources", "filters", "timers", "sinks"}

// Info renders the named sections as text tables. With no section, or "all", every section
// is rendered.
func (c *Container) Info(sections ...string) (string, error) {
	if len(sections) == 0 {
		sections = []string{"all"}
	}
	var parts []string
	for _, section := range sections {
		switch section {
		case "all":
			for _, s := range InfoSections {
				parts = append(parts, c.renderSection(s))
			}
		case "summary", "signals", "sources", "filters", "timers", "sinks":
			parts = append(parts, c.renderSection(section))
		default:
			return "", errors.Errorf("unknown info section %q", section)
		}
	}
	return strings.Join(parts, "\n"), nil
}

func (c *Container) renderSection(section string) string {
	t := table.NewWriter()
	t.SetTitle(section)
	switch section {
	case "summary":
		t.AppendHeader(table.Row{"Kind", "Count"})
		t.AppendRow(table.Row{"signals", len(c.signals.names)})
		for _, kind := range block.Kinds {
			t.AppendRow(table.Row{string(kind) + "s", len(c.registry(kind).entries)})
		}
		t.AppendRow(table.Row{"running", c.IsRunning()})
	case "signals":
		t.AppendHeader(table.Row{"#", "Name", "Value"})
		for i, name := range c.signals.names {
			t.AppendRow(table.Row{i + 1, name, fmt.Sprintf("%v", c.signals.values[name])})
		}
	default:
		kind := block.Kind(strings.TrimSuffix(section, "s"))
		header := table.Row{"#", "Label", "Type", "Inputs", "Outputs", "Enabled", "Properties"}
		if kind == block.KindTimer {
			header = append(header, "Period", "Repeat")
		}
		t.AppendHeader(header)
		for i, e := range c.registry(kind).entries {
			row := table.Row{
				i + 1,
				e.label,
				fmt.Sprintf("%T", block.Unwrap(e.block)),
				strings.Join(e.inputs, ", "),
				strings.Join(e.outputs, ", "),
				e.block.Enabled(),
				formatProperties(e.block.Properties()),
			}
			if kind == block.KindTimer {
				row = append(row, e.period.String(), e.repeat)
			}
			t.AppendRow(row)
		}
	}
	return t.Render()
}

func formatProperties(props map[string]interface{}) string {
	delete(props, "enabled")
	keys := utils.AttributeMap(props).Keys()
	fields := make([]string, len(keys))
	for i, k := range keys {
		fields[i] = fmt.Sprintf("%s=%v", k, props[k])
	}
	return strings.Join(fields, " ")
}
