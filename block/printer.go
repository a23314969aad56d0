package block

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/silver2row/ctrl/utils"
)

// PrinterConfig configures a Printer. When Message is set it is used as a fmt format string
// for the raw values; otherwise every stacked value is formatted with Format and joined by Sep.
type PrinterConfig struct {
	Enabled bool   `json:"enabled"`
	Format  string `json:"format"`
	Sep     string `json:"sep"`
	Endln   string `json:"endln"`
	Message string `json:"message"`
}

// DefaultPrinterConfig prints fixed-width floats separated by spaces, one row per line.
func DefaultPrinterConfig() PrinterConfig {
	return PrinterConfig{Enabled: true, Format: "%12.4f", Sep: " ", Endln: "\n"}
}

// Printer is a sink that prints the values written to it.
type Printer struct {
	Base
	cfg PrinterConfig
	out io.Writer
}

// NewPrinter returns a Printer writing to out, or to stdout when out is nil.
func NewPrinter(cfg PrinterConfig, out io.Writer) *Printer {
	if out == nil {
		out = os.Stdout
	}
	return &Printer{Base: NewBase(cfg.Enabled), cfg: cfg, out: out}
}

// Read is not supported.
func (p *Printer) Read(ctx context.Context) ([]interface{}, error) {
	return nil, &UnsupportedOperationError{Block: typeName(p), Operation: "read"}
}

// Write prints one row.
func (p *Printer) Write(ctx context.Context, values ...interface{}) error {
	if !p.Enabled() {
		return nil
	}
	if p.cfg.Message != "" {
		_, err := fmt.Fprint(p.out, fmt.Sprintf(p.cfg.Message, values...)+p.cfg.Endln)
		return err
	}
	row, err := Stack(values...)
	if err != nil {
		return err
	}
	fields := make([]string, len(row))
	for i, v := range row {
		fields[i] = fmt.Sprintf(p.cfg.Format, v)
	}
	_, err = fmt.Fprint(p.out, strings.Join(fields, p.cfg.Sep)+p.cfg.Endln)
	return err
}

// Reset does nothing.
func (p *Printer) Reset(ctx context.Context) error {
	return nil
}

// Properties adds the formatting options.
func (p *Printer) Properties() map[string]interface{} {
	props := p.Base.Properties()
	props["format"] = p.cfg.Format
	props["sep"] = p.cfg.Sep
	props["endln"] = p.cfg.Endln
	props["message"] = p.cfg.Message
	return props
}

// Set accepts "format", "sep", "endln", "message" and "output" (an io.Writer). Nothing changes
// when any value fails to convert.
func (p *Printer) Set(ctx context.Context, props map[string]interface{}) error {
	rest := utils.AttributeMap(props).Copy()
	cfg := p.cfg
	for _, key := range []string{"format", "sep", "endln", "message"} {
		v, ok := rest.Pop(key)
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return errors.Errorf("%s should be a string but got %T", key, v)
		}
		switch key {
		case "format":
			cfg.Format = s
		case "sep":
			cfg.Sep = s
		case "endln":
			cfg.Endln = s
		case "message":
			cfg.Message = s
		}
	}
	out := p.out
	if v, ok := rest.Pop("output"); ok {
		w, ok := v.(io.Writer)
		if !ok {
			return errors.Errorf("output should be an io.Writer but got %T", v)
		}
		out = w
	}
	p.cfg = cfg
	p.out = out
	return SetCommon(ctx, p, rest)
}
