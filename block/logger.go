package block

import (
	"context"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/silver2row/ctrl/utils"
)

// LoggerConfig configures a Logger. Rows is the ring capacity. Columns is the initial row width;
// it is replaced by the width of the first row written. AutoReset rewinds the logger after
// every read.
type LoggerConfig struct {
	Enabled   bool `json:"enabled"`
	Rows      int  `json:"rows"`
	Columns   int  `json:"columns"`
	AutoReset bool `json:"auto_reset"`
}

// DefaultLoggerConfig keeps the last 12000 rows.
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{Enabled: true, Rows: 12000}
}

// Logger is a sink that stores written rows into a fixed capacity ring buffer. Once full, new
// rows overwrite the oldest ones and the page counter increments.
type Logger struct {
	Base
	rows      int
	columns   int
	data      *mat.Dense
	autoReset bool
	page      int
	current   int
}

// NewLogger returns a Logger, failing on a non positive capacity.
func NewLogger(cfg LoggerConfig) (*Logger, error) {
	if cfg.Rows < 1 {
		return nil, errors.Errorf("logger needs at least 1 row got %d", cfg.Rows)
	}
	if cfg.Columns < 0 {
		return nil, errors.Errorf("logger columns should not be negative got %d", cfg.Columns)
	}
	l := &Logger{Base: NewBase(cfg.Enabled), autoReset: cfg.AutoReset}
	l.reshape(cfg.Rows, cfg.Columns)
	return l, nil
}

func (l *Logger) reshape(rows, columns int) {
	l.rows = rows
	l.columns = columns
	l.data = nil
	if columns > 0 {
		l.data = mat.NewDense(rows, columns, nil)
	}
	l.page = 0
	l.current = 0
}

// Write logs one row made of the stacked values. A row of a different width than the previous
// ones discards the log and starts over with the new width.
func (l *Logger) Write(ctx context.Context, values ...interface{}) error {
	if !l.Enabled() {
		return nil
	}
	row, err := Stack(values...)
	if err != nil {
		return err
	}
	if len(row) == 0 {
		return nil
	}
	if len(row) != l.columns {
		l.reshape(l.rows, len(row))
	}
	l.data.SetRow(l.current, row)
	if l.current < l.rows-1 {
		l.current++
	} else {
		l.current = 0
		l.page++
	}
	return nil
}

// Log returns the logged rows, oldest first, or nil when nothing was logged since the last
// reset. The returned matrix is a copy.
func (l *Logger) Log() *mat.Dense {
	var out *mat.Dense
	switch {
	case l.data == nil:
	case l.page == 0:
		if l.current > 0 {
			out = mat.DenseCopyOf(l.data.Slice(0, l.current, 0, l.columns))
		}
	case l.current == 0:
		out = mat.DenseCopyOf(l.data)
	default:
		out = mat.NewDense(l.rows, l.columns, nil)
		out.Stack(l.data.Slice(l.current, l.rows, 0, l.columns), l.data.Slice(0, l.current, 0, l.columns))
	}
	if l.autoReset {
		l.page = 0
		l.current = 0
	}
	return out
}

// Read returns the log as a single *mat.Dense value, or no values when the log is empty.
func (l *Logger) Read(ctx context.Context) ([]interface{}, error) {
	log := l.Log()
	if log == nil {
		return []interface{}{}, nil
	}
	return []interface{}{log}, nil
}

// Reset rewinds the write cursor.
func (l *Logger) Reset(ctx context.Context) error {
	l.page = 0
	l.current = 0
	return nil
}

// Columns returns the current row width.
func (l *Logger) Columns() int {
	return l.columns
}

// Properties reports the cursor; the log data is internal.
func (l *Logger) Properties() map[string]interface{} {
	props := l.Base.Properties()
	props["current"] = l.current
	props["page"] = l.page
	props["auto_reset"] = l.autoReset
	return props
}

// Set accepts "current", "page" and "auto_reset". Nothing changes when any value is invalid.
func (l *Logger) Set(ctx context.Context, props map[string]interface{}) error {
	rest := utils.AttributeMap(props).Copy()
	current, page, autoReset := l.current, l.page, l.autoReset
	for _, key := range []string{"current", "page"} {
		v, ok := rest.Pop(key)
		if !ok {
			continue
		}
		f, err := utils.ToFloat64(v)
		if err != nil {
			return errors.Wrap(err, key)
		}
		n := int(f)
		if n < 0 || (key == "current" && n >= l.rows) {
			return errors.Errorf("%s %d out of range", key, n)
		}
		if key == "current" {
			current = n
		} else {
			page = n
		}
	}
	if v, ok := rest.Pop("auto_reset"); ok {
		b, err := utils.ToBool(v)
		if err != nil {
			return errors.Wrap(err, "auto_reset")
		}
		autoReset = b
	}
	l.current, l.page, l.autoReset = current, page, autoReset
	return SetCommon(ctx, l, rest)
}
