package block

import (
	"context"

	"github.com/silver2row/ctrl/utils"
)

// ConstantConfig configures a Constant.
type ConstantConfig struct {
	Value interface{} `json:"value"`
}

// Constant is a source that outputs a fixed value.
type Constant struct {
	Buffer
	value interface{}
}

// NewConstant returns an enabled Constant.
func NewConstant(cfg ConstantConfig) *Constant {
	c := &Constant{value: cfg.Value}
	if c.value == nil {
		c.value = 1.0
	}
	c.Buffer = NewBuffer(c, c.value)
	return c
}

// BufferRead outputs the constant.
func (c *Constant) BufferRead(ctx context.Context, buffer []interface{}) ([]interface{}, error) {
	return []interface{}{c.value}, nil
}

// Properties adds the constant value.
func (c *Constant) Properties() map[string]interface{} {
	props := c.Buffer.Properties()
	props["value"] = c.value
	return props
}

// Set accepts "value".
func (c *Constant) Set(ctx context.Context, props map[string]interface{}) error {
	rest := utils.AttributeMap(props).Copy()
	if v, ok := rest.Pop("value"); ok {
		c.value = v
	}
	return SetCommon(ctx, c, rest)
}
