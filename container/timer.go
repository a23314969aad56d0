package container

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/silver2row/ctrl/block"
	"github.com/silver2row/ctrl/utils"
)

// timerProperties exposes a timer entry's schedule next to the properties of its block.
type timerProperties struct {
	block.Block
	e *entry
}

func (t *timerProperties) Properties() map[string]interface{} {
	props := t.Block.Properties()
	props["period"] = t.e.period.Seconds()
	props["repeat"] = t.e.repeat
	return props
}

func (t *timerProperties) Set(ctx context.Context, props map[string]interface{}) error {
	rest := utils.AttributeMap(props).Copy()
	if v, ok := rest.Pop("period"); ok {
		period, err := utils.ParseDuration(v)
		if err != nil {
			return errors.Wrap(err, "period")
		}
		if period < 0 {
			return errors.Errorf("negative period %s", period)
		}
		t.e.period = period
	}
	if v, ok := rest.Pop("repeat"); ok {
		repeat, err := utils.ToBool(v)
		if err != nil {
			return errors.Wrap(err, "repeat")
		}
		t.e.repeat = repeat
	}
	if len(rest) == 0 {
		return nil
	}
	return t.Block.Set(ctx, rest)
}

func (e *entry) due(now time.Time) bool {
	return now.Sub(e.lastFire) >= e.period
}
