package icron

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// maxLookback bounds the search for the previous activation.
const maxLookback = 366 * 24 * time.Hour

type TriggerInfo struct {
	Next       time.Time
	Last       time.Time
	Expression string

	TimeSinceLast time.Duration
	TimeUntilNext time.Duration
}

// GetTriggerInfo resolves the activations of a standard five-field cron
// expression around refTime. Last is zero when the expression did not fire
// within the lookback window.
func GetTriggerInfo(cronExpr string, refTime time.Time) (*TriggerInfo, error) {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	info := &TriggerInfo{
		Expression: cronExpr,
		Next:       schedule.Next(refTime),
		Last:       previousActivation(schedule, refTime),
	}
	if !info.Last.IsZero() {
		info.TimeSinceLast = refTime.Sub(info.Last)
	}
	info.TimeUntilNext = info.Next.Sub(refTime)

	return info, nil
}

// previousActivation widens the window backwards until an activation falls
// inside it, then walks forward to the latest one not after refTime.
func previousActivation(schedule cron.Schedule, refTime time.Time) time.Time {
	for window := time.Minute; window <= maxLookback*2; window *= 2 {
		candidate := schedule.Next(refTime.Add(-window))
		if candidate.IsZero() || candidate.After(refTime) {
			continue
		}
		for {
			next := schedule.Next(candidate)
			if next.IsZero() || next.After(refTime) {
				return candidate
			}
			candidate = next
		}
	}
	return time.Time{}
}
