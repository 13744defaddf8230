package statemachine

import (
	"time"

	"github.com/Ometra-Hela/Alize/internal/model"
)

const (
	DefaultT1 = 20 * time.Minute
	DefaultT3 = 24 * time.Hour
)

// TimerConfig holds the deadline durations armed on state entry. T4 has no duration:
// it is the confirmed execution date.
type TimerConfig struct {
	T1 time.Duration
	T3 time.Duration
}

func (c TimerConfig) withDefaults() TimerConfig {
	if c.T1 <= 0 {
		c.T1 = DefaultT1
	}

	if c.T3 <= 0 {
		c.T3 = DefaultT3
	}

	return c
}

// ApplyTimers arms the deadline governed by the entered state. Deadlines of other
// states are left as they are.
func ApplyTimers(p *model.Portability, entered model.State, now time.Time, cfg TimerConfig) {
	cfg = cfg.withDefaults()

	switch entered {
	case model.StatePortRequested:
		t1 := now.Add(cfg.T1)
		p.T1ExpiresAt = &t1
	case model.StateReadyToBeScheduled:
		t3 := now.Add(cfg.T3)
		p.T3ExpiresAt = &t3
	case model.StatePortScheduled:
		// Without a confirmed execution date T4 stays as it is.
		if p.PortExecDate != nil {
			t4 := *p.PortExecDate
			p.T4ExpiresAt = &t4
		}
	}
}
