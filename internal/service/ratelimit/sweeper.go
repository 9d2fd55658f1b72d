package ratelimit

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ScheduleSweep registers a periodic Sweep on c using a cron spec such as
// "@every 5m".
func (l *Limiter) ScheduleSweep(c *cron.Cron, spec string, log *zap.Logger) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		if removed := l.Sweep(); removed > 0 {
			log.Debug("rate limit buckets swept", zap.Int("removed", removed), zap.Int("remaining", l.Len()))
		}
	})
}
