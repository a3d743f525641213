package accounting

import (
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// StartSweeper schedules Tracker.Sweep on a cron spec such as "@every 1m".
// The caller stops the returned scheduler on shutdown.
func StartSweeper(t *Tracker, spec string) (*cron.Cron, error) {
	if spec == "" {
		spec = "@every 1m"
	}
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if n := t.Sweep(); n > 0 {
			t.log.Info("evicted expired cache entries", zap.Int("count", n))
		}
	})
	if err != nil {
		return nil, errors.Wrapf(err, "schedule cache sweep %q", spec)
	}
	c.Start()
	return c, nil
}
