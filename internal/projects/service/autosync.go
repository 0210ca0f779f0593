package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/playground-sync/internal/auth"
)

// onAuthChange runs on the goroutine that changed the session. It only
// records the new user and arms or disarms the auto-sync timer. Store I/O
// happens in the background. Notifications from concurrent sign-ins can
// arrive out of order, so the session is re-read instead of trusting the
// delivered state.
func (c *Coordinator) onAuthChange(_ auth.State) {
	uid, _ := c.auth.CurrentUserID()

	c.mu.Lock()
	if c.closed || c.userID == uid {
		c.mu.Unlock()
		return
	}
	prev := c.userID
	c.userID = uid
	hasCurrent := c.current != nil
	c.bg.Add(1)
	c.mu.Unlock()

	c.logger.Info("auth changed", zap.Bool("authenticated", uid != ""))

	c.cancelAutoSync()
	if c.up != nil {
		c.up.ResetBases()
	}
	if prev == "" && uid != "" && hasCurrent && c.remote != nil {
		c.scheduleAutoSync()
	}

	go func() {
		defer c.bg.Done()
		c.afterAuthChange(context.Background())
	}()
}

// afterAuthChange reloads the listing for the new user and bootstraps if
// nothing is open yet.
func (c *Coordinator) afterAuthChange(ctx context.Context) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if c.CurrentProject() == nil {
		c.setLoading(true)
		p, err := c.bootstrap(ctx)
		c.setLoading(false)
		if err != nil {
			c.logger.Error("bootstrap after auth change failed", zap.Error(err))
			return
		}
		c.setCurrent(p)
	}
	if _, err := c.refreshList(ctx); err != nil {
		c.logger.Error("refresh after auth change failed", zap.Error(err))
	}
}

// scheduleAutoSync arms a one-shot upload of the open project. Each arm
// bumps the generation, so a timer from an earlier arm does nothing.
func (c *Coordinator) scheduleAutoSync() {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timerGen++
	gen := c.timerGen
	c.timer = time.AfterFunc(c.debounce, func() { c.runAutoSync(gen) })
}

// cancelAutoSync disarms a pending auto-sync. A timer callback already
// running sees the new generation and returns.
func (c *Coordinator) cancelAutoSync() {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerGen++
}

func (c *Coordinator) autoSyncPending() bool {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	return c.timer != nil
}

func (c *Coordinator) runAutoSync(gen uint64) {
	c.timerMu.Lock()
	if gen != c.timerGen {
		c.timerMu.Unlock()
		return
	}
	c.timer = nil
	c.timerMu.Unlock()

	if !c.remoteEnabled() {
		return
	}
	p := c.CurrentProject()
	if p == nil {
		return
	}

	c.logger.Info("syncing offline project after sign-in", zap.String("project_id", p.ID))
	c.up.Enqueue(p, false, func(err error) {
		c.metrics.AutoSync(err)
		if err == nil {
			c.logger.Info("offline project synced", zap.String("project_id", p.ID))
		}
	})
}
