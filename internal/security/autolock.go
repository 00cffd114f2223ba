package security

import (
	"time"

	apperrors "github.com/simnote/core/internal/errors"
)

// SetAutoLockMinutes persists the idle auto-lock timeout. Zero
// disables auto-lock. Takes effect from the next activity signal or
// authentication.
func (m *Manager) SetAutoLockMinutes(minutes int) error {
	if minutes < 0 {
		return apperrors.New(apperrors.ErrValidation, "auto-lock minutes must be >= 0")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := *m.cfg
	cfg.AutoLockMinutes = minutes
	if err := saveConfig(m.cfgPath, &cfg); err != nil {
		return err
	}
	m.cfg = &cfg

	if m.masterKey != nil {
		m.scheduleIdleTimerLocked()
	} else {
		m.stopIdleTimerLocked()
	}
	return nil
}

// Touch signals caller activity, pushing the idle auto-lock deadline
// out. At most one timer is ever pending.
func (m *Manager) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.masterKey != nil {
		m.scheduleIdleTimerLocked()
	}
}

// scheduleIdleTimerLocked replaces any pending timer with a fresh one.
// Cancellation is simply dropping the previous timer.
func (m *Manager) scheduleIdleTimerLocked() {
	m.stopIdleTimerLocked()

	delay := m.testLockDelay
	if delay == 0 {
		if m.cfg.AutoLockMinutes <= 0 {
			return
		}
		delay = time.Duration(m.cfg.AutoLockMinutes) * time.Minute
	}

	m.idleTimer = time.AfterFunc(delay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.masterKey == nil {
			return
		}
		m.wipeKeyLocked()
		m.idleTimer = nil
		m.log.Info("auto-locked after inactivity")
	})
}

func (m *Manager) stopIdleTimerLocked() {
	if m.idleTimer != nil {
		m.idleTimer.Stop()
		m.idleTimer = nil
	}
}
