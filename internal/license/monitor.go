package license

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Reporter receives every snapshot the monitor takes, e.g. to update metrics.
type Reporter interface {
	ReportSnapshot(Snapshot)
}

// Monitor revalidates licenses on an interval and keeps the latest snapshot.
type Monitor struct {
	checker  *Checker
	interval time.Duration
	logger   *logrus.Entry
	reporter Reporter

	mu      sync.RWMutex
	last    Snapshot
	checked bool
}

// NewMonitor creates a monitor. reporter may be nil.
func NewMonitor(checker *Checker, interval time.Duration, reporter Reporter) *Monitor {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Monitor{
		checker:  checker,
		interval: interval,
		logger:   logrus.WithField("component", "license-monitor"),
		reporter: reporter,
	}
}

// Snapshot returns the latest snapshot and whether a check has run yet.
func (m *Monitor) Snapshot() (Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last, m.checked
}

// CheckNow runs a check immediately, records it and returns it.
func (m *Monitor) CheckNow() Snapshot {
	snapshot := m.checker.Inspect()

	m.mu.Lock()
	previous, hadPrevious := m.last, m.checked
	m.last = snapshot
	m.checked = true
	m.mu.Unlock()

	m.logTransitions(previous, hadPrevious, snapshot)

	if m.reporter != nil {
		m.reporter.ReportSnapshot(snapshot)
	}
	return snapshot
}

// Run checks once, then every interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Infof("Starting license runtime monitoring (checks every %s)", m.interval)
	m.CheckNow()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.CheckNow()
		case <-ctx.Done():
			m.logger.Debug("License monitoring stopped")
			return
		}
	}
}

func (m *Monitor) logTransitions(previous Snapshot, hadPrevious bool, current Snapshot) {
	if !hadPrevious {
		for _, info := range current.Licenses {
			LogLicenseInfo(m.logger, info)
		}
		return
	}

	for _, info := range current.Licenses {
		before, ok := previous.License(info.Product)
		if ok && before.Result == info.Result {
			if info.Result.IsValid() && info.TimeRemaining.Total > 0 && info.TimeRemaining.Total < expiryWarningWindow {
				m.logger.WithField("product", info.Product).
					Warnf("License expires in %d days - please renew soon", info.TimeRemaining.Days)
			}
			continue
		}

		from := "unknown"
		if ok {
			from = before.Result.String()
		}
		entry := m.logger.WithFields(logrus.Fields{
			"product": info.Product,
			"from":    from,
			"to":      info.Result.String(),
		})
		if info.Result.IsValid() {
			entry.Info("License status changed")
		} else {
			entry.Warn("License status changed")
		}
	}
}
