package license

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guided-traffic/license-seal/pkg/licensetoken"
)

type recordingReporter struct {
	mu        sync.Mutex
	snapshots []Snapshot
}

func (r *recordingReporter) ReportSnapshot(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s)
}

func (r *recordingReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

// swappableResolver lets a test replace licenses between checks.
type swappableResolver struct {
	mu       sync.Mutex
	licenses mapResolver
}

func (s *swappableResolver) ResolveLicenseText(product string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.licenses.ResolveLicenseText(product)
}

func (s *swappableResolver) set(licenses mapResolver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.licenses = licenses
}

func TestMonitor_CheckNow(t *testing.T) {
	day := 24 * time.Hour
	reporter := &recordingReporter{}
	checker := newTestChecker(t, mapResolver{
		"Widget": issue(t, "Widget", checkNow.Add(-day), checkNow.Add(day), 0),
	}, "Widget")
	m := NewMonitor(checker, time.Minute, reporter)

	_, ok := m.Snapshot()
	assert.False(t, ok)

	snapshot := m.CheckNow()
	assert.Equal(t, licensetoken.Valid, snapshot.Result)

	latest, ok := m.Snapshot()
	assert.True(t, ok)
	assert.Equal(t, snapshot, latest)
	assert.Equal(t, 1, reporter.count())
}

func TestMonitor_LogsTransitions(t *testing.T) {
	hook := test.NewGlobal()
	logrus.SetLevel(logrus.InfoLevel)
	defer hook.Reset()

	day := 24 * time.Hour
	resolver := &swappableResolver{licenses: mapResolver{
		"Widget": issue(t, "Widget", checkNow.Add(-30*day), checkNow.Add(60*day), 0),
	}}
	_, publicPEM := testKeyPEMs(t)
	clock := func() time.Time { return checkNow }
	checker := NewChecker(
		licensetoken.NewValidator(licensetoken.WithClock(clock)),
		StaticSource{{ProductName: "Widget", PublicKeyPEM: publicPEM}},
		resolver,
	)
	m := NewMonitor(checker, time.Minute, nil)

	m.CheckNow()
	hook.Reset()

	resolver.set(mapResolver{"Widget": issue(t, "Widget", checkNow.Add(-30*day), checkNow.Add(-day), 0)})
	m.CheckNow()

	var found bool
	for _, e := range hook.AllEntries() {
		if e.Message == "License status changed" {
			found = true
			assert.Equal(t, logrus.WarnLevel, e.Level)
			assert.Equal(t, "valid", e.Data["from"])
			assert.Equal(t, "expired_outside_grace_period", e.Data["to"])
		}
	}
	assert.True(t, found, "expected a transition log entry")
}

func TestMonitor_RunUntilCancelled(t *testing.T) {
	day := 24 * time.Hour
	reporter := &recordingReporter{}
	checker := newTestChecker(t, mapResolver{
		"Widget": issue(t, "Widget", checkNow.Add(-day), checkNow.Add(day), 0),
	}, "Widget")
	m := NewMonitor(checker, 10*time.Millisecond, reporter)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return reporter.count() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop after cancellation")
	}

	snapshot, ok := m.Snapshot()
	assert.True(t, ok)
	assert.Equal(t, licensetoken.Valid, snapshot.Result)
}

func TestNewMonitor_DefaultInterval(t *testing.T) {
	m := NewMonitor(NewChecker(nil, nil, nil), 0, nil)
	assert.Equal(t, time.Hour, m.interval)
}
