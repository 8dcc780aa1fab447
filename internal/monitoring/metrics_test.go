package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/guided-traffic/license-seal/internal/license"
	"github.com/guided-traffic/license-seal/pkg/licensetoken"
)

func TestRecorder_ObserveValidation(t *testing.T) {
	r := NewRecorder()

	r.ObserveValidation("metrics-observe", licensetoken.Valid, time.Millisecond)
	r.ObserveValidation("metrics-observe", licensetoken.Valid, time.Millisecond)
	r.ObserveValidation("metrics-observe", licensetoken.Invalid, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(ValidationsTotal.WithLabelValues("metrics-observe", "valid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ValidationsTotal.WithLabelValues("metrics-observe", "invalid")))
}

func TestRecorder_ReportSnapshot(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	r := &Recorder{now: func() time.Time { return now }}
	expires := now.Add(10 * 24 * time.Hour)

	r.ReportSnapshot(license.Snapshot{
		Result: licensetoken.Valid,
		Licenses: []license.LicenseInfo{
			{Product: "metrics-valid", Found: true, Result: licensetoken.Valid, ExpiresAt: expires},
			{Product: "metrics-expired", Found: true, Result: licensetoken.ExpiredOutsideGracePeriod, ExpiresAt: now.Add(-time.Hour)},
			{Product: "metrics-missing", Result: licensetoken.Invalid},
		},
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(LicenseStatus.WithLabelValues("metrics-valid")))
	assert.Equal(t, float64(expires.Unix()), testutil.ToFloat64(LicenseExpiryTime.WithLabelValues("metrics-valid")))
	assert.InDelta(t, 10.0, testutil.ToFloat64(LicenseDaysRemaining.WithLabelValues("metrics-valid")), 0.001)

	assert.Equal(t, 20.0, testutil.ToFloat64(LicenseStatus.WithLabelValues("metrics-expired")))
	assert.Equal(t, 0.0, testutil.ToFloat64(LicenseDaysRemaining.WithLabelValues("metrics-expired")))

	assert.Equal(t, 100.0, testutil.ToFloat64(LicenseStatus.WithLabelValues("metrics-missing")))
}

func TestRecorder_ClearsExpiryWhenUnknown(t *testing.T) {
	r := NewRecorder()
	expires := time.Now().Add(48 * time.Hour)
	r.SetLicenseInfo("metrics-cleared", licensetoken.Valid, expires)
	assert.Equal(t, float64(expires.Unix()), testutil.ToFloat64(LicenseExpiryTime.WithLabelValues("metrics-cleared")))

	r.SetLicenseInfo("metrics-cleared", licensetoken.Invalid, time.Time{})
	assert.False(t, LicenseExpiryTime.DeleteLabelValues("metrics-cleared"))
	assert.False(t, LicenseDaysRemaining.DeleteLabelValues("metrics-cleared"))
	assert.Equal(t, 100.0, testutil.ToFloat64(LicenseStatus.WithLabelValues("metrics-cleared")))
}

func TestSetBuildInfo(t *testing.T) {
	SetBuildInfo("1.2.3", "abc123", "2025-01-01")
	assert.Equal(t, 1.0, testutil.ToFloat64(BuildInfo.WithLabelValues("1.2.3", "abc123", "2025-01-01")))
}

func TestRegistry_Gathers(t *testing.T) {
	NewRecorder().ObserveValidation("metrics-gather", licensetoken.Valid, time.Millisecond)

	families, err := Registry().Gather()
	assert.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["license_seal_validations_total"])
	assert.True(t, names["license_seal_validation_duration_seconds"])
	assert.True(t, names["go_goroutines"])
}
