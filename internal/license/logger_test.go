package license

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guided-traffic/license-seal/pkg/licensetoken"
)

func TestCalculateTimeRemaining(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		expires  time.Time
		expected TimeRemaining
	}{
		{
			name:    "1 year 31 days",
			expires: now.AddDate(1, 1, 0), // 1 year 1 month = ~396 days
			expected: TimeRemaining{
				Years: 1,
				Days:  31, // 31 days in January (396 - 365)
			},
		},
		{
			name:    "100 days",
			expires: now.AddDate(0, 0, 100),
			expected: TimeRemaining{
				Years: 0,
				Days:  100,
			},
		},
		{
			name:    "Expired",
			expires: now.AddDate(0, 0, -1),
			expected: TimeRemaining{
				Years: 0,
				Days:  0,
			},
		},
		{
			name:     "No expiry",
			expected: TimeRemaining{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := calculateTimeRemaining(now, tt.expires)
			assert.Equal(t, tt.expected.Years, result.Years)
			assert.Equal(t, tt.expected.Days, result.Days)
		})
	}
}

func TestFormatTimeRemaining(t *testing.T) {
	tests := []struct {
		name      string
		remaining TimeRemaining
		expected  string
	}{
		{
			name:      "Years and days",
			remaining: TimeRemaining{Years: 2, Days: 30, Total: time.Hour * 24 * 760},
			expected:  "2 years, 30 days",
		},
		{
			name:      "One year one day",
			remaining: TimeRemaining{Years: 1, Days: 1, Total: time.Hour * 24 * 366},
			expected:  "1 year, 1 day",
		},
		{
			name:      "Days only",
			remaining: TimeRemaining{Days: 15, Total: time.Hour * 24 * 15},
			expected:  "15 days",
		},
		{
			name:      "Hours only",
			remaining: TimeRemaining{Total: time.Hour * 5},
			expected:  "5 hours",
		},
		{
			name:      "One hour",
			remaining: TimeRemaining{Total: time.Hour + time.Minute},
			expected:  "1 hour",
		},
		{
			name:      "Minutes",
			remaining: TimeRemaining{Total: 10 * time.Minute},
			expected:  "Less than 1 hour",
		},
		{
			name:      "Expired",
			remaining: TimeRemaining{Total: -time.Hour},
			expected:  "Expired",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatTimeRemaining(tt.remaining))
		})
	}
}

func newCapturingEntry() (*logrus.Entry, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logrus.NewEntry(logger), hook
}

func messages(hook *test.Hook) []string {
	var out []string
	for _, e := range hook.AllEntries() {
		out = append(out, e.Message)
	}
	return out
}

func TestLogDecision(t *testing.T) {
	entry, hook := newCapturingEntry()

	LogDecision(entry, Decide(licensetoken.ExpiredOutsideGracePeriod, "Widget", ModeError))

	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, logrus.ErrorLevel, last.Level)
	assert.Equal(t, "License for Widget has expired. Please renew your license.", last.Message)
	assert.Equal(t, "expired_outside_grace_period", last.Data["result"])
}

func TestLogLicenseInfo(t *testing.T) {
	now := time.Now()

	t.Run("not found", func(t *testing.T) {
		entry, hook := newCapturingEntry()
		LogLicenseInfo(entry, LicenseInfo{Product: "Widget"})
		assert.Equal(t, []string{"No license found"}, messages(hook))
		assert.Equal(t, "Widget", hook.LastEntry().Data["product"])
	})

	t.Run("invalid", func(t *testing.T) {
		entry, hook := newCapturingEntry()
		LogLicenseInfo(entry, LicenseInfo{
			Product: "Widget",
			Found:   true,
			Result:  licensetoken.Invalid,
			Err:     errors.New("bad signature"),
		})
		last := hook.LastEntry()
		require.NotNil(t, last)
		assert.Equal(t, "License validation failed", last.Message)
		assert.Equal(t, logrus.WarnLevel, last.Level)
		assert.NotNil(t, last.Data[logrus.ErrorKey])
	})

	t.Run("valid and expiring soon", func(t *testing.T) {
		entry, hook := newCapturingEntry()
		expires := now.Add(10 * 24 * time.Hour)
		LogLicenseInfo(entry, LicenseInfo{
			Product: "Widget",
			Found:   true,
			Result:  licensetoken.Valid,
			Claims: &licensetoken.Claims{
				Subject: "sub-1",
				Product: "Widget",
				Edition: "Pro",
				Client:  "client-1",
				Issuer:  "Acme",
			},
			ExpiresAt:     expires,
			TimeRemaining: calculateTimeRemaining(now, expires),
		})
		msgs := messages(hook)
		assert.Contains(t, msgs, "License status: valid")
		assert.Contains(t, msgs, "Edition: Pro")
		assert.Contains(t, msgs, "Client: client-1")
		assert.Contains(t, msgs, "Issued by: Acme")
		assert.Contains(t, msgs, "License expires soon! Please renew your license")
	})

	t.Run("within grace", func(t *testing.T) {
		entry, hook := newCapturingEntry()
		LogLicenseInfo(entry, LicenseInfo{
			Product:   "Widget",
			Found:     true,
			Result:    licensetoken.ExpiredWithinGracePeriod,
			Claims:    &licensetoken.Claims{Product: "Widget", GracePeriodDays: licensetoken.GraceDays(7)},
			ExpiresAt: now.Add(-24 * time.Hour),
		})
		assert.Contains(t, messages(hook), "License expired, grace period of 7 days in effect")
	})
}

func TestLogProducers(t *testing.T) {
	_, publicPEM := testKeyPEMs(t)
	entry, hook := newCapturingEntry()

	LogProducers(entry, []licensetoken.Producer{
		{ProductName: "Widget", PublicKeyPEM: publicPEM},
		{ProductName: "Broken", PublicKeyPEM: "nope"},
	})

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Contains(t, entries[0].Message, "Product 'Widget' - key SHA256:")
	assert.Equal(t, logrus.ErrorLevel, entries[1].Level)
}
