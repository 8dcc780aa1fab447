package monitoring

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/guided-traffic/license-seal/internal/license"
	"github.com/guided-traffic/license-seal/pkg/licensetoken"
)

// KubernetesLabels holds Kubernetes metadata labels
var (
	kubernetesNamespace = os.Getenv("KUBERNETES_NAMESPACE")
	kubernetesPodName   = os.Getenv("KUBERNETES_POD_NAME")
	helmReleaseName     = os.Getenv("HELM_RELEASE_NAME")
	helmChartVersion    = os.Getenv("HELM_CHART_VERSION")
)

// getKubernetesLabels returns the Kubernetes labels for metrics
func getKubernetesLabels() prometheus.Labels {
	labels := prometheus.Labels{}

	if kubernetesNamespace != "" {
		labels["kubernetes_namespace"] = kubernetesNamespace
	}
	if kubernetesPodName != "" {
		labels["kubernetes_pod_name"] = kubernetesPodName
	}
	if helmReleaseName != "" {
		labels["helm_release"] = helmReleaseName
	}
	if helmChartVersion != "" {
		labels["helm_chart_version"] = helmChartVersion
	}

	return labels
}

// Registry with Kubernetes labels
var (
	registry = newRegistry()
	factory  = promauto.With(prometheus.WrapRegistererWith(getKubernetesLabels(), registry))
)

func newRegistry() *prometheus.Registry {
	r := prometheus.NewRegistry()
	r.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry returns the registry all license-seal metrics are registered with.
func Registry() *prometheus.Registry {
	return registry
}

// Prometheus metrics for license validation
var (
	// Validation metrics
	ValidationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "license_seal_validations_total",
			Help: "Total number of license validations by product and result",
		},
		[]string{"product", "result"},
	)

	ValidationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "license_seal_validation_duration_seconds",
			Help:    "License validation duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		},
		[]string{"product"},
	)

	// License metrics
	LicenseStatus = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "license_seal_license_status",
			Help: "Last validation result per product (1 = valid, 10 = expired within grace period, 20 = expired, 100 = invalid)",
		},
		[]string{"product"},
	)

	LicenseExpiryTime = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "license_seal_license_expiry_timestamp",
			Help: "License expiry time as Unix timestamp",
		},
		[]string{"product"},
	)

	LicenseDaysRemaining = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "license_seal_license_days_remaining",
			Help: "Number of days remaining until license expires",
		},
		[]string{"product"},
	)

	// Build metrics
	BuildInfo = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "license_seal_build_info",
			Help: "Build information",
		},
		[]string{"version", "commit", "build_time"},
	)

	// HTTP Request metrics
	RequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "license_seal_http_requests_total",
			Help: "Total number of HTTP requests to the monitoring server",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	RequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "license_seal_http_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	ActiveConnections = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "license_seal_http_active_connections",
			Help: "Number of active connections",
		},
	)
)

// SetBuildInfo sets build information
func SetBuildInfo(version, commit, buildTime string) {
	BuildInfo.WithLabelValues(version, commit, buildTime).Set(1)
}

// Recorder feeds validation events and monitor snapshots into the metrics.
type Recorder struct {
	now func() time.Time
}

// NewRecorder creates a Recorder using the wall clock for days remaining.
func NewRecorder() *Recorder {
	return &Recorder{now: time.Now}
}

// ObserveValidation implements licensetoken.Observer.
func (r *Recorder) ObserveValidation(product string, result licensetoken.Result, elapsed time.Duration) {
	ValidationsTotal.WithLabelValues(product, result.String()).Inc()
	ValidationDuration.WithLabelValues(product).Observe(elapsed.Seconds())
}

// ReportSnapshot implements license.Reporter.
func (r *Recorder) ReportSnapshot(s license.Snapshot) {
	for _, info := range s.Licenses {
		r.SetLicenseInfo(info.Product, info.Result, info.ExpiresAt)
	}
}

// SetLicenseInfo sets license information for one product
func (r *Recorder) SetLicenseInfo(product string, result licensetoken.Result, expiresAt time.Time) {
	LicenseStatus.WithLabelValues(product).Set(float64(result))

	if expiresAt.IsZero() {
		LicenseExpiryTime.DeleteLabelValues(product)
		LicenseDaysRemaining.DeleteLabelValues(product)
		return
	}

	expiryTimestamp := float64(expiresAt.Unix())
	LicenseExpiryTime.WithLabelValues(product).Set(expiryTimestamp)

	// Calculate days remaining
	daysRemaining := (expiryTimestamp - float64(r.now().Unix())) / 86400
	if daysRemaining < 0 {
		daysRemaining = 0
	}
	LicenseDaysRemaining.WithLabelValues(product).Set(daysRemaining)
}
