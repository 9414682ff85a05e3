package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter fed by Engine.AuditDropped.
const (
	AuditDroppedName = "gosession_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped due to dispatcher backpressure."
)

// CounterDefs lists every exported engine counter in output order.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricLoginSuccess, Name: "gosession_login_success_total", Help: "Issued login token pairs."},
	{ID: goSession.MetricLoginFailure, Name: "gosession_login_failure_total", Help: "Rejected credential checks."},
	{ID: goSession.MetricLoginRateLimited, Name: "gosession_login_rate_limited_total", Help: "Logins refused by the throttle."},
	{ID: goSession.MetricRefreshSuccess, Name: "gosession_refresh_success_total", Help: "Completed refresh rotations."},
	{ID: goSession.MetricRefreshFailure, Name: "gosession_refresh_failure_total", Help: "Refresh calls rejected before consume."},
	{ID: goSession.MetricRefreshReuseDetected, Name: "gosession_refresh_reuse_detected_total", Help: "Refresh tokens presented after consume, revoke or expiry."},
	{ID: goSession.MetricLogout, Name: "gosession_logout_total", Help: "Logouts that deleted a refresh entry."},
	{ID: goSession.MetricLogoutNoop, Name: "gosession_logout_noop_total", Help: "Logouts without a usable refresh token."},
	{ID: goSession.MetricAuthorizeSuccess, Name: "gosession_authorize_success_total", Help: "Accepted access tokens."},
	{ID: goSession.MetricAuthorizeFailure, Name: "gosession_authorize_failure_total", Help: "Rejected access tokens."},
	{ID: goSession.MetricStoreError, Name: "gosession_store_error_total", Help: "Refresh store failures."},
}

// HistogramDefs lists every exported engine histogram.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricAuthorizeLatency, Name: "gosession_authorize_latency_seconds", Help: "Authorize latency."},
}

// HistogramBounds are the bucket upper bounds in seconds, matching the engine's
// fixed buckets. The last bucket is +Inf.
var HistogramBounds = []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters that
// flatten buckets into separate instruments.
var HistogramBoundSuffix = []string{
	"0_0001",
	"0_00025",
	"0_0005",
	"0_001",
	"0_0025",
	"0_005",
	"0_01",
	"inf",
}

// BucketCount is the number of buckets including +Inf.
const BucketCount = 8

// NormalizeBuckets copies raw into a fixed-size array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
