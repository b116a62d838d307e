package internaldefs

import (
	goPortal "github.com/MrEthical07/goPortal"
)

// BucketCount is the number of latency buckets, +Inf included.
const BucketCount = 8

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   goPortal.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   goPortal.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: goPortal.MetricLoginSuccess, Name: "goportal_login_success_total", Help: "Logins that loaded a user."},
	{ID: goPortal.MetricLoginFailure, Name: "goportal_login_failure_total", Help: "Logins that failed at any step."},
	{ID: goPortal.MetricUserFetchSuccess, Name: "goportal_user_fetch_success_total", Help: "Current-user fetches that succeeded."},
	{ID: goPortal.MetricUserFetchFailure, Name: "goportal_user_fetch_failure_total", Help: "Current-user fetches the backend rejected."},
	{ID: goPortal.MetricSessionInvalidated, Name: "goportal_session_invalidated_total", Help: "Forced logouts after a failed user fetch."},
	{ID: goPortal.MetricLogout, Name: "goportal_logout_total", Help: "Completed logout procedures."},
	{ID: goPortal.MetricLogoutRemoteFailure, Name: "goportal_logout_remote_failure_total", Help: "Backend logout calls that failed and were ignored."},
	{ID: goPortal.MetricTokenPersistFailure, Name: "goportal_token_persist_failure_total", Help: "Token writes rejected by token storage."},
	{ID: goPortal.MetricNavigationAllowed, Name: "goportal_navigation_allowed_total", Help: "Guard decisions that allowed a transition."},
	{ID: goPortal.MetricNavigationRedirectLogin, Name: "goportal_navigation_redirect_login_total", Help: "Anonymous visits to protected routes redirected to login."},
	{ID: goPortal.MetricNavigationRedirectHome, Name: "goportal_navigation_redirect_home_total", Help: "Signed-in visits to the login page redirected home."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goPortal.MetricGuardLatency, Name: "goportal_guard_latency_seconds", Help: "Navigation guard latency including awaited user fetches."},
}

// HistogramBounds are the Prometheus le labels, matching the engine buckets.
var HistogramBounds = [BucketCount]string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix are instrument-name-safe forms of HistogramBounds.
var HistogramBoundSuffix = [BucketCount]string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, padding or truncating.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
