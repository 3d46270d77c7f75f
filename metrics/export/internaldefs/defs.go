package internaldefs

import (
	goGate "github.com/MrEthical07/goGate"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   goGate.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   goGate.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goGate.MetricLoginSuccess, Name: "gogate_login_success_total", Help: "Successful logins."},
	{ID: goGate.MetricLoginFailure, Name: "gogate_login_failure_total", Help: "Failed logins."},
	{ID: goGate.MetricLoginLocked, Name: "gogate_login_locked_total", Help: "Logins refused because the account is locked."},
	{ID: goGate.MetricLoginRateLimited, Name: "gogate_login_rate_limited_total", Help: "Logins refused by the per-client throttle."},
	{ID: goGate.MetricAccountLocked, Name: "gogate_account_locked_total", Help: "Accounts locked after exhausting the attempt budget."},
	{ID: goGate.MetricAccountUnlocked, Name: "gogate_account_unlocked_total", Help: "Accounts unlocked."},
	{ID: goGate.MetricSessionCreated, Name: "gogate_session_created_total", Help: "Created authenticated sessions."},
	{ID: goGate.MetricSessionInvalidated, Name: "gogate_session_invalidated_total", Help: "Sessions dropped because their profile was revoked."},
	{ID: goGate.MetricLogout, Name: "gogate_logout_total", Help: "Logouts."},
	{ID: goGate.MetricProfileSelected, Name: "gogate_profile_selected_total", Help: "Profile selections."},
	{ID: goGate.MetricProfileRejected, Name: "gogate_profile_rejected_total", Help: "Rejected profile selections."},
	{ID: goGate.MetricPasswordChangeSuccess, Name: "gogate_password_change_success_total", Help: "Successful password changes."},
	{ID: goGate.MetricPasswordChangeInvalidOld, Name: "gogate_password_change_invalid_old_total", Help: "Password changes with a wrong current password."},
	{ID: goGate.MetricPasswordUpgraded, Name: "gogate_password_upgraded_total", Help: "Stored hashes upgraded on login."},
	{ID: goGate.MetricRecoveryStarted, Name: "gogate_recovery_started_total", Help: "Started recovery challenges."},
	{ID: goGate.MetricRecoveryAnswersIncorrect, Name: "gogate_recovery_answers_incorrect_total", Help: "Incorrect security answer submissions."},
	{ID: goGate.MetricRecoveryRateLimited, Name: "gogate_recovery_rate_limited_total", Help: "Recovery requests refused by a rate limit."},
	{ID: goGate.MetricRecoverySuccess, Name: "gogate_recovery_success_total", Help: "Completed recoveries."},
	{ID: goGate.MetricRecoveryFailed, Name: "gogate_recovery_failed_total", Help: "Recoveries whose terminal action failed."},
	{ID: goGate.MetricInvokeSuccess, Name: "gogate_invoke_success_total", Help: "Successful operation invocations."},
	{ID: goGate.MetricInvokeDenied, Name: "gogate_invoke_denied_total", Help: "Operation invocations denied by the permission matrix."},
	{ID: goGate.MetricInvokeFailure, Name: "gogate_invoke_failure_total", Help: "Operation invocations whose handler failed."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goGate.MetricInvokeLatency, Name: "gogate_invoke_latency_seconds", Help: "Operation dispatch latency."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const (
	AuditDroppedName = "gogate_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramUpperBounds are the bucket upper bounds in seconds, excluding +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters without
// native histograms.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw snapshot buckets to the fixed width.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
