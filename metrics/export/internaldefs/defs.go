package internaldefs

import (
	"github.com/MrEthical07/scopeAuth"
)

// BucketCount matches the number of latency buckets in scopeAuth.Metrics.
const BucketCount = 8

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   scopeAuth.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine latency histogram to its exported name.
type HistogramDef struct {
	ID   scopeAuth.MetricID
	Name string
	Help string
}

// AuditDroppedName is exported alongside the engine counters.
const AuditDroppedName = "scopeauth_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Audit events dropped because the dispatcher buffer was full."

var CounterDefs = []CounterDef{
	{ID: scopeAuth.MetricLoginSuccess, Name: "scopeauth_login_success_total", Help: "Access tokens issued by Authenticate."},
	{ID: scopeAuth.MetricLoginFailure, Name: "scopeauth_login_failure_total", Help: "Rejected login credentials."},
	{ID: scopeAuth.MetricLoginRateLimited, Name: "scopeauth_login_rate_limited_total", Help: "Logins refused by the rate limiter."},
	{ID: scopeAuth.MetricLimiterUnavailable, Name: "scopeauth_limiter_unavailable_total", Help: "Rate limiter backend failures."},
	{ID: scopeAuth.MetricPasswordRehash, Name: "scopeauth_password_rehash_total", Help: "Stored hashes upgraded on login."},
	{ID: scopeAuth.MetricPasswordRehashFailure, Name: "scopeauth_password_rehash_failure_total", Help: "Hash upgrades that failed and were skipped."},
	{ID: scopeAuth.MetricMalformedHash, Name: "scopeauth_malformed_hash_total", Help: "Stored hashes that could not be parsed."},
	{ID: scopeAuth.MetricAuthorizeSuccess, Name: "scopeauth_authorize_success_total", Help: "Requests admitted by Authorize."},
	{ID: scopeAuth.MetricTokenMissing, Name: "scopeauth_token_missing_total", Help: "Requests without a bearer token."},
	{ID: scopeAuth.MetricTokenMalformed, Name: "scopeauth_token_malformed_total", Help: "Undecodable or forged bearer tokens."},
	{ID: scopeAuth.MetricTokenExpired, Name: "scopeauth_token_expired_total", Help: "Expired bearer tokens."},
	{ID: scopeAuth.MetricInsufficientScope, Name: "scopeauth_insufficient_scope_total", Help: "Tokens lacking a required scope."},
	{ID: scopeAuth.MetricPrincipalNotFound, Name: "scopeauth_principal_not_found_total", Help: "Valid tokens whose subject no longer resolves."},
	{ID: scopeAuth.MetricDirectoryUnavailable, Name: "scopeauth_directory_unavailable_total", Help: "User directory failures."},
	{ID: scopeAuth.MetricPasswordChangeSuccess, Name: "scopeauth_password_change_success_total", Help: "Successful password changes."},
	{ID: scopeAuth.MetricPasswordChangeFailure, Name: "scopeauth_password_change_failure_total", Help: "Rejected password changes."},
}

var HistogramDefs = []HistogramDef{
	{ID: scopeAuth.MetricAuthenticateLatency, Name: "scopeauth_authenticate_latency_seconds", Help: "Authenticate latency."},
	{ID: scopeAuth.MetricAuthorizeLatency, Name: "scopeauth_authorize_latency_seconds", Help: "Authorize latency."},
}

// HistogramBounds are the finite upper bounds in seconds. The last engine
// bucket is +Inf.
var HistogramBounds = [BucketCount - 1]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket for exporters without native histograms.
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

// NormalizeBuckets pads or truncates raw to BucketCount entries.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

// ApproxSum estimates the histogram sum from bucket midpoints. The engine
// does not keep exact sums.
func ApproxSum(raw [BucketCount]uint64) float64 {
	var sum float64
	lower := 0.0
	for i, n := range raw {
		upper := lower * 2
		if i < len(HistogramBounds) {
			upper = HistogramBounds[i]
		}
		sum += float64(n) * (lower + upper) / 2
		lower = upper
	}
	return sum
}
