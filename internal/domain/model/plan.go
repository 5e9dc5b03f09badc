package model

// Feature is a metered dimension of plan usage.
type Feature string

const (
	FeatureAIRequests Feature = "ai_requests"
)

// UnlimitedQuota is the sentinel limit meaning no metering applies.
const UnlimitedQuota int64 = -1

// PlanTier identifies a subscription level. Billing itself is owned by an
// external service; this system only needs the tier to pick a limit row.
type PlanTier string

const (
	PlanFree       PlanTier = "free"
	PlanPro        PlanTier = "pro"
	PlanEnterprise PlanTier = "enterprise"
)

// PlanLimits maps tier x feature to a monthly allowance.
type PlanLimits map[PlanTier]map[Feature]int64

// DefaultPlanLimits is the fixed allowance table used when configuration does
// not override it.
func DefaultPlanLimits() PlanLimits {
	return PlanLimits{
		PlanFree:       {FeatureAIRequests: 100},
		PlanPro:        {FeatureAIRequests: 5000},
		PlanEnterprise: {FeatureAIRequests: UnlimitedQuota},
	}
}

// LimitFor resolves the allowance for a tier and feature. Unknown tiers fall
// back to free; unknown features are unlimited (not metered).
func (pl PlanLimits) LimitFor(tier PlanTier, feature Feature) int64 {
	features, ok := pl[tier]
	if !ok {
		features = pl[PlanFree]
	}
	limit, ok := features[feature]
	if !ok {
		return UnlimitedQuota
	}
	return limit
}
