package services

import (
	"context"
	"fmt"
	"log"
)

// Cache keys are built only through these helpers so every writer invalidates
// the same names every reader populates.

const (
	cacheKeyAllAdvisors    = "advisors:all"
	cacheKeyAllCommissions = "commissions:all"
	cacheKeyDashboard      = "dashboard:summary"
)

// CacheKeyAllAdvisors is the list of advisors.
func CacheKeyAllAdvisors() string { return cacheKeyAllAdvisors }

// CacheKeyAllCommissions is the global commission ledger listing.
func CacheKeyAllCommissions() string { return cacheKeyAllCommissions }

// CacheKeyAdvisorCommissions is one advisor's commission ledger listing.
func CacheKeyAdvisorCommissions(advisorID uint) string {
	return fmt.Sprintf("commissions:advisor:%d", advisorID)
}

// CacheKeyPolicy is one policy with its schedule preloaded.
func CacheKeyPolicy(policyID uint) string {
	return fmt.Sprintf("policy:%d", policyID)
}

// CacheKeyDashboard is the dashboard summary payload.
func CacheKeyDashboard() string { return cacheKeyDashboard }

// InvalidateCommissionCaches drops every cached read affected by a commission
// ledger mutation for the given advisor. Cache failures are logged and
// swallowed; a cache outage must never block a write.
func InvalidateCommissionCaches(ctx context.Context, cache *RedisCache, advisorID uint) {
	if cache == nil {
		return
	}
	keys := []string{
		cacheKeyAllCommissions,
		CacheKeyAdvisorCommissions(advisorID),
		cacheKeyAllAdvisors,
		cacheKeyDashboard,
	}
	if err := cache.Delete(ctx, keys...); err != nil {
		log.Printf("cache invalidation failed for advisor %d: %v", advisorID, err)
	}
}

// InvalidatePolicyCaches drops cached reads affected by a policy schedule
// mutation (reconciliation, policy edits).
func InvalidatePolicyCaches(ctx context.Context, cache *RedisCache, policyID uint) {
	if cache == nil {
		return
	}
	keys := []string{
		CacheKeyPolicy(policyID),
		cacheKeyDashboard,
	}
	if err := cache.Delete(ctx, keys...); err != nil {
		log.Printf("cache invalidation failed for policy %d: %v", policyID, err)
	}
}
