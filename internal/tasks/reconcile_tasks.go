package tasks

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"northsouth_agency/internal/models"
	"northsouth_agency/internal/services"
)

// ReconcilePolicyTaskDef backfills one policy's renewals, periods and payments
type ReconcilePolicyTaskDef struct{}

// TaskID returns the unique identifier for this task
func (t *ReconcilePolicyTaskDef) TaskID() string {
	return "reconcile_policy"
}

// CreateTask builds a one-off ScheduledTask for a single policy
func (t *ReconcilePolicyTaskDef) CreateTask(policyID uint, due time.Time) (*models.ScheduledTask, error) {
	args := map[string]interface{}{"policy_id": policyID}
	return BuildScheduledTask(t.TaskID(), args, due, nil, models.ScheduledTaskTypeOneTime, 3)
}

// HandleExecution runs the timeline reconciler for the policy in the arguments
func (t *ReconcilePolicyTaskDef) HandleExecution(ctx context.Context, db *gorm.DB, task models.ScheduledTask) (map[string]interface{}, error) {
	policyID, err := uintArg(task.Arguments, "policy_id")
	if err != nil {
		return nil, err
	}

	svc := services.NewReconcileService(db, Cache, services.RRuleSchedule{})
	res, err := svc.ReconcilePolicy(ctx, policyID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile policy %d: %w", policyID, err)
	}

	return map[string]interface{}{
		"status":           "success",
		"policy_id":        res.PolicyID,
		"skipped":          res.Skipped,
		"renewals_created": res.RenewalsCreated,
		"periods_created":  res.PeriodsCreated,
		"payments_created": res.PaymentsCreated,
	}, nil
}

// ReconcilePolicyTask is the singleton instance of ReconcilePolicyTaskDef
var ReconcilePolicyTask = &ReconcilePolicyTaskDef{}

// ReconcileAllPoliciesTaskDef reconciles every active policy; usually
// scheduled recurring with a daily RRULE so timelines stay current even when
// nobody opens the back office.
type ReconcileAllPoliciesTaskDef struct{}

// TaskID returns the unique identifier for this task
func (t *ReconcileAllPoliciesTaskDef) TaskID() string {
	return "reconcile_all_policies"
}

// CreateTask builds a recurring ScheduledTask covering all active policies
func (t *ReconcileAllPoliciesTaskDef) CreateTask(due time.Time, recurringInterval *string) (*models.ScheduledTask, error) {
	taskType := models.ScheduledTaskTypeOneTime
	if recurringInterval != nil {
		taskType = models.ScheduledTaskTypeRecurring
	}
	return BuildScheduledTask(t.TaskID(), map[string]interface{}{}, due, recurringInterval, taskType, 3)
}

// HandleExecution runs the reconciler over every active policy
func (t *ReconcileAllPoliciesTaskDef) HandleExecution(ctx context.Context, db *gorm.DB, task models.ScheduledTask) (map[string]interface{}, error) {
	svc := services.NewReconcileService(db, Cache, services.RRuleSchedule{})
	results, err := svc.ReconcileAllPolicies(ctx, time.Now())
	if err != nil {
		return nil, err
	}

	renewals, periods, payments, skipped := 0, 0, 0, 0
	for _, res := range results {
		renewals += res.RenewalsCreated
		periods += res.PeriodsCreated
		payments += res.PaymentsCreated
		if res.Skipped {
			skipped++
		}
	}

	return map[string]interface{}{
		"status":           "success",
		"policies_checked": len(results),
		"policies_skipped": skipped,
		"renewals_created": renewals,
		"periods_created":  periods,
		"payments_created": payments,
	}, nil
}

// ReconcileAllPoliciesTask is the singleton instance of ReconcileAllPoliciesTaskDef
var ReconcileAllPoliciesTask = &ReconcileAllPoliciesTaskDef{}

// uintArg reads a numeric argument that may arrive as float64 (JSON), int or
// uint depending on how the task was enqueued.
func uintArg(args map[string]interface{}, key string) (uint, error) {
	switch v := args[key].(type) {
	case float64:
		return uint(v), nil
	case int:
		return uint(v), nil
	case uint:
		return v, nil
	default:
		return 0, fmt.Errorf("%s not provided or invalid", key)
	}
}
