package services

import (
	"errors"
	"fmt"
)

// ErrBusinessRule marks validation failures callers should surface as 4xx
// responses. Match with errors.Is.
var ErrBusinessRule = errors.New("business rule violated")

// ExceedsAvailableBalanceError is returned when a requested per-policy advance
// is larger than the policy's released-minus-paid commission balance.
type ExceedsAvailableBalanceError struct {
	PolicyNumber string
	Requested    float64
	Released     float64
	Paid         float64
}

func (e *ExceedsAvailableBalanceError) Error() string {
	return fmt.Sprintf(
		"cannot apply advance of %.2f to policy %s: available balance is %.2f (released %.2f, paid %.2f)",
		e.Requested, e.PolicyNumber, e.Released-e.Paid, e.Released, e.Paid,
	)
}

func (e *ExceedsAvailableBalanceError) Is(target error) bool {
	return target == ErrBusinessRule
}
