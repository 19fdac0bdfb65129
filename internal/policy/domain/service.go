package domain

import (
	"context"
	"errors"
)

type Service interface {
	// ActivePolicies re-reads and compiles active policies. Called per
	// evaluation so policy staleness is bounded by one event.
	ActivePolicies(ctx context.Context) ([]*CompiledPolicy, error)

	GetByID(ctx context.Context, id int64) (*Policy, error)
	List(ctx context.Context) ([]Policy, error)
}

var ErrPolicyNotFound = errors.New("policy_not_found")
