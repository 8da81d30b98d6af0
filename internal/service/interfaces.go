package service

import (
	"context"

	"github.com/limbo/goalbot/internal/store"
	"github.com/limbo/goalbot/pkg/entity"
)

type CreateGoalRequest struct {
	UserID int64
	Text   string            `validate:"required,max=400"`
	Reward int               `validate:"required,gt=0"`
	Repeat entity.RepeatType `validate:"repeat_type"`
}

type CreateRewardRequest struct {
	UserID    int64
	Text      string `validate:"required"`
	Cost      int    `validate:"required,gt=0"`
	Renewable bool
}

// GoalPatch carries the fields an edit wants to change. Nil means
// untouched, which is different from setting a zero value.
type GoalPatch struct {
	Text      *string            `validate:"omitnil,max=400"`
	Reward    *int               `validate:"omitnil,gt=0"`
	Repeat    *entity.RepeatType `validate:"omitnil,repeat_type"`
	Completed *bool
}

type LedgerServiceI interface {
	// Returns the single live instance for the user, creating a
	// zero-balance ledger row on first reference
	Fetch(ctx context.Context, id int64) (*entity.User, error)
	// Atomic debit-if-sufficient. (false, nil) means insufficient funds
	DebitPoints(ctx context.Context, id int64, amount float64) (bool, error)
	DebitSharePoints(ctx context.Context, id int64, amount int) (bool, error)
	// Unconditionally adds to both balances
	Credit(ctx context.Context, id int64, points float64, sharePoints int) error
	// Credit joined with the caller's write in one store transaction
	CreditWithin(ctx context.Context, id int64, points float64, sharePoints int, extra func(tx store.Executor) error) error
}

type GoalsServiceI interface {
	Create(ctx context.Context, req *CreateGoalRequest) (*entity.Goal, error)
	Get(ctx context.Context, id int) (*entity.Goal, error)
	List(ctx context.Context, uid int64, includeCompleted bool) ([]*entity.Goal, error)
	Edit(ctx context.Context, id int, uid int64, patch *GoalPatch) (*entity.Goal, error)
	// Marks the goal completed and credits the owner's ledger
	Complete(ctx context.Context, id int, uid int64) (*entity.Goal, error)
	// Attaches an incentive from a non-owner at the cost of 1 share point
	Boost(ctx context.Context, goalID int, sender int64) (*entity.Goal, error)
}

type RewardsServiceI interface {
	Create(ctx context.Context, req *CreateRewardRequest) (*entity.Reward, error)
	Get(ctx context.Context, id int) (*entity.Reward, error)
	List(ctx context.Context, uid int64) ([]*entity.Reward, error)
	// Debits the buyer by the reward's cost; one-shot rewards are removed
	Redeem(ctx context.Context, id int, buyer int64) (*entity.Reward, error)
}
