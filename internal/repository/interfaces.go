package repository

import (
	"context"

	"github.com/limbo/goalbot/internal/store"
	"github.com/limbo/goalbot/pkg/entity"
)

type UsersRepositoryI interface {
	// Inserts a zero-balance ledger row for the platform user id
	Create(ctx context.Context, id int64) error
	// Looks up the ledger row
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	// Persists both balances
	UpdateBalances(ctx context.Context, id int64, points float64, sharePoints int) error
	// Same, but on the caller's executor so it can join a transaction
	UpdateBalancesIn(ctx context.Context, ex store.Executor, id int64, points float64, sharePoints int) error
}

type GoalsRepositoryI interface {
	// Inserts a goal row, filling in the assigned id and creation time
	Create(ctx context.Context, goal *entity.Goal) error
	// Searches goal with given id. Incentives are not hydrated here
	GetByID(ctx context.Context, id int) (*entity.Goal, error)
	// Lists a user's goals ordered by creation time. When includeCompleted
	// is false only uncompleted goals come back
	GetByUserID(ctx context.Context, uid int64, includeCompleted bool) ([]*entity.Goal, error)
	// Persists the full current row state
	Update(ctx context.Context, goal *entity.Goal) error
	// Same, but on the caller's executor so it can join a transaction
	UpdateIn(ctx context.Context, ex store.Executor, goal *entity.Goal) error
	// Bulk-clears the completed flag for every goal with the given repeat
	ResetCompleted(ctx context.Context, repeat entity.RepeatType) (int64, error)
}

type RewardsRepositoryI interface {
	// Inserts a reward row, filling in the assigned id and creation time
	Create(ctx context.Context, reward *entity.Reward) error
	GetByID(ctx context.Context, id int) (*entity.Reward, error)
	GetByUserID(ctx context.Context, uid int64) ([]*entity.Reward, error)
	// Physically removes the row (one-shot rewards after redemption)
	Delete(ctx context.Context, id int) error
}

type IncentivesRepositoryI interface {
	Create(ctx context.Context, inc *entity.Incentive) error
	Get(ctx context.Context, goalID int, sender int64) (*entity.Incentive, error)
	GetByGoalID(ctx context.Context, goalID int) ([]entity.Incentive, error)
}
