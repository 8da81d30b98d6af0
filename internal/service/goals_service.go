package service

import (
	"context"
	"errors"
	"log"

	"github.com/limbo/goalbot/internal/cache"
	errorvalues "github.com/limbo/goalbot/internal/error_values"
	"github.com/limbo/goalbot/internal/repository"
	"github.com/limbo/goalbot/internal/store"
	"github.com/limbo/goalbot/pkg/entity"
)

// incentiveBonus is the payout boost each incentive adds, as a fraction of
// the base reward.
const incentiveBonus = 0.1

type incentiveKey struct {
	GoalID int
	Sender int64
}

type GoalsService struct {
	repo       repository.GoalsRepositoryI
	incentives repository.IncentivesRepositoryI
	ledger     LedgerServiceI

	goalCache      *cache.Identity[int, *entity.Goal]
	incentiveCache *cache.Identity[incentiveKey, *entity.Incentive]
}

func NewGoalsService(goalsRepo repository.GoalsRepositoryI, incentivesRepo repository.IncentivesRepositoryI, ledger LedgerServiceI) *GoalsService {
	if goalsRepo == nil || incentivesRepo == nil || ledger == nil {
		log.Fatal("on goals service provided nil dependencies")
	}
	return &GoalsService{
		repo:           goalsRepo,
		incentives:     incentivesRepo,
		ledger:         ledger,
		goalCache:      cache.NewIdentity[int, *entity.Goal](),
		incentiveCache: cache.NewIdentity[incentiveKey, *entity.Incentive](),
	}
}

// Create inserts the goal row and registers the instance in the cache.
// When the owner has no ledger row yet the insert trips the FK; a
// zero-balance row is provisioned and the insert retried exactly once.
func (gs *GoalsService) Create(ctx context.Context, req *CreateGoalRequest) (*entity.Goal, error) {
	if err := validateStruct(*req); err != nil {
		return nil, err
	}
	goal := &entity.Goal{
		UserID:     req.UserID,
		Text:       req.Text,
		Reward:     req.Reward,
		Repeat:     req.Repeat,
		Incentives: []entity.Incentive{},
	}
	err := gs.repo.Create(ctx, goal)
	if errors.Is(err, errorvalues.ErrOwnerMissing) {
		if _, err = gs.ledger.Fetch(ctx, req.UserID); err != nil {
			return nil, err
		}
		err = gs.repo.Create(ctx, goal)
	}
	if err != nil {
		return nil, errors.New("goals repository error: " + err.Error())
	}
	gs.goalCache.Put(goal.ID, goal)
	return goal, nil
}

// Get is read-through with incentive hydration on the miss path.
func (gs *GoalsService) Get(ctx context.Context, id int) (*entity.Goal, error) {
	return gs.goalCache.GetOrLoad(id, func() (*entity.Goal, error) {
		goal, err := gs.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, errorvalues.ErrGoalNotFound) {
				return nil, err
			}
			return nil, errors.New("goals repository error: " + err.Error())
		}
		incs, err := gs.incentives.GetByGoalID(ctx, id)
		if err != nil {
			return nil, errors.New("incentives repository error: " + err.Error())
		}
		goal.Incentives = incs
		return goal, nil
	})
}

// List reads past the cache so the filter and ordering come straight from
// the store. Returned instances are not forced through the identity slots.
func (gs *GoalsService) List(ctx context.Context, uid int64, includeCompleted bool) ([]*entity.Goal, error) {
	goals, err := gs.repo.GetByUserID(ctx, uid, includeCompleted)
	if err != nil {
		return nil, errors.New("goals repository error: " + err.Error())
	}
	return goals, nil
}

// Edit applies only the supplied patch fields to the cached instance and
// persists the full row back in one statement.
func (gs *GoalsService) Edit(ctx context.Context, id int, uid int64, patch *GoalPatch) (*entity.Goal, error) {
	if err := validateStruct(*patch); err != nil {
		return nil, err
	}
	goal, err := gs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if goal.UserID != uid {
		return nil, errorvalues.ErrNotOwner
	}
	if patch.Text != nil {
		goal.Text = *patch.Text
	}
	if patch.Reward != nil {
		goal.Reward = *patch.Reward
	}
	if patch.Repeat != nil {
		goal.Repeat = *patch.Repeat
	}
	if patch.Completed != nil {
		goal.Completed = *patch.Completed
	}
	if err := gs.repo.Update(ctx, goal); err != nil {
		if errors.Is(err, errorvalues.ErrGoalNotFound) {
			return nil, err
		}
		return nil, errors.New("goals repository error: " + err.Error())
	}
	return goal, nil
}

// Complete flips the completed flag and credits the owner's ledger with
// the payout plus one share point, in a single store transaction.
func (gs *GoalsService) Complete(ctx context.Context, id int, uid int64) (*entity.Goal, error) {
	goal, err := gs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if goal.UserID != uid {
		return nil, errorvalues.ErrNotOwner
	}
	if goal.Completed {
		return nil, errorvalues.ErrGoalCompleted
	}
	updated := *goal
	updated.Completed = true
	err = gs.ledger.CreditWithin(ctx, goal.UserID, Payout(goal), 1, func(tx store.Executor) error {
		return gs.repo.UpdateIn(ctx, tx, &updated)
	})
	if err != nil {
		return nil, errors.New("completing goal error: " + err.Error())
	}
	goal.Completed = true
	return goal, nil
}

// Boost attaches an incentive from sender. One incentive per (goal,
// sender) pair; the sender pays one share point before the row exists.
func (gs *GoalsService) Boost(ctx context.Context, goalID int, sender int64) (*entity.Goal, error) {
	goal, err := gs.Get(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if goal.UserID == sender {
		return nil, errorvalues.ErrSelfBoost
	}
	key := incentiveKey{GoalID: goalID, Sender: sender}
	if _, ok := gs.incentiveCache.Get(key); ok {
		return nil, errorvalues.ErrAlreadyBoosted
	}
	switch _, err = gs.incentives.Get(ctx, goalID, sender); {
	case err == nil:
		return nil, errorvalues.ErrAlreadyBoosted
	case !errors.Is(err, errorvalues.ErrIncentiveNotFound):
		return nil, errors.New("incentives repository error: " + err.Error())
	}
	ok, err := gs.ledger.DebitSharePoints(ctx, sender, 1)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errorvalues.ErrInsufficientSharePoints
	}
	inc := &entity.Incentive{GoalID: goalID, Sender: sender}
	if err := gs.incentives.Create(ctx, inc); err != nil {
		if errors.Is(err, errorvalues.ErrGoalNotFound) {
			return nil, err
		}
		return nil, errors.New("incentives repository error: " + err.Error())
	}
	gs.incentiveCache.Put(key, inc)
	goal.Incentives = append(goal.Incentives, *inc)
	return goal, nil
}

// Payout is the completion credit: base reward plus 10% of it per
// attached incentive, linear and uncapped.
func Payout(goal *entity.Goal) float64 {
	return float64(goal.Reward) + float64(goal.Reward)*incentiveBonus*float64(len(goal.Incentives))
}
