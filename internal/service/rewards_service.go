package service

import (
	"context"
	"errors"
	"log"

	"github.com/limbo/goalbot/internal/cache"
	errorvalues "github.com/limbo/goalbot/internal/error_values"
	"github.com/limbo/goalbot/internal/repository"
	"github.com/limbo/goalbot/pkg/entity"
)

type RewardsService struct {
	repo   repository.RewardsRepositoryI
	ledger LedgerServiceI

	cache *cache.Identity[int, *entity.Reward]
}

func NewRewardsService(rewardsRepo repository.RewardsRepositoryI, ledger LedgerServiceI) *RewardsService {
	if rewardsRepo == nil || ledger == nil {
		log.Fatal("on rewards service provided nil dependencies")
	}
	return &RewardsService{
		repo:   rewardsRepo,
		ledger: ledger,
		cache:  cache.NewIdentity[int, *entity.Reward](),
	}
}

func (rs *RewardsService) Create(ctx context.Context, req *CreateRewardRequest) (*entity.Reward, error) {
	if err := validateStruct(*req); err != nil {
		return nil, err
	}
	reward := &entity.Reward{
		UserID:    req.UserID,
		Text:      req.Text,
		Cost:      req.Cost,
		Renewable: req.Renewable,
	}
	err := rs.repo.Create(ctx, reward)
	if errors.Is(err, errorvalues.ErrOwnerMissing) {
		if _, err = rs.ledger.Fetch(ctx, req.UserID); err != nil {
			return nil, err
		}
		err = rs.repo.Create(ctx, reward)
	}
	if err != nil {
		return nil, errors.New("rewards repository error: " + err.Error())
	}
	rs.cache.Put(reward.ID, reward)
	return reward, nil
}

func (rs *RewardsService) Get(ctx context.Context, id int) (*entity.Reward, error) {
	return rs.cache.GetOrLoad(id, func() (*entity.Reward, error) {
		reward, err := rs.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, errorvalues.ErrRewardNotFound) {
				return nil, err
			}
			return nil, errors.New("rewards repository error: " + err.Error())
		}
		return reward, nil
	})
}

func (rs *RewardsService) List(ctx context.Context, uid int64) ([]*entity.Reward, error) {
	rewards, err := rs.repo.GetByUserID(ctx, uid)
	if err != nil {
		return nil, errors.New("rewards repository error: " + err.Error())
	}
	return rewards, nil
}

// Redeem debits the buyer by the reward's cost; no partial debit. A
// one-shot reward is then physically removed: row deleted, cache entry
// evicted, and the live instance flagged so other holders see it gone.
func (rs *RewardsService) Redeem(ctx context.Context, id int, buyer int64) (*entity.Reward, error) {
	reward, err := rs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, errorvalues.ErrRewardNotFound) {
			return nil, errorvalues.ErrRewardClaimed
		}
		return nil, err
	}
	if reward.Deleted {
		return nil, errorvalues.ErrRewardClaimed
	}
	ok, err := rs.ledger.DebitPoints(ctx, buyer, float64(reward.Cost))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errorvalues.ErrInsufficientPoints
	}
	if !reward.Renewable {
		if err := rs.repo.Delete(ctx, reward.ID); err != nil && !errors.Is(err, errorvalues.ErrRewardNotFound) {
			return nil, errors.New("rewards repository error: " + err.Error())
		}
		rs.cache.Evict(reward.ID)
		reward.Deleted = true
	}
	return reward, nil
}
