package service

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/limbo/goalbot/internal/cache"
	errorvalues "github.com/limbo/goalbot/internal/error_values"
	"github.com/limbo/goalbot/internal/repository"
	"github.com/limbo/goalbot/internal/store"
	"github.com/limbo/goalbot/pkg/entity"
)

// LedgerService owns the user identity cache and guards the non-negative
// balance invariant. Every mutation of a user's balances holds that user's
// lock, so concurrent debits against the same cached instance serialize.
type LedgerService struct {
	users  repository.UsersRepositoryI
	client *store.Client

	cache *cache.Identity[int64, *entity.User]
	locks sync.Map // int64 -> *sync.Mutex
}

func NewLedgerService(client *store.Client, usersRepo repository.UsersRepositoryI) *LedgerService {
	if usersRepo == nil {
		log.Fatal("provided nil usersRepo to ledger service")
	}
	return &LedgerService{
		users:  usersRepo,
		client: client,
		cache:  cache.NewIdentity[int64, *entity.User](),
	}
}

func (ls *LedgerService) lockFor(id int64) *sync.Mutex {
	v, _ := ls.locks.LoadOrStore(id, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Fetch is read-through: cached instance if present, otherwise the store
// row. A user referenced for the first time gets a zero-balance row.
func (ls *LedgerService) Fetch(ctx context.Context, id int64) (*entity.User, error) {
	return ls.cache.GetOrLoad(id, func() (*entity.User, error) {
		user, err := ls.users.GetByID(ctx, id)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, errorvalues.ErrUserNotFound) {
			return nil, errors.New("users repository error: " + err.Error())
		}
		if err := ls.users.Create(ctx, id); err != nil {
			return nil, errors.New("provisioning ledger row error: " + err.Error())
		}
		return &entity.User{ID: id}, nil
	})
}

// DebitPoints checks balance >= amount and persists the decrement.
// (false, nil) reports insufficient funds with no change made.
func (ls *LedgerService) DebitPoints(ctx context.Context, id int64, amount float64) (bool, error) {
	user, err := ls.Fetch(ctx, id)
	if err != nil {
		return false, err
	}
	mu := ls.lockFor(id)
	mu.Lock()
	defer mu.Unlock()
	if user.Points < amount {
		return false, nil
	}
	next := user.Points - amount
	if err := ls.users.UpdateBalances(ctx, id, next, user.SharePoints); err != nil {
		return false, errors.New("users repository error: " + err.Error())
	}
	user.Points = next
	return true, nil
}

func (ls *LedgerService) DebitSharePoints(ctx context.Context, id int64, amount int) (bool, error) {
	user, err := ls.Fetch(ctx, id)
	if err != nil {
		return false, err
	}
	mu := ls.lockFor(id)
	mu.Lock()
	defer mu.Unlock()
	if user.SharePoints < amount {
		return false, nil
	}
	next := user.SharePoints - amount
	if err := ls.users.UpdateBalances(ctx, id, user.Points, next); err != nil {
		return false, errors.New("users repository error: " + err.Error())
	}
	user.SharePoints = next
	return true, nil
}

func (ls *LedgerService) Credit(ctx context.Context, id int64, points float64, sharePoints int) error {
	return ls.CreditWithin(ctx, id, points, sharePoints, nil)
}

// CreditWithin credits the user and, when extra is given, runs it in the
// same store transaction before the balance write. Goal completion uses
// this to keep the completed flag and the payout atomic. The in-memory
// balances only advance after the store confirms.
func (ls *LedgerService) CreditWithin(ctx context.Context, id int64, points float64, sharePoints int, extra func(tx store.Executor) error) error {
	user, err := ls.Fetch(ctx, id)
	if err != nil {
		return err
	}
	mu := ls.lockFor(id)
	mu.Lock()
	defer mu.Unlock()
	nextPoints := user.Points + points
	nextShare := user.SharePoints + sharePoints
	if extra == nil {
		if err := ls.users.UpdateBalances(ctx, id, nextPoints, nextShare); err != nil {
			return errors.New("users repository error: " + err.Error())
		}
	} else {
		err := ls.client.WithTx(ctx, func(tx pgx.Tx) error {
			if err := extra(tx); err != nil {
				return err
			}
			return ls.users.UpdateBalancesIn(ctx, tx, id, nextPoints, nextShare)
		})
		if err != nil {
			return err
		}
	}
	user.Points = nextPoints
	user.SharePoints = nextShare
	return nil
}
