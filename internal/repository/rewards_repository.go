package repository

import (
	"context"
	"errors"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	errorvalues "github.com/limbo/goalbot/internal/error_values"
	"github.com/limbo/goalbot/internal/store"
	"github.com/limbo/goalbot/pkg/entity"
)

type RewardsRepository struct {
	client *store.Client
}

func NewRewardsRepo(client *store.Client) *RewardsRepository {
	if client == nil {
		log.Fatal("provided nil store client to rewardsRepo")
	}
	return &RewardsRepository{
		client: client,
	}
}

func (rr *RewardsRepository) Create(ctx context.Context, reward *entity.Reward) error {
	row := rr.client.QueryRow(ctx,
		`INSERT INTO reward (discord_user, text, cost, renewable)
		VALUES ($1, $2, $3, $4) RETURNING id, created;`,
		reward.UserID,
		reward.Text,
		reward.Cost,
		reward.Renewable,
	)
	if err := row.Scan(&reward.ID, &reward.Created); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			// FK violation: the owning user has no ledger row yet
			case "23503":
				return errorvalues.ErrOwnerMissing
			}
		}
		return errors.New("creating reward db error: " + err.Error())
	}
	return nil
}

func (rr *RewardsRepository) GetByID(ctx context.Context, id int) (*entity.Reward, error) {
	var reward entity.Reward
	row := rr.client.QueryRow(ctx,
		`SELECT id, discord_user, text, cost, renewable, created FROM reward WHERE id = $1;`, id)
	if err := row.Scan(&reward.ID, &reward.UserID, &reward.Text, &reward.Cost, &reward.Renewable, &reward.Created); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorvalues.ErrRewardNotFound
		}
		return nil, errors.New("getting reward by id error: " + err.Error())
	}
	return &reward, nil
}

func (rr *RewardsRepository) GetByUserID(ctx context.Context, uid int64) ([]*entity.Reward, error) {
	rows, err := rr.client.Query(ctx,
		`SELECT id, discord_user, text, cost, renewable, created FROM reward WHERE discord_user = $1 ORDER BY created;`, uid)
	if err != nil {
		return nil, errors.New("getting rewards by uid error: " + err.Error())
	}
	defer rows.Close()
	rewards := make([]*entity.Reward, 0)
	for rows.Next() {
		r := entity.Reward{}
		err = rows.Scan(&r.ID, &r.UserID, &r.Text, &r.Cost, &r.Renewable, &r.Created)
		if err != nil {
			return nil, errors.New("unmarshalling reward error: " + err.Error())
		}
		rewards = append(rewards, &r)
	}
	if rows.Err() != nil {
		return nil, errors.New("unexpected error after scanning: " + rows.Err().Error())
	}
	return rewards, nil
}

func (rr *RewardsRepository) Delete(ctx context.Context, id int) error {
	affected, err := rr.client.Execute(ctx, `DELETE FROM reward WHERE id = $1;`, id)
	if err != nil {
		return errors.New("deleting reward error: " + err.Error())
	}
	if affected == 0 {
		return errorvalues.ErrRewardNotFound
	}
	return nil
}
