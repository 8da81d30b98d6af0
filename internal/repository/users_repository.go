package repository

import (
	"context"
	"errors"
	"log"

	"github.com/jackc/pgx/v5"
	errorvalues "github.com/limbo/goalbot/internal/error_values"
	"github.com/limbo/goalbot/internal/store"
	"github.com/limbo/goalbot/pkg/entity"
)

type UsersRepository struct {
	client *store.Client
}

func NewUsersRepo(client *store.Client) *UsersRepository {
	if client == nil {
		log.Fatal("provided nil store client to usersRepo")
	}
	return &UsersRepository{
		client: client,
	}
}

func (ur *UsersRepository) Create(ctx context.Context, id int64) error {
	_, err := ur.client.Execute(ctx, `INSERT INTO discord_user (id, points, share_points) VALUES ($1, 0, 0);`, id)
	if err != nil {
		return errors.New("creating ledger row db error: " + err.Error())
	}
	return nil
}

func (ur *UsersRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	var user entity.User
	row := ur.client.QueryRow(ctx, `SELECT id, points, share_points FROM discord_user WHERE id = $1;`, id)
	if err := row.Scan(&user.ID, &user.Points, &user.SharePoints); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorvalues.ErrUserNotFound
		}
		return nil, errors.New("getting ledger row error: " + err.Error())
	}
	return &user, nil
}

func (ur *UsersRepository) UpdateBalances(ctx context.Context, id int64, points float64, sharePoints int) error {
	return ur.UpdateBalancesIn(ctx, ur.client, id, points, sharePoints)
}

func (ur *UsersRepository) UpdateBalancesIn(ctx context.Context, ex store.Executor, id int64, points float64, sharePoints int) error {
	ct, err := ex.Exec(ctx, `UPDATE discord_user SET points = $1, share_points = $2 WHERE id = $3;`,
		points,
		sharePoints,
		id,
	)
	if err != nil {
		return errors.New("updating balances error: " + err.Error())
	}
	if ct.RowsAffected() == 0 {
		return errorvalues.ErrUserNotFound
	}
	return nil
}
