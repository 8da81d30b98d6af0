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

type IncentivesRepository struct {
	client *store.Client
}

func NewIncentivesRepo(client *store.Client) *IncentivesRepository {
	if client == nil {
		log.Fatal("provided nil store client to incentivesRepo")
	}
	return &IncentivesRepository{
		client: client,
	}
}

func (ir *IncentivesRepository) Create(ctx context.Context, inc *entity.Incentive) error {
	_, err := ir.client.Execute(ctx, `INSERT INTO incentive (goal, sender) VALUES ($1, $2);`,
		inc.GoalID,
		inc.Sender,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			// FK violation: the goal row is gone
			case "23503":
				return errorvalues.ErrGoalNotFound
			}
		}
		return errors.New("creating incentive db error: " + err.Error())
	}
	return nil
}

func (ir *IncentivesRepository) Get(ctx context.Context, goalID int, sender int64) (*entity.Incentive, error) {
	var inc entity.Incentive
	row := ir.client.QueryRow(ctx, `SELECT goal, sender FROM incentive WHERE goal = $1 AND sender = $2;`, goalID, sender)
	if err := row.Scan(&inc.GoalID, &inc.Sender); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorvalues.ErrIncentiveNotFound
		}
		return nil, errors.New("getting incentive error: " + err.Error())
	}
	return &inc, nil
}

func (ir *IncentivesRepository) GetByGoalID(ctx context.Context, goalID int) ([]entity.Incentive, error) {
	rows, err := ir.client.Query(ctx, `SELECT goal, sender FROM incentive WHERE goal = $1;`, goalID)
	if err != nil {
		return nil, errors.New("getting incentives by goal error: " + err.Error())
	}
	defer rows.Close()
	incentives := make([]entity.Incentive, 0)
	for rows.Next() {
		inc := entity.Incentive{}
		err = rows.Scan(&inc.GoalID, &inc.Sender)
		if err != nil {
			return nil, errors.New("unmarshalling incentive error: " + err.Error())
		}
		incentives = append(incentives, inc)
	}
	if rows.Err() != nil {
		return nil, errors.New("unexpected error after scanning: " + rows.Err().Error())
	}
	return incentives, nil
}
