package repository

import (
	"context"
	"errors"
	"log"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	errorvalues "github.com/limbo/goalbot/internal/error_values"
	"github.com/limbo/goalbot/internal/store"
	"github.com/limbo/goalbot/pkg/entity"
)

type GoalsRepository struct {
	client *store.Client
}

func NewGoalsRepo(client *store.Client) *GoalsRepository {
	if client == nil {
		log.Fatal("provided nil store client to goalsRepo")
	}
	return &GoalsRepository{
		client: client,
	}
}

func (gr *GoalsRepository) Create(ctx context.Context, goal *entity.Goal) error {
	row := gr.client.QueryRow(ctx,
		`INSERT INTO goal (discord_user, text, reward, completed, repeat, reset_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created;`,
		goal.UserID,
		goal.Text,
		goal.Reward,
		goal.Completed,
		goal.Repeat,
		goal.ResetAt,
	)
	if err := row.Scan(&goal.ID, &goal.Created); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			// FK violation: the owning user has no ledger row yet
			case "23503":
				return errorvalues.ErrOwnerMissing
			}
		}
		return errors.New("creating goal db error: " + err.Error())
	}
	return nil
}

func (gr *GoalsRepository) GetByID(ctx context.Context, id int) (*entity.Goal, error) {
	var goal entity.Goal
	row := gr.client.QueryRow(ctx,
		`SELECT id, discord_user, text, reward, completed, repeat, reset_at, created FROM goal WHERE id = $1;`, id)
	if err := row.Scan(&goal.ID, &goal.UserID, &goal.Text, &goal.Reward, &goal.Completed, &goal.Repeat, &goal.ResetAt, &goal.Created); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorvalues.ErrGoalNotFound
		}
		return nil, errors.New("getting goal by id error: " + err.Error())
	}
	return &goal, nil
}

func (gr *GoalsRepository) GetByUserID(ctx context.Context, uid int64, includeCompleted bool) ([]*entity.Goal, error) {
	builder := sq.Select("id", "discord_user", "text", "reward", "completed", "repeat", "reset_at", "created").
		From("goal").
		Where(sq.Eq{"discord_user": uid}).
		OrderBy("created").
		PlaceholderFormat(sq.Dollar)
	if !includeCompleted {
		builder = builder.Where(sq.Eq{"completed": false})
	}
	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.New("building goals query error: " + err.Error())
	}

	rows, err := gr.client.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.New("getting goals by uid error: " + err.Error())
	}
	defer rows.Close()
	goals := make([]*entity.Goal, 0)
	for rows.Next() {
		g := entity.Goal{}
		err = rows.Scan(&g.ID, &g.UserID, &g.Text, &g.Reward, &g.Completed, &g.Repeat, &g.ResetAt, &g.Created)
		if err != nil {
			return nil, errors.New("unmarshalling goal error: " + err.Error())
		}
		goals = append(goals, &g)
	}
	if rows.Err() != nil {
		return nil, errors.New("unexpected error after scanning: " + rows.Err().Error())
	}
	return goals, nil
}

func (gr *GoalsRepository) Update(ctx context.Context, goal *entity.Goal) error {
	return gr.UpdateIn(ctx, gr.client, goal)
}

func (gr *GoalsRepository) UpdateIn(ctx context.Context, ex store.Executor, goal *entity.Goal) error {
	ct, err := ex.Exec(ctx,
		`UPDATE goal SET completed = $2, text = $3, reward = $4, repeat = $5, reset_at = $6 WHERE id = $1;`,
		goal.ID,
		goal.Completed,
		goal.Text,
		goal.Reward,
		goal.Repeat,
		goal.ResetAt,
	)
	if err != nil {
		return errors.New("updating goal error: " + err.Error())
	}
	if ct.RowsAffected() == 0 {
		return errorvalues.ErrGoalNotFound
	}
	return nil
}

// ResetCompleted is the scheduler's bulk cutover. It goes straight to the
// store, so cached goal instances stay stale until their next fetch.
func (gr *GoalsRepository) ResetCompleted(ctx context.Context, repeat entity.RepeatType) (int64, error) {
	sql, args, err := sq.Update("goal").
		Set("completed", false).
		Where(sq.Eq{"completed": true}).
		Where(sq.Eq{"repeat": repeat}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return 0, errors.New("building reset query error: " + err.Error())
	}
	affected, err := gr.client.Execute(ctx, sql, args...)
	if err != nil {
		return 0, errors.New("resetting goals error: " + err.Error())
	}
	return affected, nil
}
