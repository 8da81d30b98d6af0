package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	errorvalues "github.com/limbo/goalbot/internal/error_values"
	"github.com/limbo/goalbot/internal/service"
	"github.com/limbo/goalbot/pkg/entity"
	"github.com/limbo/goalbot/pkg/httputil"
)

type CreateGoalRequest struct {
	Text   string `json:"text"`
	Reward int    `json:"reward"`
	Repeat int16  `json:"repeat"`
}

type EditGoalRequest struct {
	Text      *string `json:"text"`
	Reward    *int    `json:"reward"`
	Repeat    *int16  `json:"repeat"`
	Completed *bool   `json:"completed"`
}

type CreateRewardRequest struct {
	Text      string `json:"text"`
	Cost      int    `json:"cost"`
	Renewable bool   `json:"renewable"`
}

type ListGoalsResponse struct {
	UserID string         `json:"uid"`
	Goals  []*entity.Goal `json:"goals"`
}

type ListRewardsResponse struct {
	UserID  string           `json:"uid"`
	Rewards []*entity.Reward `json:"rewards"`
}

// writeServiceError maps rejected-operation outcomes to user-presentable
// statuses; anything unrecognized is an internal failure.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, action string, err error) {
	switch {
	case errors.Is(err, errorvalues.ErrValidation):
		logger.Error(action+" error: invalid input", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid input", err)
	case errors.Is(err, errorvalues.ErrGoalNotFound),
		errors.Is(err, errorvalues.ErrRewardNotFound),
		errors.Is(err, errorvalues.ErrUserNotFound):
		logger.Error(action + " error: not found")
		httputil.WriteErrorResponse(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, errorvalues.ErrNotOwner),
		errors.Is(err, errorvalues.ErrSelfBoost):
		logger.Error(action + " error: forbidden")
		httputil.WriteErrorResponse(w, http.StatusForbidden, err.Error(), nil)
	case errors.Is(err, errorvalues.ErrGoalCompleted),
		errors.Is(err, errorvalues.ErrAlreadyBoosted),
		errors.Is(err, errorvalues.ErrRewardClaimed),
		errors.Is(err, errorvalues.ErrInsufficientPoints),
		errors.Is(err, errorvalues.ErrInsufficientSharePoints):
		logger.Error(action + " error: rejected operation")
		httputil.WriteErrorResponse(w, http.StatusConflict, err.Error(), nil)
	default:
		logger.Error(action+" error: service error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error", nil)
	}
}

func idParam(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	var one int
	err := s.store.FetchScalarTimeout(r.Context(), 2*time.Second, &one, `SELECT 1;`)
	if err != nil {
		httputil.WriteErrorResponse(w, http.StatusServiceUnavailable, "store unreachable", nil)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) GetBalance(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	uid, err := GetUIDFromContext(r)
	if err != nil {
		logger.Error("get balance error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	user, err := s.ledgerService.Fetch(ctx, uid)
	if err != nil {
		writeServiceError(w, logger, "get balance", err)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, user)
}

func (s *Server) CreateGoal(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	uid, err := GetUIDFromContext(r)
	if err != nil {
		logger.Error("create goal error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	var req CreateGoalRequest
	defer r.Body.Close()
	err = sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		logger.Error("create goal error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	goal, err := s.goalsService.Create(ctx, &service.CreateGoalRequest{
		UserID: uid,
		Text:   req.Text,
		Reward: req.Reward,
		Repeat: entity.RepeatType(req.Repeat),
	})
	if err != nil {
		writeServiceError(w, logger, "create goal", err)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusCreated, goal)
	logger.Info("goal created", slog.Int("goal_id", goal.ID))
}

func (s *Server) ListGoals(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	uid, err := GetUIDFromContext(r)
	if err != nil {
		logger.Error("list goals error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	includeCompleted := false
	if raw := r.URL.Query().Get("completed"); raw != "" {
		includeCompleted, err = strconv.ParseBool(raw)
		if err != nil {
			logger.Error("list goals error: bad completed param")
			httputil.WriteErrorResponse(w, http.StatusBadRequest, "completed must be a boolean", nil)
			return
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	goals, err := s.goalsService.List(ctx, uid, includeCompleted)
	if err != nil {
		writeServiceError(w, logger, "list goals", err)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, ListGoalsResponse{
		UserID: strconv.FormatInt(uid, 10),
		Goals:  goals,
	})
}

func (s *Server) GetGoal(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	id, err := idParam(r)
	if err != nil {
		logger.Error("get goal error: bad id")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "goal id must be an integer", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	goal, err := s.goalsService.Get(ctx, id)
	if err != nil {
		writeServiceError(w, logger, "get goal", err)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, goal)
}

func (s *Server) EditGoal(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	uid, err := GetUIDFromContext(r)
	if err != nil {
		logger.Error("edit goal error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	id, err := idParam(r)
	if err != nil {
		logger.Error("edit goal error: bad id")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "goal id must be an integer", nil)
		return
	}
	var req EditGoalRequest
	defer r.Body.Close()
	err = sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		logger.Error("edit goal error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	patch := &service.GoalPatch{
		Text:      req.Text,
		Reward:    req.Reward,
		Completed: req.Completed,
	}
	if req.Repeat != nil {
		repeat := entity.RepeatType(*req.Repeat)
		patch.Repeat = &repeat
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	goal, err := s.goalsService.Edit(ctx, id, uid, patch)
	if err != nil {
		writeServiceError(w, logger, "edit goal", err)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, goal)
}

func (s *Server) CompleteGoal(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	uid, err := GetUIDFromContext(r)
	if err != nil {
		logger.Error("complete goal error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	id, err := idParam(r)
	if err != nil {
		logger.Error("complete goal error: bad id")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "goal id must be an integer", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	goal, err := s.goalsService.Complete(ctx, id, uid)
	if err != nil {
		writeServiceError(w, logger, "complete goal", err)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, goal)
	logger.Info("goal completed", slog.Int("goal_id", goal.ID))
}

func (s *Server) BoostGoal(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	uid, err := GetUIDFromContext(r)
	if err != nil {
		logger.Error("boost goal error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	id, err := idParam(r)
	if err != nil {
		logger.Error("boost goal error: bad id")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "goal id must be an integer", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	goal, err := s.goalsService.Boost(ctx, id, uid)
	if err != nil {
		writeServiceError(w, logger, "boost goal", err)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, goal)
	logger.Info("goal boosted", slog.Int("goal_id", goal.ID))
}

func (s *Server) CreateReward(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	uid, err := GetUIDFromContext(r)
	if err != nil {
		logger.Error("create reward error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	var req CreateRewardRequest
	defer r.Body.Close()
	err = sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		logger.Error("create reward error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	reward, err := s.rewardsService.Create(ctx, &service.CreateRewardRequest{
		UserID:    uid,
		Text:      req.Text,
		Cost:      req.Cost,
		Renewable: req.Renewable,
	})
	if err != nil {
		writeServiceError(w, logger, "create reward", err)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusCreated, reward)
	logger.Info("reward created", slog.Int("reward_id", reward.ID))
}

func (s *Server) ListRewards(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	uid, err := GetUIDFromContext(r)
	if err != nil {
		logger.Error("list rewards error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	rewards, err := s.rewardsService.List(ctx, uid)
	if err != nil {
		writeServiceError(w, logger, "list rewards", err)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, ListRewardsResponse{
		UserID:  strconv.FormatInt(uid, 10),
		Rewards: rewards,
	})
}

func (s *Server) RedeemReward(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	uid, err := GetUIDFromContext(r)
	if err != nil {
		logger.Error("redeem reward error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	id, err := idParam(r)
	if err != nil {
		logger.Error("redeem reward error: bad id")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "reward id must be an integer", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	reward, err := s.rewardsService.Redeem(ctx, id, uid)
	if err != nil {
		writeServiceError(w, logger, "redeem reward", err)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, reward)
	logger.Info("reward redeemed", slog.Int("reward_id", reward.ID))
}
