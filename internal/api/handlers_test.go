package api_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/limbo/goalbot/internal/api"
	errorvalues "github.com/limbo/goalbot/internal/error_values"
	"github.com/limbo/goalbot/internal/service"
	"github.com/limbo/goalbot/internal/store"
	"github.com/limbo/goalbot/pkg/entity"
	jwtservice "github.com/limbo/goalbot/pkg/jwt_service"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	service.InitValidator()
	m.Run()
}

var (
	actorID   = int64(568095468980076608)
	jwtSecret = "test_secret"
	testGoal  = entity.Goal{
		ID:      3,
		UserID:  actorID,
		Text:    "run 5k",
		Reward:  10,
		Repeat:  entity.RepeatDaily,
		Created: time.Now(),
	}
	testReward = entity.Reward{
		ID:      4,
		UserID:  actorID,
		Text:    "movie night",
		Cost:    30,
		Created: time.Now(),
	}
)

type goalsServiceMock struct {
	err       error
	listedAll bool
}

func (gsm *goalsServiceMock) Create(ctx context.Context, req *service.CreateGoalRequest) (*entity.Goal, error) {
	if gsm.err != nil {
		return nil, gsm.err
	}
	goal := testGoal
	return &goal, nil
}

func (gsm *goalsServiceMock) Get(ctx context.Context, id int) (*entity.Goal, error) {
	if gsm.err != nil {
		return nil, gsm.err
	}
	goal := testGoal
	return &goal, nil
}

func (gsm *goalsServiceMock) List(ctx context.Context, uid int64, includeCompleted bool) ([]*entity.Goal, error) {
	if gsm.err != nil {
		return nil, gsm.err
	}
	gsm.listedAll = includeCompleted
	goal := testGoal
	return []*entity.Goal{&goal}, nil
}

func (gsm *goalsServiceMock) Edit(ctx context.Context, id int, uid int64, patch *service.GoalPatch) (*entity.Goal, error) {
	if gsm.err != nil {
		return nil, gsm.err
	}
	goal := testGoal
	if patch.Text != nil {
		goal.Text = *patch.Text
	}
	return &goal, nil
}

func (gsm *goalsServiceMock) Complete(ctx context.Context, id int, uid int64) (*entity.Goal, error) {
	if gsm.err != nil {
		return nil, gsm.err
	}
	goal := testGoal
	goal.Completed = true
	return &goal, nil
}

func (gsm *goalsServiceMock) Boost(ctx context.Context, goalID int, sender int64) (*entity.Goal, error) {
	if gsm.err != nil {
		return nil, gsm.err
	}
	goal := testGoal
	goal.Incentives = []entity.Incentive{{GoalID: goalID, Sender: sender}}
	return &goal, nil
}

type rewardsServiceMock struct {
	err error
}

func (rsm *rewardsServiceMock) Create(ctx context.Context, req *service.CreateRewardRequest) (*entity.Reward, error) {
	if rsm.err != nil {
		return nil, rsm.err
	}
	reward := testReward
	return &reward, nil
}

func (rsm *rewardsServiceMock) Get(ctx context.Context, id int) (*entity.Reward, error) {
	if rsm.err != nil {
		return nil, rsm.err
	}
	reward := testReward
	return &reward, nil
}

func (rsm *rewardsServiceMock) List(ctx context.Context, uid int64) ([]*entity.Reward, error) {
	if rsm.err != nil {
		return nil, rsm.err
	}
	reward := testReward
	return []*entity.Reward{&reward}, nil
}

func (rsm *rewardsServiceMock) Redeem(ctx context.Context, id int, buyer int64) (*entity.Reward, error) {
	if rsm.err != nil {
		return nil, rsm.err
	}
	reward := testReward
	return &reward, nil
}

type ledgerServiceMock struct {
	err error
}

func (lsm *ledgerServiceMock) Fetch(ctx context.Context, id int64) (*entity.User, error) {
	if lsm.err != nil {
		return nil, lsm.err
	}
	return &entity.User{ID: id, Points: 12.5, SharePoints: 2}, nil
}

func (lsm *ledgerServiceMock) DebitPoints(ctx context.Context, id int64, amount float64) (bool, error) {
	return lsm.err == nil, lsm.err
}

func (lsm *ledgerServiceMock) DebitSharePoints(ctx context.Context, id int64, amount int) (bool, error) {
	return lsm.err == nil, lsm.err
}

func (lsm *ledgerServiceMock) Credit(ctx context.Context, id int64, points float64, sharePoints int) error {
	return lsm.err
}

func (lsm *ledgerServiceMock) CreditWithin(ctx context.Context, id int64, points float64, sharePoints int, extra func(tx store.Executor) error) error {
	return lsm.err
}

func newTestServer(t *testing.T) (*goalsServiceMock, *rewardsServiceMock, *ledgerServiceMock, http.Handler, string) {
	goalsMock := &goalsServiceMock{}
	rewardsMock := &rewardsServiceMock{}
	ledgerMock := &ledgerServiceMock{}
	jwtService := jwtservice.New(jwtSecret)
	serv := api.New(&api.ServicesList{
		GoalsService:   goalsMock,
		RewardsService: rewardsMock,
		LedgerService:  ledgerMock,
		JwtService:     jwtService,
	})
	token, err := jwtService.GenerateToken(actorID)
	if err != nil {
		t.Fatal(err)
	}
	return goalsMock, rewardsMock, ledgerMock, serv.Handler(), token
}

func doRequest(handler http.Handler, method, target, token string, body []byte) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader([]byte{})
	} else {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	t.Run("store reachable", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		if err != nil {
			t.Fatal(err)
		}
		serv := api.New(&api.ServicesList{Store: store.NewWithPool(mock)})
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1;`)).
			WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))
		rr := doRequest(serv.Handler(), http.MethodGet, "/healthz", "", nil)
		assert.Equal(t, http.StatusOK, rr.Result().StatusCode)
	})
	t.Run("store unreachable", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		if err != nil {
			t.Fatal(err)
		}
		serv := api.New(&api.ServicesList{Store: store.NewWithPool(mock)})
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1;`)).
			WillReturnError(errors.New("db error"))
		rr := doRequest(serv.Handler(), http.MethodGet, "/healthz", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rr.Result().StatusCode)
	})
}

func TestAuthGate(t *testing.T) {
	_, _, _, handler, token := newTestServer(t)
	t.Run("no token", func(t *testing.T) {
		rr := doRequest(handler, http.MethodGet, "/api/v1/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Result().StatusCode)
	})
	t.Run("garbage token", func(t *testing.T) {
		rr := doRequest(handler, http.MethodGet, "/api/v1/me", "not.a.token", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Result().StatusCode)
	})
	t.Run("wrong secret", func(t *testing.T) {
		foreign, err := jwtservice.New("other_secret").GenerateToken(actorID)
		if err != nil {
			t.Fatal(err)
		}
		rr := doRequest(handler, http.MethodGet, "/api/v1/me", foreign, nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Result().StatusCode)
	})
	t.Run("valid token reaches the handler", func(t *testing.T) {
		rr := doRequest(handler, http.MethodGet, "/api/v1/me", token, nil)
		assert.Equal(t, http.StatusOK, rr.Result().StatusCode)
		var user entity.User
		err := sonic.ConfigDefault.NewDecoder(rr.Result().Body).Decode(&user)
		assert.NoError(t, err)
		assert.Equal(t, actorID, user.ID)
		assert.Equal(t, 12.5, user.Points)
	})
}

func TestCreateGoalHandler(t *testing.T) {
	body, err := sonic.ConfigDefault.Marshal(api.CreateGoalRequest{
		Text:   testGoal.Text,
		Reward: testGoal.Reward,
		Repeat: int16(testGoal.Repeat),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Run("created", func(t *testing.T) {
		_, _, _, handler, token := newTestServer(t)
		rr := doRequest(handler, http.MethodPost, "/api/v1/goals/", token, body)
		assert.Equal(t, http.StatusCreated, rr.Result().StatusCode)
	})
	t.Run("invalid body", func(t *testing.T) {
		_, _, _, handler, token := newTestServer(t)
		rr := doRequest(handler, http.MethodPost, "/api/v1/goals/", token, []byte("{"))
		assert.Equal(t, http.StatusBadRequest, rr.Result().StatusCode)
	})
	t.Run("validation error", func(t *testing.T) {
		goalsMock, _, _, handler, token := newTestServer(t)
		goalsMock.err = errorvalues.ErrValidation
		rr := doRequest(handler, http.MethodPost, "/api/v1/goals/", token, body)
		assert.Equal(t, http.StatusBadRequest, rr.Result().StatusCode)
	})
	t.Run("service error", func(t *testing.T) {
		goalsMock, _, _, handler, token := newTestServer(t)
		goalsMock.err = errors.New("mocked error")
		rr := doRequest(handler, http.MethodPost, "/api/v1/goals/", token, body)
		assert.Equal(t, http.StatusInternalServerError, rr.Result().StatusCode)
	})
}

func TestListGoalsHandler(t *testing.T) {
	t.Run("pending by default", func(t *testing.T) {
		goalsMock, _, _, handler, token := newTestServer(t)
		rr := doRequest(handler, http.MethodGet, "/api/v1/goals/", token, nil)
		assert.Equal(t, http.StatusOK, rr.Result().StatusCode)
		assert.False(t, goalsMock.listedAll)
		var resp api.ListGoalsResponse
		err := sonic.ConfigDefault.NewDecoder(rr.Result().Body).Decode(&resp)
		assert.NoError(t, err)
		assert.Equal(t, 1, len(resp.Goals))
	})
	t.Run("completed included on request", func(t *testing.T) {
		goalsMock, _, _, handler, token := newTestServer(t)
		rr := doRequest(handler, http.MethodGet, "/api/v1/goals/?completed=true", token, nil)
		assert.Equal(t, http.StatusOK, rr.Result().StatusCode)
		assert.True(t, goalsMock.listedAll)
	})
	t.Run("bad completed param", func(t *testing.T) {
		_, _, _, handler, token := newTestServer(t)
		rr := doRequest(handler, http.MethodGet, "/api/v1/goals/?completed=banana", token, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Result().StatusCode)
	})
}

func TestGetGoalHandler(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		_, _, _, handler, token := newTestServer(t)
		rr := doRequest(handler, http.MethodGet, "/api/v1/goals/3", token, nil)
		assert.Equal(t, http.StatusOK, rr.Result().StatusCode)
	})
	t.Run("bad id", func(t *testing.T) {
		_, _, _, handler, token := newTestServer(t)
		rr := doRequest(handler, http.MethodGet, "/api/v1/goals/abc", token, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Result().StatusCode)
	})
	t.Run("not found", func(t *testing.T) {
		goalsMock, _, _, handler, token := newTestServer(t)
		goalsMock.err = errorvalues.ErrGoalNotFound
		rr := doRequest(handler, http.MethodGet, "/api/v1/goals/3", token, nil)
		assert.Equal(t, http.StatusNotFound, rr.Result().StatusCode)
	})
}

func TestEditGoalHandler(t *testing.T) {
	newText := "run 10k"
	body, err := sonic.ConfigDefault.Marshal(api.EditGoalRequest{Text: &newText})
	if err != nil {
		t.Fatal(err)
	}
	t.Run("edited", func(t *testing.T) {
		_, _, _, handler, token := newTestServer(t)
		rr := doRequest(handler, http.MethodPatch, "/api/v1/goals/3", token, body)
		assert.Equal(t, http.StatusOK, rr.Result().StatusCode)
		var goal entity.Goal
		err := sonic.ConfigDefault.NewDecoder(rr.Result().Body).Decode(&goal)
		assert.NoError(t, err)
		assert.Equal(t, newText, goal.Text)
	})
	t.Run("not the owner", func(t *testing.T) {
		goalsMock, _, _, handler, token := newTestServer(t)
		goalsMock.err = errorvalues.ErrNotOwner
		rr := doRequest(handler, http.MethodPatch, "/api/v1/goals/3", token, body)
		assert.Equal(t, http.StatusForbidden, rr.Result().StatusCode)
	})
	t.Run("invalid body", func(t *testing.T) {
		_, _, _, handler, token := newTestServer(t)
		rr := doRequest(handler, http.MethodPatch, "/api/v1/goals/3", token, []byte("{"))
		assert.Equal(t, http.StatusBadRequest, rr.Result().StatusCode)
	})
}

func TestCompleteGoalHandler(t *testing.T) {
	t.Run("completed", func(t *testing.T) {
		_, _, _, handler, token := newTestServer(t)
		rr := doRequest(handler, http.MethodPost, "/api/v1/goals/3/complete", token, nil)
		assert.Equal(t, http.StatusOK, rr.Result().StatusCode)
		var goal entity.Goal
		err := sonic.ConfigDefault.NewDecoder(rr.Result().Body).Decode(&goal)
		assert.NoError(t, err)
		assert.True(t, goal.Completed)
	})
	t.Run("already completed", func(t *testing.T) {
		goalsMock, _, _, handler, token := newTestServer(t)
		goalsMock.err = errorvalues.ErrGoalCompleted
		rr := doRequest(handler, http.MethodPost, "/api/v1/goals/3/complete", token, nil)
		assert.Equal(t, http.StatusConflict, rr.Result().StatusCode)
	})
	t.Run("not the owner", func(t *testing.T) {
		goalsMock, _, _, handler, token := newTestServer(t)
		goalsMock.err = errorvalues.ErrNotOwner
		rr := doRequest(handler, http.MethodPost, "/api/v1/goals/3/complete", token, nil)
		assert.Equal(t, http.StatusForbidden, rr.Result().StatusCode)
	})
}

func TestBoostGoalHandler(t *testing.T) {
	t.Run("boosted", func(t *testing.T) {
		_, _, _, handler, token := newTestServer(t)
		rr := doRequest(handler, http.MethodPost, "/api/v1/goals/3/boost", token, nil)
		assert.Equal(t, http.StatusOK, rr.Result().StatusCode)
	})
	t.Run("own goal", func(t *testing.T) {
		goalsMock, _, _, handler, token := newTestServer(t)
		goalsMock.err = errorvalues.ErrSelfBoost
		rr := doRequest(handler, http.MethodPost, "/api/v1/goals/3/boost", token, nil)
		assert.Equal(t, http.StatusForbidden, rr.Result().StatusCode)
	})
	t.Run("already boosted", func(t *testing.T) {
		goalsMock, _, _, handler, token := newTestServer(t)
		goalsMock.err = errorvalues.ErrAlreadyBoosted
		rr := doRequest(handler, http.MethodPost, "/api/v1/goals/3/boost", token, nil)
		assert.Equal(t, http.StatusConflict, rr.Result().StatusCode)
	})
	t.Run("no share points", func(t *testing.T) {
		goalsMock, _, _, handler, token := newTestServer(t)
		goalsMock.err = errorvalues.ErrInsufficientSharePoints
		rr := doRequest(handler, http.MethodPost, "/api/v1/goals/3/boost", token, nil)
		assert.Equal(t, http.StatusConflict, rr.Result().StatusCode)
	})
}

func TestCreateRewardHandler(t *testing.T) {
	body, err := sonic.ConfigDefault.Marshal(api.CreateRewardRequest{
		Text: testReward.Text,
		Cost: testReward.Cost,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Run("created", func(t *testing.T) {
		_, _, _, handler, token := newTestServer(t)
		rr := doRequest(handler, http.MethodPost, "/api/v1/rewards/", token, body)
		assert.Equal(t, http.StatusCreated, rr.Result().StatusCode)
	})
	t.Run("invalid body", func(t *testing.T) {
		_, _, _, handler, token := newTestServer(t)
		rr := doRequest(handler, http.MethodPost, "/api/v1/rewards/", token, []byte("{"))
		assert.Equal(t, http.StatusBadRequest, rr.Result().StatusCode)
	})
	t.Run("validation error", func(t *testing.T) {
		_, rewardsMock, _, handler, token := newTestServer(t)
		rewardsMock.err = errorvalues.ErrValidation
		rr := doRequest(handler, http.MethodPost, "/api/v1/rewards/", token, body)
		assert.Equal(t, http.StatusBadRequest, rr.Result().StatusCode)
	})
}

func TestListRewardsHandler(t *testing.T) {
	t.Run("listed", func(t *testing.T) {
		_, _, _, handler, token := newTestServer(t)
		rr := doRequest(handler, http.MethodGet, "/api/v1/rewards/", token, nil)
		assert.Equal(t, http.StatusOK, rr.Result().StatusCode)
		var resp api.ListRewardsResponse
		err := sonic.ConfigDefault.NewDecoder(rr.Result().Body).Decode(&resp)
		assert.NoError(t, err)
		assert.Equal(t, 1, len(resp.Rewards))
	})
	t.Run("service error", func(t *testing.T) {
		_, rewardsMock, _, handler, token := newTestServer(t)
		rewardsMock.err = errors.New("mocked error")
		rr := doRequest(handler, http.MethodGet, "/api/v1/rewards/", token, nil)
		assert.Equal(t, http.StatusInternalServerError, rr.Result().StatusCode)
	})
}

func TestRedeemRewardHandler(t *testing.T) {
	t.Run("redeemed", func(t *testing.T) {
		_, _, _, handler, token := newTestServer(t)
		rr := doRequest(handler, http.MethodPost, "/api/v1/rewards/4/redeem", token, nil)
		assert.Equal(t, http.StatusOK, rr.Result().StatusCode)
	})
	t.Run("already claimed", func(t *testing.T) {
		_, rewardsMock, _, handler, token := newTestServer(t)
		rewardsMock.err = errorvalues.ErrRewardClaimed
		rr := doRequest(handler, http.MethodPost, "/api/v1/rewards/4/redeem", token, nil)
		assert.Equal(t, http.StatusConflict, rr.Result().StatusCode)
	})
	t.Run("not enough points", func(t *testing.T) {
		_, rewardsMock, _, handler, token := newTestServer(t)
		rewardsMock.err = errorvalues.ErrInsufficientPoints
		rr := doRequest(handler, http.MethodPost, "/api/v1/rewards/4/redeem", token, nil)
		assert.Equal(t, http.StatusConflict, rr.Result().StatusCode)
	})
	t.Run("bad id", func(t *testing.T) {
		_, _, _, handler, token := newTestServer(t)
		rr := doRequest(handler, http.MethodPost, "/api/v1/rewards/abc/redeem", token, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Result().StatusCode)
	})
}
