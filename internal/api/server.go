package api

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/limbo/goalbot/internal/service"
	"github.com/limbo/goalbot/internal/store"
	jwtservice "github.com/limbo/goalbot/pkg/jwt_service"
)

type Server struct {
	mx             *chi.Mux
	goalsService   service.GoalsServiceI
	rewardsService service.RewardsServiceI
	ledgerService  service.LedgerServiceI
	jwtService     *jwtservice.JWTService
	store          *store.Client
	routesOnce     sync.Once
}

type ServicesList struct {
	GoalsService   service.GoalsServiceI
	RewardsService service.RewardsServiceI
	LedgerService  service.LedgerServiceI
	JwtService     *jwtservice.JWTService
	Store          *store.Client
}

func New(servicesOptions *ServicesList) *Server {
	return &Server{
		mx:             chi.NewMux(),
		goalsService:   servicesOptions.GoalsService,
		rewardsService: servicesOptions.RewardsService,
		ledgerService:  servicesOptions.LedgerService,
		jwtService:     servicesOptions.JwtService,
		store:          servicesOptions.Store,
	}
}

func (s *Server) Run(addr string) error {
	s.routesOnce.Do(s.routes)
	return http.ListenAndServe(addr, s.mx)
}

// Handler exposes the configured mux, used by the handler tests.
func (s *Server) Handler() http.Handler {
	s.routesOnce.Do(s.routes)
	return s.mx
}

func (s *Server) routes() {
	s.mx.Use(s.RequestIDMiddleware, s.SettingUpLoggerMiddleware)
	s.mx.Get("/healthz", s.Health)
	s.mx.Route("/api/v1", func(r chi.Router) {
		r.Use(s.AuthMiddleware, s.LoggerExtensionMiddleware)
		r.Get("/me", s.GetBalance)
		r.Route("/goals", func(r chi.Router) {
			r.Post("/", s.CreateGoal)
			r.Get("/", s.ListGoals)
			r.Get("/{id}", s.GetGoal)
			r.Patch("/{id}", s.EditGoal)
			r.Post("/{id}/complete", s.CompleteGoal)
			r.Post("/{id}/boost", s.BoostGoal)
		})
		r.Route("/rewards", func(r chi.Router) {
			r.Post("/", s.CreateReward)
			r.Get("/", s.ListRewards)
			r.Post("/{id}/redeem", s.RedeemReward)
		})
	})
}
