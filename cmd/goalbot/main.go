package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/limbo/goalbot/internal/api"
	"github.com/limbo/goalbot/internal/repository"
	"github.com/limbo/goalbot/internal/scheduler"
	"github.com/limbo/goalbot/internal/service"
	"github.com/limbo/goalbot/internal/store"
	"github.com/limbo/goalbot/pkg/cleanup"
	"github.com/limbo/goalbot/pkg/config"
	jwtservice "github.com/limbo/goalbot/pkg/jwt_service"
)

func init() {
	service.InitValidator()
}

func main() {
	cfg := config.New()
	client := store.New(&store.PGCfg{
		Address:  cfg.GetString("POSTGRES_DB_ADDRESS"),
		Username: cfg.GetString("POSTGRES_USER"),
		Password: cfg.GetString("POSTGRES_PASSWORD"),
		DB:       cfg.GetString("POSTGRES_DB"),
		MinConns: cfg.GetInt32("POOL_MIN_CONNS", 3),
		MaxConns: cfg.GetInt32("POOL_MAX_CONNS", 15),
	})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := client.Ping(ctx); err != nil {
		log.Fatal("pinging store error: " + err.Error())
	}

	usersRepo := repository.NewUsersRepo(client)
	goalsRepo := repository.NewGoalsRepo(client)
	rewardsRepo := repository.NewRewardsRepo(client)
	incentivesRepo := repository.NewIncentivesRepo(client)

	ledgerService := service.NewLedgerService(client, usersRepo)
	goalsService := service.NewGoalsService(goalsRepo, incentivesRepo, ledgerService)
	rewardsService := service.NewRewardsService(rewardsRepo, ledgerService)

	go scheduler.New(goalsRepo, nil).Run(ctx)

	serv := api.New(&api.ServicesList{
		GoalsService:   goalsService,
		RewardsService: rewardsService,
		LedgerService:  ledgerService,
		JwtService:     jwtservice.New(cfg.GetString("GATEWAY_JWT_SECRET")),
		Store:          client,
	})
	err := serv.Run(cfg.GetString("API_ADDRESS"))
	if err != nil {
		log.Println("Server error: " + err.Error())
	}
	cleanup.CleanUp()
}
