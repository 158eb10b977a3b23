// Command authzd runs the authorization service: an HTTP demo adapter
// over the core authorize/policy-CRUD facade, backed by Postgres and
// Redis.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/hodei-project/hodei-authz/backend/internal/authzhttp"
	"github.com/hodei-project/hodei-authz/backend/internal/config"
	_ "github.com/hodei-project/hodei-authz/backend/internal/demo"
	"github.com/hodei-project/hodei-authz/backend/internal/metrics"
	"github.com/hodei-project/hodei-authz/backend/internal/service"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	godotenv.Load()

	logger := log.New(os.Stdout, "[authz] ", log.LstdFlags|log.Lshortfile)

	cfg := config.Load()
	logger.Println("configuration loaded")
	metrics.Init()

	ctx := context.Background()

	var facade *service.Facade
	var err error
	if cfg.Server.DevMode {
		logger.Printf("dev mode: seeding policies from %s, no Postgres/Redis required", cfg.Server.DevPolicyDir)
		facade, err = buildDevFacade(ctx, cfg.Server.DevPolicyDir, logger)
	} else {
		facade, err = service.NewBuilder().
			WithPostgres(cfg.Database.URL).
			WithRedis(cfg.Cache.URL).
			WithLogger(logger).
			Build(ctx)
	}
	if err != nil {
		logger.Fatalf("failed to build authorization service: %v", err)
	}

	if !cfg.Server.DevMode {
		go facade.SubscribeInvalidations(ctx)
	}

	h := &authzhttp.Handler{Facade: facade, Logger: logger}
	mux := h.Mux(buildDemoAuthorizeRequest)
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Println("=================================")
	logger.Println("hodei-authz starting")
	logger.Println("=================================")
	logger.Printf("server: http://%s", addr)
	logger.Println("=================================")

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
