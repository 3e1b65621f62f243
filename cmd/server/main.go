package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	webAdapter "palm-weighbridge/internal/adapters/web"
	"palm-weighbridge/internal/app"
	"palm-weighbridge/internal/config"
	"palm-weighbridge/internal/core"
	"palm-weighbridge/internal/db"
	"palm-weighbridge/internal/scale"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	tickets := core.NewTicketSequencer(pool)
	svc := app.NewAppService(
		core.NewCompanyService(pool),
		core.NewLedger(pool, tickets, cfg.Location),
		core.NewGradingEngine(pool, cfg.GradingTolerance),
		core.NewReportingService(pool, cfg.Location),
		scale.NewMonitor(),
		app.Options{Location: cfg.Location, MaxReadingAge: cfg.ScaleMaxReadingAge},
	)

	if company, err := svc.ActiveCompany(ctx); err != nil {
		log.Printf("Warning: no active company, weighings will be rejected until one is activated: %v", err)
	} else {
		log.Printf("active company %s (%s)", company.CompanyCode, company.Name)
	}
	if cfg.JWTSecret == "" {
		log.Println("Warning: JWT_SECRET is not set, all requests are anonymous")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           webAdapter.NewHandler(svc, cfg.AllowedOrigins, cfg.JWTSecret),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	log.Printf("server starting on :%s (timezone %s)", cfg.ServerPort, cfg.Location)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server: %v", err)
	}
	log.Println("server stopped")
}
