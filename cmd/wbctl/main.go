// Command wbctl runs one weighbridge operation against the database and
// prints the result. See cli.Usage for the command list. Without arguments it
// starts the interactive operator console.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"palm-weighbridge/internal/adapters/cli"
	"palm-weighbridge/internal/adapters/repl"
	webAdapter "palm-weighbridge/internal/adapters/web"
	"palm-weighbridge/internal/app"
	"palm-weighbridge/internal/config"
	"palm-weighbridge/internal/core"
	"palm-weighbridge/internal/db"
	"palm-weighbridge/internal/scale"
)

func main() {
	log.SetFlags(0)

	// token does not touch the database: wbctl token <operator> [role]
	if len(os.Args) > 1 && os.Args[1] == "token" {
		secret, err := config.LoadJWTSecret()
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		token, err := mintToken(secret, os.Args[2:])
		if err != nil {
			log.Fatalf("token: %v", err)
		}
		fmt.Println(token)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}

	tickets := core.NewTicketSequencer(pool)
	svc := app.NewAppService(
		core.NewCompanyService(pool),
		core.NewLedger(pool, tickets, cfg.Location),
		core.NewGradingEngine(pool, cfg.GradingTolerance),
		core.NewReportingService(pool, cfg.Location),
		scale.NewMonitor(),
		app.Options{Location: cfg.Location, MaxReadingAge: cfg.ScaleMaxReadingAge},
	)

	if len(os.Args) < 2 {
		err = repl.Run(ctx, svc, bufio.NewReader(os.Stdin), os.Stdout, os.Getenv("WB_OPERATOR"))
	} else {
		err = cli.Run(ctx, svc, os.Args[1:], os.Stdout)
	}
	pool.Close()
	if err != nil {
		log.Printf("Error: %v", err)
		os.Exit(cli.ExitCode(err))
	}
}

// mintToken signs an operator token from the arguments after "token":
// <operator> [role]. The role defaults to operator.
func mintToken(secret string, args []string) (string, error) {
	if len(args) < 1 || args[0] == "" {
		return "", fmt.Errorf("usage: wbctl token <operator> [role]")
	}
	role := "operator"
	if len(args) > 1 {
		role = args[1]
	}
	return webAdapter.SignOperatorToken(secret, args[0], role, 12*time.Hour)
}
