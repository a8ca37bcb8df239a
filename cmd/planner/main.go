package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tripwise/planner/internal/httpapi"
	"github.com/tripwise/planner/internal/observability"
	"github.com/tripwise/planner/internal/pdf"
	"github.com/tripwise/planner/internal/store"
	"github.com/tripwise/planner/internal/tripplan"
)

func main() {
	dbFlag := flag.String("db", "", "path to SQLite database file (overrides DB_PATH env var)")
	flag.Parse()

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := observability.Init(ctx, observability.Config{
		ServiceName: "planner",
		Environment: os.Getenv("ENVIRONMENT"),
		Version:     os.Getenv("SERVICE_VERSION"),
	})

	dbPath := *dbFlag
	if dbPath == "" {
		dbPath = os.Getenv("DB_PATH")
	}
	if dbPath == "" {
		dbPath = "./data/plans.db"
	}
	st, err := store.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to initialize plan store (%s): %v", dbPath, err)
	}
	defer st.Close()
	log.Printf("using sqlite store at %s", dbPath)

	caller, err := tripplan.NewAnthropicCallerFromEnv()
	if err != nil {
		log.Fatalf("llm client: %v", err)
	}
	planner := tripplan.NewPlanner(tripplan.NewStructuredPlanGenerator(caller))

	h := httpapi.NewServer(planner, st, pdf.NewChromiumRenderer())
	srv := &http.Server{Addr: addr, Handler: h}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown err=%q", err.Error())
		}
		if shutdownTracing != nil {
			if err := shutdownTracing(shutdownCtx); err != nil {
				log.Printf("tracing shutdown err=%q", err.Error())
			}
		}
	}()

	log.Printf("planner listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
