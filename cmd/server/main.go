/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the costing engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Optionally seed standard cost policies
  4. Create pipeline, handler and scheduler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port          HTTP server port (default: 8080)
  -db            SQLite database path (default: costing.db)
                 Use ":memory:" for in-memory database
  -seed          Seed the standard cost-policy table for the current year
  -skip-missing  Record and skip missing-reference failures during runs
                 instead of aborting
  -no-scheduler  Disable the nightly batch trigger

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database and seeded policies
  ./server -db="./data/costing.db" -seed

  # Run with in-memory database
  ./server -db=":memory:"

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Nightly trigger
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/costing-engine/api"
	"github.com/warp/costing-engine/factory"
	"github.com/warp/costing-engine/finance"
	"github.com/warp/costing-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "costing.db", "SQLite database path")
	seed := flag.Bool("seed", false, "seed standard cost policies for the current year")
	skipMissing := flag.Bool("skip-missing", false, "skip missing-reference failures instead of aborting runs")
	noScheduler := flag.Bool("no-scheduler", false, "disable the nightly batch trigger")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	if *seed {
		ctx := context.Background()
		year := time.Now().Year()
		for _, policy := range factory.PoliciesForYear(year) {
			if err := store.SaveCostPolicy(ctx, policy); err != nil {
				log.Fatalf("Failed to seed cost policies: %v", err)
			}
		}
		log.Printf("Seeded standard cost policies for %d", year)
	}

	// Initialize pipeline and handler
	pipeline := finance.NewPipeline(store)
	pipeline.SkipMissingReference = *skipMissing
	handler := api.NewHandler(store, pipeline)

	// Nightly trigger
	scheduler := api.NewBatchScheduler(store, pipeline)
	scheduler.Enabled = !*noScheduler
	scheduler.Start()
	defer scheduler.Stop()

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
