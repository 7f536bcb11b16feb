/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the award interpretation server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Read configuration from environment
  2. Initialize SQLite store
  3. Create API handler with dependencies
  4. Configure HTTP router
  5. Start server with graceful shutdown

CONFIGURATION (environment, PAYROLL_ prefix):
  PAYROLL_PORT                    HTTP server port (default: 8080)
  PAYROLL_DB_PATH                 SQLite database path (default: payroll.db)
                                  Use ":memory:" for in-memory database
  PAYROLL_DEFAULT_CLASSIFICATION  Classification assumed when a request
                                  omits one (default: retail-level-1)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  PAYROLL_DB_PATH=./data/payroll.db ./server

  # Run with in-memory database
  PAYROLL_DB_PATH=:memory: ./server

  # Run on different port
  PAYROLL_PORT=3000 ./server

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/rpgramesh/stellaris-hrm-sub003/api"
	"github.com/rpgramesh/stellaris-hrm-sub003/store/sqlite"
)

// Config is read from the environment with the PAYROLL_ prefix.
type Config struct {
	Port                  int    `default:"8080"`
	DBPath                string `envconfig:"DB_PATH" default:"payroll.db"`
	DefaultClassification string `envconfig:"DEFAULT_CLASSIFICATION" default:"retail-level-1"`
}

func main() {
	var cfg Config
	if err := envconfig.Process("payroll", &cfg); err != nil {
		log.Fatalf("Failed to read configuration: %v", err)
	}

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize handler and router
	handler := api.NewHandler(store, cfg.DefaultClassification)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", cfg.Port)
		log.Printf("API available at http://localhost:%d/api", cfg.Port)
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
