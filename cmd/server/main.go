/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the attendance engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store in the business timezone
  3. Create the attendance service and API handler
  4. Optionally start the ledger repair scheduler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port        HTTP server port (default: 8080)
  -db          SQLite database path (default: attendance.db)
               Use ":memory:" for in-memory database
  -utc-offset  Business timezone as whole hours east of UTC (default: 8)
  -repair      Interval between ledger repair passes; 0 disables
               (default: 0)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the repair scheduler
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/attendance.db"

  # Run with in-memory database and hourly repair passes
  ./server -db=":memory:" -repair=1h

  # Run on different port
  ./server -port=3000

ENVIRONMENT:
  No environment variables currently. All config via flags.
  Future: DATABASE_URL, PORT, LOG_LEVEL

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
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

	"github.com/FluxxCC/OJTonTrack-sub001/api"
	"github.com/FluxxCC/OJTonTrack-sub001/attendance"
	"github.com/FluxxCC/OJTonTrack-sub001/engine"
	"github.com/FluxxCC/OJTonTrack-sub001/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "attendance.db", "SQLite database path")
	utcOffset := flag.Int("utc-offset", engine.DefaultOffsetHours, "business timezone, whole hours east of UTC")
	repairInterval := flag.Duration("repair", 0, "interval between ledger repair passes (0 disables)")
	flag.Parse()

	loc := engine.FixedOffsetLocation(*utcOffset)

	// Initialize store
	store, err := sqlite.New(*dbPath, loc)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize service and handler
	service := attendance.NewService(attendance.Deps{
		Punches:  store,
		Ledger:   store,
		Shifts:   store,
		Subjects: store,
		Config:   store,
		Sink:     attendance.LogSink{},
		Loc:      loc,
	})
	handler := api.NewHandler(store, service)

	// Optional background repair passes
	scheduler := api.NewRepairScheduler(service)
	if *repairInterval > 0 {
		scheduler.CheckInterval = *repairInterval
		scheduler.Start()
		defer scheduler.Stop()
	}

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
