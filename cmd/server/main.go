/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the library server. Owns configuration, store
  lifecycle, dependency wiring, and graceful shutdown.

COMMANDS:
  serve   Run the HTTP server
  seed    Write the bootstrap dataset (idempotent; skips non-empty
          collections)

FLAGS (both commands):
  --backend   Storage backend: "jsonfile" or "sqlite" (default jsonfile)
  --data      Data directory for the jsonfile backend (default ./data)
  --db        Database path for the sqlite backend (default library.db)

FLAGS (serve):
  --port        HTTP server port (default 8080)
  --jwt-secret  Token signing secret
  --loan-days   Fine-free loan period in days (default 14)
  --fine-rate   Fine per overdue day, decimal string (default "0.50")

EXAMPLES:
  # Flat files under ./data
  server seed
  server serve

  # SQLite
  server seed --backend=sqlite --db=./library.db
  server serve --backend=sqlite --db=./library.db --port=3000

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, drain active requests
  (30s timeout), close the store, exit.

SEE ALSO:
  - api/server.go: Router configuration
  - store/jsonfile, store/sqlite: Backends selected by --backend
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

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/warp/library-engine/api"
	"github.com/warp/library-engine/auth"
	"github.com/warp/library-engine/library"
	"github.com/warp/library-engine/store/jsonfile"
	"github.com/warp/library-engine/store/sqlite"
)

var (
	backend string
	dataDir string
	dbPath  string
)

func main() {
	root := &cobra.Command{
		Use:   "server",
		Short: "Library management backend",
	}
	root.PersistentFlags().StringVar(&backend, "backend", "jsonfile", `storage backend: "jsonfile" or "sqlite"`)
	root.PersistentFlags().StringVar(&dataDir, "data", "./data", "data directory (jsonfile backend)")
	root.PersistentFlags().StringVar(&dbPath, "db", "library.db", "database path (sqlite backend)")

	root.AddCommand(serveCmd(), seedCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func openStore() (library.Store, error) {
	switch backend {
	case "jsonfile":
		return jsonfile.New(dataDir)
	case "sqlite":
		return sqlite.New(dbPath)
	default:
		return nil, fmt.Errorf("unknown backend %q (want jsonfile or sqlite)", backend)
	}
}

// =============================================================================
// SERVE
// =============================================================================

func serveCmd() *cobra.Command {
	var (
		port      int
		jwtSecret string
		loanDays  int
		fineRate  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			rate, err := decimal.NewFromString(fineRate)
			if err != nil {
				return fmt.Errorf("invalid --fine-rate %q: %w", fineRate, err)
			}

			store, err := openStore()
			if err != nil {
				return fmt.Errorf("failed to initialize store: %w", err)
			}
			defer store.Close()

			handler := api.NewHandler(
				library.NewCatalog(store),
				library.NewWorkflow(store),
				auth.NewService(store, jwtSecret),
				library.FinePolicy{LoanDays: loanDays, DailyRate: rate},
			)
			router := api.NewRouter(handler)

			server := &http.Server{
				Addr:         fmt.Sprintf(":%d", port),
				Handler:      router,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			go func() {
				log.Printf("Server starting on http://localhost:%d (backend: %s)", port, backend)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalf("Server failed: %v", err)
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			log.Println("Shutting down server...")
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("forced shutdown: %w", err)
			}
			log.Println("Server stopped")
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "HTTP server port")
	cmd.Flags().StringVar(&jwtSecret, "jwt-secret", "lms-secret-xyz", "token signing secret")
	cmd.Flags().IntVar(&loanDays, "loan-days", library.DefaultLoanDays, "fine-free loan period in days")
	cmd.Flags().StringVar(&fineRate, "fine-rate", "0.50", "fine per overdue day")
	return cmd
}

// =============================================================================
// SEED
// =============================================================================

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Write the bootstrap dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return fmt.Errorf("failed to initialize store: %w", err)
			}
			defer store.Close()

			err = store.Mutate(cmd.Context(), func(s *library.State) error {
				if len(s.Users) == 0 {
					admin, err := hashPassword("admin123")
					if err != nil {
						return err
					}
					student, err := hashPassword("stud123")
					if err != nil {
						return err
					}
					s.Users = []library.User{
						{ID: 1, Username: "admin", Password: admin, Role: library.RoleAdmin},
						{ID: 2, Username: "student1", Password: student, Role: library.RoleStudent},
					}
				}
				if len(s.Books) == 0 {
					s.Books = []library.Book{
						{ID: 1, Title: "Clean Code", Author: "Robert C. Martin", Available: 3},
						{ID: 2, Title: "Atomic Habits", Author: "James Clear", Available: 2},
						{ID: 3, Title: "The Pragmatic Programmer", Author: "Andrew Hunt", Available: 1},
					}
				}
				return nil
			})
			if err != nil {
				return fmt.Errorf("failed to seed: %w", err)
			}

			log.Println("Seed data written")
			return nil
		},
	}
}

func hashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
