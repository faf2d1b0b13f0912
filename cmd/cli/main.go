package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/yourorg/tourbook/internal/domain"
	"github.com/yourorg/tourbook/internal/infrastructure/cloudinary"
	"github.com/yourorg/tourbook/internal/infrastructure/logger"
	"github.com/yourorg/tourbook/internal/repository"
	"github.com/yourorg/tourbook/internal/security/auth"
	"github.com/yourorg/tourbook/internal/worker"
	"github.com/yourorg/tourbook/pkg/config"
	"github.com/yourorg/tourbook/pkg/database"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "intents":
		handleIntents(args)
	case "sweep":
		handleSweep(args)
	case "token":
		handleToken(args)
	case "health":
		handleHealth(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tourbook ops CLI

Usage:
  tourbook intents [-stale-minutes N]   list stale pending upload intents and state counts
  tourbook sweep   [-stale-minutes N]   run one orphan sweep pass now
  tourbook token   -user ID [-email E] [-ttl D]   mint a JWT for testing
  tourbook health  [-url URL]           check a running server
  tourbook help                         show this help`)
}

func mustOpen(ctx context.Context) (*config.Config, *repository.PostgresIntentRepository, func()) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewLogger("error")
	pool, err := database.NewConnectionPool(ctx, &cfg.Database, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	return cfg, repository.NewPostgresIntentRepository(pool.GetDB(), log), func() { pool.Close() }
}

func handleIntents(args []string) {
	fs := flag.NewFlagSet("intents", flag.ExitOnError)
	staleMinutes := fs.Int("stale-minutes", 60, "staleness threshold in minutes")
	fs.Parse(args)

	ctx := context.Background()
	_, repo, closePool := mustOpen(ctx)
	defer closePool()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STATE\tCOUNT")
	for _, state := range []domain.IntentState{domain.IntentPending, domain.IntentCommitted, domain.IntentReconciled} {
		count, err := repo.CountByState(state)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to count %s intents: %v\n", state, err)
			os.Exit(1)
		}
		fmt.Fprintf(w, "%s\t%d\n", state, count)
	}
	w.Flush()

	cutoff := time.Now().Add(-time.Duration(*staleMinutes) * time.Minute)
	stale, err := repo.ListStalePending(cutoff)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list stale intents: %v\n", err)
		os.Exit(1)
	}
	if len(stale) == 0 {
		fmt.Printf("\nno pending intents older than %dm\n", *staleMinutes)
		return
	}

	fmt.Printf("\nstale pending intents (older than %dm):\n", *staleMinutes)
	w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tOWNER\tKIND\tBLOB OBJECT\tCREATED")
	for _, i := range stale {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", i.ID, i.OwnerID, i.Kind, i.BlobObjectID, i.CreatedAt.Format(time.RFC3339))
	}
	w.Flush()
}

func handleSweep(args []string) {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	staleMinutes := fs.Int("stale-minutes", 60, "staleness threshold in minutes")
	fs.Parse(args)

	ctx := context.Background()
	cfg, repo, closePool := mustOpen(ctx)
	defer closePool()

	log := logger.NewLogger("info")
	blobStore, err := cloudinary.NewClient(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize blob store client: %v\n", err)
		os.Exit(1)
	}

	sweeper := worker.NewSweepWorker(repo, blobStore, nil, log, time.Minute, time.Duration(*staleMinutes)*time.Minute)
	reconciled := sweeper.Sweep(ctx)
	fmt.Printf("reconciled %d orphaned upload(s)\n", reconciled)
}

func handleToken(args []string) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	userID := fs.String("user", "", "reference-store user id")
	email := fs.String("email", "", "email claim")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	fs.Parse(args)

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "token: -user is required")
		os.Exit(1)
	}

	tm := auth.NewTokenManager(os.Getenv("JWT_SECRET"), "tourbook")
	token, err := tm.GenerateToken(*userID, *email, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to mint token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

func handleHealth(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	url := fs.String("url", "http://localhost:8080", "server base URL")
	fs.Parse(args)

	client := &http.Client{Timeout: 5 * time.Second}

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := client.Get(*url + path)
		if err != nil {
			fmt.Printf("%s\tunreachable: %v\n", path, err)
			continue
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		var pretty map[string]any
		if json.Unmarshal(body, &pretty) == nil {
			fmt.Printf("%s\t%d\t%v\n", path, resp.StatusCode, pretty)
		} else {
			fmt.Printf("%s\t%d\t%s\n", path, resp.StatusCode, string(body))
		}
	}
}
