// Command admin performs operator tasks against the database. It
// currently toggles a user's pro subscription, which has no API
// endpoint on purpose.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/verse-app/verse/internal/config"
	"github.com/verse-app/verse/internal/database"
	"github.com/verse-app/verse/internal/users"
)

func main() {
	var (
		userFlag = flag.String("user", "", "user id (uuid)")
		proFlag  = flag.Bool("pro", false, "grant (true) or revoke (false) pro subscription")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: admin -user <uuid> [-pro=true|false]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *userFlag == "" {
		flag.Usage()
		os.Exit(2)
	}
	userID, err := uuid.Parse(*userFlag)
	if err != nil {
		slog.Error("invalid user id", "user", *userFlag, "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	svc := users.NewService(users.NewRepository(pool))
	if err := svc.SetPro(ctx, userID, *proFlag); err != nil {
		slog.Error("updating pro subscription", "user_id", userID, "error", err)
		os.Exit(1)
	}

	slog.Info("pro subscription updated", "user_id", userID, "pro", *proFlag)
}
