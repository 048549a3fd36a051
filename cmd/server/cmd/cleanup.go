package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/gatherly/server/internal/auth"
	"github.com/gatherly/server/internal/config"
	"github.com/gatherly/server/internal/domain/sessions"
	"github.com/gatherly/server/internal/domain/users"
	"github.com/gatherly/server/internal/storage/postgres"
	"github.com/spf13/cobra"
)

var cleanupTimeout int

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Purge expired entries from the token revocation ledger",
	Long: `Remove revocation ledger entries whose tokens have passed their
natural expiry. Expired tokens are rejected by signature verification
regardless, so this only reclaims storage. Safe to run from cron.

Examples:
  # Purge with the default timeout
  server cleanup

  # Purge with a 60 second timeout
  server cleanup --timeout 60`,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().IntVar(&cleanupTimeout, "timeout", 30, "timeout in seconds")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	logger := config.NewLogger(cfg.Logging)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cleanupTimeout)*time.Second)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return fmt.Errorf("repository init failed: %w", err)
	}

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Auth.Issuer)
	userService := users.NewService(repo.Users(), logger)
	sessionService := sessions.NewService(userService, repo.Tokens(), jwtManager, logger)

	removed, err := sessionService.PurgeExpired(ctx)
	if err != nil {
		return err
	}

	cmd.Printf("purged %d expired revoked token(s)\n", removed)
	return nil
}
