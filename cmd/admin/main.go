// Command admin manages admin privileges and inspects configuration.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"agora/internal/bootstrap"
	"agora/internal/config"
	"agora/internal/featureflags"
	"agora/internal/repository"
	"agora/internal/service"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "admin",
	Short: "Agora operator tooling",
	Long: `Manage admin privileges on an Agora deployment.

Examples:
  # Promote the first admin of a fresh deployment
  admin bootstrap 1

  # Toggle a user's admin flag as an existing admin
  admin toggle 1 42`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withManager loads config, opens the stores and hands an
// AdminPrivilegeManager to fn.
func withManager(fn func(ctx context.Context, m *service.AdminPrivilegeManager) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = rt.Close(ctx) }()

	manager := service.NewAdminPrivilegeManager(
		rt.Stores.Main,
		repository.NewUserRepository(rt.Stores.Main),
		rt.Sink,
		featureflags.NewManager(cfg.FeatureFlags),
	)
	return fn(ctx, manager)
}

func parseUserID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid user ID %q", raw)
	}
	return uint(id), nil
}
