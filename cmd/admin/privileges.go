package main

import (
	"context"
	"fmt"

	"agora/internal/service"

	"github.com/spf13/cobra"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap <user_id>",
	Short: "Make the first admin (only while none exist)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := parseUserID(args[0])
		if err != nil {
			return err
		}
		return withManager(func(ctx context.Context, m *service.AdminPrivilegeManager) error {
			user, err := m.Bootstrap(ctx, userID)
			if err != nil {
				return fmt.Errorf("bootstrap failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Promoted %s (ID: %d) to first admin\n", user.Username, user.ID)
			return nil
		})
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle <requester_id> <user_id>",
	Short: "Toggle a user's admin rights on behalf of an existing admin",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		requesterID, err := parseUserID(args[0])
		if err != nil {
			return err
		}
		targetID, err := parseUserID(args[1])
		if err != nil {
			return err
		}
		return withManager(func(ctx context.Context, m *service.AdminPrivilegeManager) error {
			result, err := m.ToggleAdmin(ctx, requesterID, targetID)
			if err != nil {
				return fmt.Errorf("toggle failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %d is_admin=%t\n", result.UserID, result.IsAdmin)
			return nil
		})
	},
}

var listAdminsCmd = &cobra.Command{
	Use:   "list-admins",
	Short: "List all admins",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withManager(func(ctx context.Context, m *service.AdminPrivilegeManager) error {
			admins, err := m.ListAdmins(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch admins: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(admins) == 0 {
				fmt.Fprintln(out, "No admins found in the system")
				return nil
			}
			fmt.Fprintln(out, "Current Admins:")
			for _, admin := range admins {
				fmt.Fprintf(out, "ID: %d | Username: %s | Email: %s\n", admin.ID, admin.Username, admin.Email)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(bootstrapCmd, toggleCmd, listAdminsCmd)
}
