package main

import (
	"fmt"

	"projectboard/internal/models"

	"github.com/spf13/cobra"
)

func newAdminCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage platform admins",
	}

	setAdmin := func(use, short string, admin bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <user>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				rt, err := open(true)
				if err != nil {
					return err
				}
				user, err := findUser(cmd.Context(), rt.store, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if user.IsAdmin == admin {
					fmt.Fprintf(out, "%s (ID: %d) is unchanged\n", user.Email, user.ID)
					return nil
				}
				if err := rt.db.WithContext(cmd.Context()).Model(&models.User{}).
					Where("id = ?", user.ID).Update("is_admin", admin).Error; err != nil {
					return fmt.Errorf("update user: %w", err)
				}
				fmt.Fprintf(out, "%s (ID: %d) is_admin=%t\n", user.Email, user.ID, admin)
				return nil
			},
		}
	}

	cmd.AddCommand(
		setAdmin("promote", "Grant a user platform admin", true),
		setAdmin("demote", "Revoke platform admin from a user", false),
		&cobra.Command{
			Use:   "list",
			Short: "List platform admins",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				rt, err := open(true)
				if err != nil {
					return err
				}
				admins, err := rt.store.Users.GlobalAdmins(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(admins) == 0 {
					fmt.Fprintln(out, "no admins")
					return nil
				}
				for _, a := range admins {
					fmt.Fprintf(out, "%d\t%s\t%s\n", a.ID, a.Name, a.Email)
				}
				return nil
			},
		},
	)
	return cmd
}
