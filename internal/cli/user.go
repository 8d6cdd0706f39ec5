package cli

import (
	"fmt"
	"text/tabwriter"

	"doc-tracker/internal/domain"
	"doc-tracker/internal/user"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func UserCmd(env *Env) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	userCmd.AddCommand(userAddCmd(env), userPasswdCmd(env), userListCmd(env))
	return userCmd
}

func userAddCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [username]",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			displayName, _ := cmd.Flags().GetString("display-name")
			role, _ := cmd.Flags().GetString("role")
			password, _ := cmd.Flags().GetString("password")

			return withDB(env, func(conn *gorm.DB) error {
				svc := user.NewService(user.NewRepository(conn), env.Log)
				u := &domain.User{
					Username:    args[0],
					Password:    password,
					DisplayName: displayName,
					Role:        role,
				}
				if err := svc.Create(cmd.Context(), u); err != nil {
					return fmt.Errorf("failed to create user: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Created user %s (%s)\n", u.Username, u.Role)
				return nil
			})
		},
	}
	cmd.Flags().String("display-name", "", "name shown on created documents")
	cmd.Flags().String("role", domain.RoleUser, "user or admin")
	cmd.Flags().String("password", "", "initial password")
	cmd.MarkFlagRequired("display-name")
	cmd.MarkFlagRequired("password")
	return cmd
}

func userPasswdCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "passwd [username]",
		Short: "Change a user's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, _ := cmd.Flags().GetString("password")
			confirm, _ := cmd.Flags().GetString("confirm")

			return withDB(env, func(conn *gorm.DB) error {
				svc := user.NewService(user.NewRepository(conn), env.Log)
				if err := svc.ChangePassword(cmd.Context(), args[0], password, confirm); err != nil {
					return fmt.Errorf("failed to change password: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Password changed for %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().String("password", "", "new password")
	cmd.Flags().String("confirm", "", "new password again")
	cmd.MarkFlagRequired("password")
	cmd.MarkFlagRequired("confirm")
	return cmd
}

func userListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(env, func(conn *gorm.DB) error {
				svc := user.NewService(user.NewRepository(conn), env.Log)
				users, err := svc.List(cmd.Context())
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "USERNAME\tDISPLAY NAME\tROLE\tCREATED")
				for _, u := range users {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.Username, u.DisplayName, u.Role, u.CreatedAt.Format("2006-01-02"))
				}
				return w.Flush()
			})
		},
	}
}
