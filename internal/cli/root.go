package cli

import (
	"fmt"
	"time"

	"doc-tracker/internal/config"
	"doc-tracker/internal/db"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Env is what every command runs against.
type Env struct {
	Open func() (*gorm.DB, error)
	Log  *zap.Logger
	Now  func() time.Time
}

// DefaultEnv reads the same configuration as the server.
func DefaultEnv(log *zap.Logger) *Env {
	return &Env{
		Open: func() (*gorm.DB, error) {
			if err := config.LoadConfig(); err != nil {
				return nil, err
			}
			return db.Connect(config.AppConfig)
		},
		Log: log,
		Now: time.Now,
	}
}

func NewRootCmd(env *Env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "doctrackctl",
		Short:         "Administer the document tracker",
		Long:          "doctrackctl migrates the database, manages user accounts and prints the overdue reply report.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(MigrateCmd(env))
	rootCmd.AddCommand(UserCmd(env))
	rootCmd.AddCommand(TrackingCmd(env))
	return rootCmd
}

// withDB opens the database for the length of fn.
func withDB(env *Env, fn func(conn *gorm.DB) error) error {
	conn, err := env.Open()
	if err != nil {
		return err
	}
	defer db.Close(conn)
	return fn(conn)
}

func MigrateCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(env, func(conn *gorm.DB) error {
				if err := db.Migrate(conn); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "✓ Database migrated")
				return nil
			})
		},
	}
}
