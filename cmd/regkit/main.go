package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/regkit/regkit/internal/config"
	"github.com/regkit/regkit/internal/db"
	"github.com/regkit/regkit/internal/repository"
	"github.com/regkit/regkit/internal/service"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "regkit",
		Short: "Admin tools for the regkit API",
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(userCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openDB connects with the same configuration the server uses.
func openDB() (*sqlx.DB, *config.Config, error) {
	cfg := config.Load()
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, nil, err
	}
	return database, cfg, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, cfg, err := openDB()
			if err != nil {
				return err
			}
			defer database.Close()
			return db.RunMigrations(database.DB, cfg.DBDriver)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, cfg, err := openDB()
			if err != nil {
				return err
			}
			defer database.Close()
			return db.MigrateDown(database.DB, cfg.DBDriver)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, cfg, err := openDB()
			if err != nil {
				return err
			}
			defer database.Close()
			return db.MigrateStatus(database.DB, cfg.DBDriver)
		},
	})

	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all users",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, _, err := openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			users, err := repository.NewUserRepository(database).All()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEMAIL\tACTIVE\tVERIFIED\tCREATED")
			for _, u := range users {
				fmt.Fprintf(w, "%s\t%s\t%t\t%t\t%s\n",
					u.ID, u.Email, u.IsActive, u.IsVerified, u.CreatedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "deactivate <email>",
		Short: "Deactivate a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, _, err := openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			repo := repository.NewUserRepository(database)
			user, err := repo.ByEmail(args[0])
			if err != nil {
				return err
			}
			user.IsActive = false
			err = repo.Update(user)
			if err != nil {
				return err
			}
			fmt.Printf("deactivated %s\n", user.Email)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set-password <email> <password>",
		Short: "Reset a user's password",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, _, err := openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			id, err := emailToID(database, args[0])
			if err != nil {
				return err
			}
			_, err = service.NewUserService(repository.NewUserRepository(database)).
				Update(id, service.UpdateUserParams{Password: &args[1]})
			if err != nil {
				return err
			}
			fmt.Printf("password updated for %s\n", args[0])
			return nil
		},
	})

	return cmd
}

func emailToID(database *sqlx.DB, email string) (string, error) {
	user, err := repository.NewUserRepository(database).ByEmail(email)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}
