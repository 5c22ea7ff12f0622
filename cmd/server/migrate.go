package main

import (
	"errors"

	"motoexpress/internal/database"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := bootstrap()
		if err != nil {
			return err
		}
		db, err := openDatabase(cfg, true)
		if err != nil {
			return err
		}
		defer database.Close(db)
		log.Info().Msg("schema is up to date")
		return nil
	},
}

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create the admin account from admin.email and admin.password",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := bootstrap()
		if err != nil {
			return err
		}
		if cfg.Admin.Password == "" {
			return errors.New("admin.password is not set (MOTOEXPRESS_ADMIN_PASSWORD)")
		}
		db, err := openDatabase(cfg, true)
		if err != nil {
			return err
		}
		defer database.Close(db)
		created, err := database.SeedAdmin(db, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			return err
		}
		if created {
			log.Info().Str("email", cfg.Admin.Email).Msg("admin account created")
		} else {
			log.Info().Str("email", cfg.Admin.Email).Msg("admin account already exists")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd, seedAdminCmd)
}
