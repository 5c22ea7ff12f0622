package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"motoexpress/config"
	"motoexpress/internal/database"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "motoexpress",
	Short: "Delivery logistics backend for establishments and motoboys",
	Long: `motoexpress runs the HTTP API and live map, the notification worker
and the database maintenance commands.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		if err := cmd.Help(); err != nil {
			log.Error().Err(err).Msg("failed to display help")
		}
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default ./config.yaml or ./config/config.yaml)")
}

// bootstrap loads configuration and sets up the global logger.
func bootstrap() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	setupLogger(cfg)
	return cfg, nil
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Log.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Log.Format == "console" && !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	log.Logger = log.With().Str("service", "motoexpress").Str("env", cfg.Server.Env).Logger()
}

func openDatabase(cfg *config.Config, migrate bool) (*gorm.DB, error) {
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if migrate {
		if err := database.AutoMigrate(db); err != nil {
			_ = database.Close(db)
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	log.Info().Str("driver", cfg.Database.Driver).Msg("database connected")
	return db, nil
}

// openRedis returns nil when Redis is disabled or unreachable; callers fall back
// to in-process rate limiting.
func openRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if !cfg.Enabled {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Addr).Msg("redis unreachable, continuing with in-memory rate limiting")
		_ = rdb.Close()
		return nil
	}
	log.Info().Str("addr", cfg.Addr).Msg("redis connected")
	return rdb
}
