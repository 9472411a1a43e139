package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lithammer/shortuuid/v4"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/newsroomhq/newsdesk/internal/profile"
	"github.com/newsroomhq/newsdesk/server"
	"github.com/newsroomhq/newsdesk/store"
	"github.com/newsroomhq/newsdesk/store/db"
)

const (
	greetingBanner = `Newsdesk preferences service`
)

var (
	rootCmd = &cobra.Command{
		Use:   "newsdesk",
		Short: "Preference service for the newsdesk editorial system",
		Run: func(_ *cobra.Command, _ []string) {
			instanceProfile := &profile.Profile{
				Mode:    viper.GetString("mode"),
				Addr:    viper.GetString("addr"),
				Port:    viper.GetInt("port"),
				Data:    viper.GetString("data"),
				Driver:  viper.GetString("driver"),
				DSN:     viper.GetString("dsn"),
				Version: "0.1.0",
			}
			instanceProfile.FromEnv()
			if err := instanceProfile.Validate(); err != nil {
				slog.Error("invalid configuration", slog.String("error", err.Error()))
				os.Exit(1)
			}

			logger := newLogger(instanceProfile)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			dbDriver, err := db.NewDBDriver(instanceProfile)
			if err != nil {
				logger.Error("failed to create db driver", slog.String("error", err.Error()))
				os.Exit(1)
			}

			storeInstance := store.New(dbDriver, instanceProfile)
			if err := storeInstance.Migrate(ctx); err != nil {
				logger.Error("failed to migrate database", slog.String("error", err.Error()))
				os.Exit(1)
			}

			if instanceProfile.Mode == "demo" {
				if err := seedDemoData(ctx, storeInstance); err != nil {
					logger.Error("failed to seed demo data", slog.String("error", err.Error()))
					os.Exit(1)
				}
			}

			s, err := server.NewServer(ctx, instanceProfile, storeInstance, logger)
			if err != nil {
				logger.Error("failed to create server", slog.String("error", err.Error()))
				os.Exit(1)
			}

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigChan
				s.Shutdown(ctx)
				cancel()
			}()

			fmt.Println(greetingBanner)
			if err := s.Start(ctx); err != nil {
				logger.Error("failed to start server", slog.String("error", err.Error()))
				cancel()
			}

			<-ctx.Done()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().String("mode", "demo", `mode of the server, can be "prod", "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of the server")
	rootCmd.PersistentFlags().Int("port", 8230, "port of the server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}

	viper.SetDefault("mode", "demo")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 8230)
	viper.SetEnvPrefix("newsdesk")
	viper.AutomaticEnv()
}

func newLogger(p *profile.Profile) *slog.Logger {
	level := slog.LevelInfo
	if p.IsDev() {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// seedDemoData creates a demo role and user so a fresh demo instance can be
// exercised without an external user-management service.
func seedDemoData(ctx context.Context, s *store.Store) error {
	users, err := s.ListUsers(ctx, &store.FindUser{})
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return nil
	}

	if _, err := s.UpsertRole(ctx, &store.Role{
		Name: "editor",
		Privileges: store.PrivilegeMap{
			"archive":   1,
			"spike":     1,
			"unspike":   1,
			"duplicate": 1,
			"publish":   1,
		},
	}); err != nil {
		return err
	}

	demoUser := &store.User{
		ID:       shortuuid.New(),
		Username: "demo",
		Role:     "editor",
		Desk:     "news",
		LegacyPreferences: store.PreferenceMap{
			"archive:view": "compact",
		},
	}
	if _, err := s.CreateUser(ctx, demoUser); err != nil {
		return err
	}

	slog.Info("seeded demo data", slog.String("user_id", demoUser.ID))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
