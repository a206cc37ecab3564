package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"gorm.io/gorm"

	"Aerofield/Config"
	"Aerofield/CronJobs"
	"Aerofield/FiberConfig"
	"Aerofield/Ledger"
	"Aerofield/Models"
	"Aerofield/Notifications"
	"Aerofield/Photos"
	"Aerofield/Reports"
	"Aerofield/middleware"
)

func main() {
	var cfg *Config.Config

	app := &cli.Command{
		Name:  "aerofield",
		Usage: "Field service ledger for drone spraying crews",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML config file",
				Sources: cli.EnvVars("AERO_CONFIG"),
				Value:   "config.yaml",
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			loaded, err := Config.Load(c.String("config"))
			if err != nil {
				return ctx, err
			}
			cfg = loaded
			return ctx, setupLogging(cfg.Logging)
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the HTTP API",
				Action: func(ctx context.Context, c *cli.Command) error {
					return serve(ctx, c.String("config"), cfg)
				},
			},
			{
				Name:  "migrate",
				Usage: "Create or update the database schema",
				Action: func(ctx context.Context, c *cli.Command) error {
					_, err := Models.Connect(cfg.Database)
					return err
				},
			},
			{
				Name:  "reconcile",
				Usage: "Create the debts missing for completed billable tasks",
				Action: func(ctx context.Context, c *cli.Command) error {
					db, err := Models.Connect(cfg.Database)
					if err != nil {
						return err
					}
					created, err := newService(db).ReconcileDebts(ctx)
					if err != nil {
						return err
					}
					for _, d := range created {
						fmt.Printf("%s\t%s\t%s\n", d.ID, d.ClientName, Reports.FormatMoney(d.TotalAmount))
					}
					fmt.Printf("%d debts created\n", len(created))
					return nil
				},
			},
			{
				Name:  "export-earnings",
				Usage: "Write the earnings workbook to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Usage: "first day, YYYY-MM-DD"},
					&cli.StringFlag{Name: "to", Usage: "last day, YYYY-MM-DD"},
					&cli.StringFlag{Name: "out", Value: "earnings.xlsx", Usage: "output file"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					window, err := windowFlags(c.String("from"), c.String("to"))
					if err != nil {
						return err
					}
					db, err := Models.Connect(cfg.Database)
					if err != nil {
						return err
					}
					earnings, err := newService(db).ComputeEarnings(ctx, window)
					if err != nil {
						return err
					}
					buf, err := Reports.EarningsWorkbook(earnings)
					if err != nil {
						return err
					}
					if err := os.WriteFile(c.String("out"), buf.Bytes(), 0o644); err != nil {
						return fmt.Errorf("write workbook: %w", err)
					}
					log.WithField("file", c.String("out")).Info("earnings exported")
					return nil
				},
			},
			{
				Name:  "create-user",
				Usage: "Create a login account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true, Sources: cli.EnvVars("AERO_USER_PASSWORD")},
					&cli.StringFlag{Name: "role", Value: string(Ledger.RoleEmployee), Usage: "admin or employee"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					db, err := Models.Connect(cfg.Database)
					if err != nil {
						return err
					}
					user, err := Models.CreateUser(db, c.String("name"), c.String("email"), c.String("password"), Ledger.Role(c.String("role")))
					if err != nil {
						return err
					}
					fmt.Printf("created %s (%s) %s\n", user.Name, user.Role, user.ID)
					return nil
				},
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func setupLogging(cfg Config.LoggingConfig) error {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("logging level: %w", err)
	}
	log.SetLevel(level)
	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}

func newService(db *gorm.DB) *Ledger.Service {
	return Ledger.NewService(Models.NewGormStore(db))
}

func windowFlags(from, to string) (Ledger.Window, error) {
	var w Ledger.Window
	if from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return w, fmt.Errorf("--from: %w", err)
		}
		w.From = t
	}
	if to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return w, fmt.Errorf("--to: %w", err)
		}
		w.To = t.Add(24*time.Hour - time.Nanosecond)
	}
	return w, nil
}

// notifier wires the configured notice channels. Channels that fail to
// initialize are skipped.
func notifier(ctx context.Context, cfg *Config.Config, db *gorm.DB) *Notifications.Dispatcher {
	var senders []Notifications.Sender
	if cfg.Notify.SlackToken != "" {
		senders = append(senders, Notifications.NewSlack(cfg.Notify.SlackToken, cfg.Notify.SlackChannel))
	}
	if cfg.Notify.SMTP.Host != "" {
		senders = append(senders, Notifications.NewEmail(cfg.Notify.SMTP))
	}
	if cfg.Notify.FCMCredentials != "" {
		tokens := func(ctx context.Context, worker string) ([]string, error) {
			return Models.DeviceTokens(db.WithContext(ctx), worker)
		}
		fcm, err := Notifications.NewFCM(ctx, cfg.Notify.FCMCredentials, tokens)
		if err != nil {
			log.WithError(err).Warn("push notifications disabled")
		} else {
			senders = append(senders, fcm)
		}
	}
	return Notifications.NewDispatcher(senders...)
}

func serve(ctx context.Context, path string, cfg *Config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := Models.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.Photos.Dir, 0o755); err != nil {
		return fmt.Errorf("photos dir: %w", err)
	}

	service := newService(db)
	dispatcher := notifier(ctx, cfg, db)
	defer dispatcher.Wait()

	if cfg.Jobs.ReconcileSchedule != "" {
		reconciler := CronJobs.NewDebtReconciler(service, true, func(d Ledger.Debt) {
			dispatcher.Notify(Notifications.DebtCreatedNotice(d))
		})
		if err := reconciler.Start(cfg.Jobs.ReconcileSchedule); err != nil {
			return err
		}
		defer reconciler.Stop()
		go reloadOnHangup(ctx, path, cfg.Jobs.ReconcileSchedule, reconciler)
	}

	app := FiberConfig.NewApp(cfg, FiberConfig.Deps{
		DB:       db,
		Service:  service,
		Auth:     middleware.NewAuth(cfg.Auth.Secret, cfg.Auth.TokenTTL, db),
		Photos:   Photos.NewStore(cfg.Photos.Dir, cfg.Photos.MaxSize),
		Notifier: dispatcher,
	})
	return FiberConfig.Serve(ctx, app, cfg.Addr())
}

// reloadOnHangup re-reads the config file on SIGHUP and applies the settings
// that can change without a restart: logging and the reconciliation schedule.
func reloadOnHangup(ctx context.Context, path, schedule string, reconciler *CronJobs.DebtReconciler) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
		}

		next, err := Config.Load(path)
		if err != nil {
			log.WithError(err).Warn("config reload failed, keeping current settings")
			continue
		}
		if err := setupLogging(next.Logging); err != nil {
			log.WithError(err).Warn("logging settings not reloaded")
		}
		switch want := next.Jobs.ReconcileSchedule; {
		case want == schedule:
		case want == "":
			log.Warn("reconciliation cannot be disabled without a restart")
		default:
			if err := reconciler.UpdateSchedule(want); err != nil {
				log.WithError(err).Warn("reconciliation schedule not reloaded")
				continue
			}
			schedule = want
		}
		log.Info("config reloaded")
	}
}
