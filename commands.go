package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meinhoongagan/vetcare-app/controllers"
	"github.com/meinhoongagan/vetcare-app/db"
	"github.com/meinhoongagan/vetcare-app/middleware"
	"github.com/meinhoongagan/vetcare-app/redis"
	"github.com/meinhoongagan/vetcare-app/routes"
)

func serveCmd() *cobra.Command {
	var withJobs bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), withJobs)
		},
	}
	cmd.Flags().BoolVar(&withJobs, "jobs", true, "run the periodic job scheduler in this process")
	return cmd
}

func runServer(ctx context.Context, withJobs bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := bootstrap(ctx, true)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}

	app := fiber.New(fiber.Config{
		AppName:      "vetcare",
		ErrorHandler: controllers.ErrorHandler,
		BodyLimit:    10 * 1024 * 1024,
	})
	app.Use(recover.New(recover.Config{EnableStackTrace: a.cfg.IsDev()}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(a.cfg.CORSOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.RequestLogger(a.log))
	app.Use(middleware.Metrics(a.metrics))

	routes.Setup(app, routes.Handlers{
		Auth:         controllers.NewAuthController(a.auth),
		Clinics:      controllers.NewClinicController(a.clinics, a.slots),
		Pets:         controllers.NewPetController(a.pets),
		Appointments: controllers.NewAppointmentController(a.appointments),
		Reviews:      controllers.NewReviewController(a.reviews),
		Billing:      controllers.NewBillingController(a.billing),
		Admin:        controllers.NewAdminController(a.admin),
		Health: controllers.NewHealthController(map[string]controllers.Pinger{
			"database": sqlDB,
			"redis":    redis.Pinger{Client: a.redis},
		}),
	}, middleware.Protected(a.cfg.JWTSigningKey(), a.auth), a.metrics)

	if withJobs {
		a.scheduler.Start()
	}

	go func() {
		addr := ":" + a.cfg.Port
		a.log.Info("starting server", zap.String("addr", addr), zap.String("env", a.cfg.Env))
		if err := app.Listen(addr); err != nil {
			a.log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	a.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if withJobs {
		a.scheduler.Stop(shutdownCtx)
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		a.log.Error("server shutdown failed", zap.Error(err))
	}
	a.log.Info("server stopped")
	return nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(context.Background(), false)
			if err != nil {
				return err
			}
			defer a.close(context.Background())
			return db.Migrate(a.db, a.log)
		},
	}
}

func jobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect or trigger periodic jobs",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List scheduled jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(context.Background(), true)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSCHEDULE")
			for _, j := range a.scheduler.Jobs() {
				fmt.Fprintf(w, "%s\t%s\n", j.Name, j.Schedule)
			}
			return w.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "run <name>",
		Short: "Run one job now, under the same lock the scheduler uses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(context.Background(), true)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			run, err := a.scheduler.RunNow(context.Background(), args[0])
			if run != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (processed %d)\n", run.Job, run.Status, run.Processed)
			}
			return err
		},
	})
	return cmd
}

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage platform accounts",
	}

	var name, email, password string
	create := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a platform administrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}
			if email == "" || password == "" {
				return errors.New("--email and --password (or ADMIN_PASSWORD) are required")
			}
			a, err := bootstrap(context.Background(), true)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			u, err := a.auth.CreateAdmin(context.Background(), name, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %d <%s>\n", u.ID, u.Email)
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "Administrator", "display name")
	create.Flags().StringVar(&email, "email", "", "login email")
	create.Flags().StringVar(&password, "password", "", "initial password")
	cmd.AddCommand(create)
	return cmd
}
