package FiberConfig

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/template/html"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"Aerofield/Config"
	"Aerofield/Controllers"
	"Aerofield/Ledger"
	"Aerofield/Notifications"
	"Aerofield/Photos"
	"Aerofield/Reports"
	"Aerofield/middleware"
)

// Deps are the shared services the handlers run on.
type Deps struct {
	DB       *gorm.DB
	Service  *Ledger.Service
	Auth     *middleware.Auth
	Photos   *Photos.Store
	Notifier *Notifications.Dispatcher
}

func SetupRoutes(app *fiber.App, cfg *Config.Config, deps Deps) {
	authController := Controllers.NewAuthController(deps.DB, deps.Auth)
	taskController := Controllers.NewTaskController(deps.Service, deps.Photos, deps.Notifier)
	earningsController := Controllers.NewEarningsController(deps.Service)
	billingController := Controllers.NewBillingController(deps.Service, deps.Notifier)
	logsController := Controllers.NewLogsController(cfg.Logging.File)

	anyone := deps.Auth.Verify("")
	admin := deps.Auth.RequireAdmin()
	adminRole := middleware.RequireRole(Ledger.RoleAdmin)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Progress photos are served to logged in users only
	photos := app.Group("/photos", anyone)
	photos.Static("/", deps.Photos.Dir, fiber.Static{Compress: true, CacheDuration: time.Second * 10})

	api := app.Group("/api")

	// Session
	api.Post("/login", authController.Login)
	api.Post("/logout", authController.Logout)
	api.Get("/me", anyone, authController.Me)
	api.Post("/devices", anyone, authController.RegisterDevice)

	// Users
	users := api.Group("/users", admin)
	users.Get("/", authController.ListUsers)
	users.Post("/", authController.RegisterUser)
	users.Patch("/:id/active", authController.SetUserActive)

	// Tasks and progress
	tasks := api.Group("/tasks", anyone)
	tasks.Get("/", taskController.ListTasks)
	tasks.Post("/", adminRole, taskController.CreateTask)
	tasks.Get("/:id", taskController.GetTask)
	tasks.Post("/:id/start", taskController.StartTask)
	tasks.Post("/:id/progress", taskController.AppendProgress)
	tasks.Post("/:id/complete", taskController.CompleteTask)
	tasks.Put("/:id/target", adminRole, taskController.ChangeTarget)
	tasks.Delete("/:id/progress/:entry", adminRole, taskController.RemoveProgress)
	tasks.Post("/:id/progress/:entry/photos", taskController.UploadPhoto)
	tasks.Post("/:id/debt", adminRole, billingController.CreateDebt)

	// Rates and earnings
	api.Get("/rates", admin, earningsController.ListRates)
	api.Post("/rates", admin, earningsController.SetRate)
	earnings := api.Group("/earnings", anyone)
	earnings.Get("/", earningsController.GetEarnings)
	earnings.Get("/export", earningsController.ExportEarnings)
	earnings.Get("/statement", earningsController.Statement)

	// Debts, payments and clients
	debts := api.Group("/debts", admin)
	debts.Get("/", billingController.ListDebts)
	debts.Get("/export", billingController.ExportDebts)
	debts.Post("/reconcile", billingController.Reconcile)
	debts.Post("/:id/payments", billingController.ApplyPayment)
	api.Get("/payments", admin, billingController.ListPayments)
	api.Get("/clients", admin, billingController.ListClients)
	api.Get("/stats", admin, billingController.Stats)

	// Cash ledger
	cash := api.Group("/cash", admin)
	cash.Get("/", billingController.ListCash)
	cash.Post("/", billingController.RecordCash)
	cash.Get("/summary", billingController.CashSummary)
	cash.Get("/export", billingController.ExportCash)
	cash.Delete("/:id", billingController.DeleteCash)

	// Request logs
	logs := api.Group("/logs", admin)
	logs.Get("/", logsController.GetLogs)
	logs.Get("/stats", logsController.GetLogStats)
}

// NewApp builds the fiber app with views, middleware and routes.
func NewApp(cfg *Config.Config, deps Deps) *fiber.App {
	engine := html.New(cfg.Server.Templates, ".html")
	engine.AddFunc("money", Reports.FormatMoney)
	engine.AddFunc("quantity", Reports.FormatQuantity)
	engine.AddFunc("date", func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("2006-01-02")
	})

	app := fiber.New(fiber.Config{
		Views:                 engine,
		BodyLimit:             16 * 1024 * 1024,
		DisableStartupMessage: true,
	})
	app.Use(middleware.RequestLogger(cfg.Logging.File))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestCompression,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.Server.CORSOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: true,
		MaxAge:           300,
	}))

	SetupRoutes(app, cfg, deps)
	return app
}

// Serve listens on the configured address until ctx is cancelled.
func Serve(ctx context.Context, app *fiber.App, addr string) error {
	go func() {
		<-ctx.Done()
		if err := app.Shutdown(); err != nil {
			log.WithError(err).Warn("shutdown")
		}
	}()
	log.WithField("addr", addr).Info("Server Up...")
	return app.Listen(addr)
}
