package server

import (
	"strings"

	"finance-backend/internal/asset"
	"finance-backend/internal/audit"
	"finance-backend/internal/auth"
	"finance-backend/internal/config"
	"finance-backend/internal/dashboard"
	"finance-backend/internal/dividend"
	"finance-backend/internal/expense"
	"finance-backend/internal/investment"
	"finance-backend/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// New builds the fiber app with every route registered. database.DB must
// be initialized before requests are served.
func New(cfg *config.Config, log *logrus.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.WithError(err).WithField("path", c.Path()).Error("unexpected error")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "unexpected server error",
			})
		},
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(logger.Middleware(log, auth.CtxUserIDKey))

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api/v1")

	// Public auth
	api.Post("/auth/register", auth.RegisterHandler())
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/me", auth.MeHandler())

	// Categories
	protected.Get("/categories", expense.ListCategoriesHandler())
	protected.Post("/categories", expense.CreateCategoryHandler())
	protected.Get("/categories/:id", expense.GetCategoryHandler())
	protected.Put("/categories/:id", expense.UpdateCategoryHandler())
	protected.Delete("/categories/:id", expense.DeleteCategoryHandler())

	// Expenses
	protected.Get("/expenses", expense.ListExpensesHandler())
	protected.Post("/expenses", expense.CreateExpenseHandler())
	protected.Get("/expenses/:id", expense.GetExpenseHandler())
	protected.Put("/expenses/:id", expense.UpdateExpenseHandler())
	protected.Delete("/expenses/:id", expense.DeleteExpenseHandler())

	// Installment purchases
	protected.Get("/installments", expense.ListInstallmentsHandler())
	protected.Post("/installments", expense.CreateInstallmentHandler())
	protected.Get("/installments/:id", expense.GetInstallmentHandler())
	protected.Put("/installments/:id", expense.UpdateInstallmentHandler())
	protected.Delete("/installments/:id", expense.DeleteInstallmentHandler())

	// Recurring expenses and their monthly payments
	protected.Get("/recurring", expense.ListRecurringHandler())
	protected.Post("/recurring", expense.CreateRecurringHandler())
	protected.Get("/recurring/:id", expense.GetRecurringHandler())
	protected.Put("/recurring/:id", expense.UpdateRecurringHandler())
	protected.Delete("/recurring/:id", expense.DeleteRecurringHandler())

	protected.Get("/paid-recurring", expense.ListPaidRecurringHandler())
	protected.Post("/paid-recurring", expense.CreatePaidRecurringHandler())
	protected.Get("/paid-recurring/:id", expense.GetPaidRecurringHandler())
	protected.Delete("/paid-recurring/:id", expense.DeletePaidRecurringHandler())

	// Monthly view
	protected.Get("/monthly-view", expense.MonthlyViewHandler())
	protected.Get("/monthly-view/summary", expense.MonthlySummaryHandler())
	protected.Get("/monthly-view/export", expense.MonthlyExportHandler(cfg.Currency))

	// Assets
	protected.Get("/assets", asset.ListAssetsHandler())
	protected.Post("/assets", asset.CreateAssetHandler())
	protected.Get("/assets/:id", asset.GetAssetHandler())
	protected.Put("/assets/:id", asset.UpdateAssetHandler())
	protected.Delete("/assets/:id", asset.DeleteAssetHandler())

	// Dividends
	protected.Get("/cards-dividends", dividend.ListCardsHandler())
	protected.Post("/cards-dividends", dividend.CreateCardHandler())
	protected.Get("/cards-dividends/:id", dividend.GetCardHandler())
	protected.Put("/cards-dividends/:id", dividend.UpdateCardHandler())
	protected.Delete("/cards-dividends/:id", dividend.DeleteCardHandler())
	protected.Get("/itens-dividends", dividend.ListItemsHandler())
	protected.Post("/itens-dividends", dividend.CreateItemHandler())
	protected.Get("/itens-dividends/:id", dividend.GetItemHandler())
	protected.Put("/itens-dividends/:id", dividend.UpdateItemHandler())
	protected.Delete("/itens-dividends/:id", dividend.DeleteItemHandler())

	// Investments
	protected.Get("/cards-investiments", investment.ListCardsHandler())
	protected.Post("/cards-investiments", investment.CreateCardHandler())
	protected.Get("/cards-investiments/:id", investment.GetCardHandler())
	protected.Put("/cards-investiments/:id", investment.UpdateCardHandler())
	protected.Delete("/cards-investiments/:id", investment.DeleteCardHandler())
	protected.Get("/itens-investiments", investment.ListItemsHandler())
	protected.Post("/itens-investiments", investment.CreateItemHandler())
	protected.Get("/itens-investiments/:id", investment.GetItemHandler())
	protected.Put("/itens-investiments/:id", investment.UpdateItemHandler())
	protected.Delete("/itens-investiments/:id", investment.DeleteItemHandler())

	// Dashboard
	protected.Get("/dashboard/monthly-chart", dashboard.MonthlyChartHandler())

	// Audit
	protected.Get("/audit-logs", audit.ListAuditLogsHandler())

	return app
}
