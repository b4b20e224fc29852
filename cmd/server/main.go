package main

import (
	"os"
	"strings"

	"lightmanager-backend/internal/auth"
	"lightmanager-backend/internal/clients"
	"lightmanager-backend/internal/config"
	"lightmanager-backend/internal/database"
	"lightmanager-backend/internal/logger"
	"lightmanager-backend/internal/models"
	"lightmanager-backend/internal/orders"
	"lightmanager-backend/internal/products"
	"lightmanager-backend/internal/users"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	if err := logger.Init(os.Getenv("ENV") == "development"); err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := config.Load()
	database.Init(cfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"message": e.Message,
				})
			}
			logger.L().Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Unexpected server error",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register", auth.RegisterHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Product catalog stays readable without a token
	api.Get("/products", products.ListProductsHandler())

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	// User management is admin only
	userRoutes := protected.Group("/users")
	userRoutes.Use(auth.RequireRole(models.RoleAdmin))
	userRoutes.Get("/", users.ListUsersHandler(cfg))
	userRoutes.Post("/import", users.ImportUsersHandler(cfg))
	userRoutes.Get("/export", users.ExportUsersHandler(cfg))
	userRoutes.Put("/:id", users.UpdateUserHandler(cfg))
	userRoutes.Delete("/:id", users.DeleteUserHandler())

	productRoutes := protected.Group("/products")
	productRoutes.Post("/", products.CreateProductHandler())
	productRoutes.Post("/import", products.ImportProductsHandler())
	productRoutes.Get("/export", products.ExportProductsHandler(cfg))
	productRoutes.Put("/:id", products.UpdateProductHandler())
	productRoutes.Delete("/:id", products.DeleteProductHandler())

	clientRoutes := protected.Group("/clients")
	clientRoutes.Get("/", clients.ListClientsHandler())
	clientRoutes.Post("/", clients.CreateClientHandler())
	clientRoutes.Post("/import", clients.ImportClientsHandler())
	clientRoutes.Get("/export", clients.ExportClientsHandler(cfg))
	clientRoutes.Put("/:id", clients.UpdateClientHandler())
	clientRoutes.Delete("/:id", clients.DeleteClientHandler())

	orderRoutes := protected.Group("/orders")
	orderRoutes.Get("/", orders.ListOrdersHandler())
	orderRoutes.Post("/", orders.CreateOrderHandler())
	orderRoutes.Post("/import", orders.ImportOrdersHandler())
	// /export must be registered before /:id or Fiber matches it as an id
	orderRoutes.Get("/export", orders.ExportOrdersHandler(cfg))
	orderRoutes.Get("/:id", orders.GetOrderHandler())
	orderRoutes.Put("/:id", orders.UpdateOrderHandler())
	orderRoutes.Delete("/:id", orders.DeleteOrderHandler())

	logger.L().Info("server listening", zap.String("port", cfg.HTTPPort))
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}
