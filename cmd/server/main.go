package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"northsouth_agency/internal/handlers"
	authMiddleware "northsouth_agency/internal/middleware"
	"northsouth_agency/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Initialize Firebase
	credPath := os.Getenv("FIREBASE_CREDENTIALS_PATH")
	if credPath == "" {
		credPath = "./firebase-service-account.json"
	}

	authClient, err := services.InitFirebase(credPath)
	if err != nil {
		log.Printf("Warning: Firebase initialization failed: %v", err)
		log.Println("Auth features will not work until valid credentials are provided")
	}

	// Initialize Database
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	db, err := services.InitDB(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := services.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Initialize Redis (optional: reads fall back to the database without it)
	var cache *services.RedisCache
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cache, err = services.NewRedisCache(redisURL)
		if err != nil {
			log.Printf("Warning: Redis initialization failed: %v", err)
			cache = nil
		}
	} else {
		log.Println("Warning: REDIS_URL not set, caching disabled")
	}

	// Services
	commissionService := services.NewCommissionService(db, cache)
	reconcileService := services.NewReconcileService(db, cache, services.RRuleSchedule{})

	// Create Echo instance
	e := echo.New()
	e.HTTPErrorHandler = authMiddleware.CustomErrorHandler

	// Middleware
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	// Initialize handlers
	advisorHandler := handlers.NewAdvisorHandler(db, cache)
	customerHandler := handlers.NewCustomerHandler(db)
	policyHandler := handlers.NewPolicyHandler(db, cache, reconcileService)
	commissionHandler := handlers.NewCommissionHandler(commissionService)
	dashboardHandler := handlers.NewDashboardHandler(db, cache)

	// All API routes require authentication
	api := e.Group("/api", authMiddleware.RequireAuth(authClient))

	// Advisor routes
	api.POST("/advisors", advisorHandler.CreateAdvisor)
	api.GET("/advisors", advisorHandler.ListAdvisors)
	api.GET("/advisors/:id", advisorHandler.GetAdvisor)
	api.GET("/advisors/:id/commissions", commissionHandler.ListAdvisorCommissions)
	api.GET("/advisors/:id/commissions/summary", commissionHandler.AdvisorSummary)

	// Customer routes
	api.POST("/customers", customerHandler.CreateCustomer)
	api.GET("/customers", customerHandler.ListCustomers)
	api.GET("/customers/:id", customerHandler.GetCustomer)

	// Policy routes
	api.POST("/policies", policyHandler.CreatePolicy)
	api.GET("/policies", policyHandler.ListPolicies)
	api.GET("/policies/:id", policyHandler.GetPolicy)
	api.POST("/policies/:id/reconcile", policyHandler.ReconcilePolicy)
	api.POST("/policies/reconcile", policyHandler.ReconcileAllPolicies)

	// Commission routes
	api.POST("/commissions/advances", commissionHandler.RegisterAdvance)
	api.POST("/commissions/distributions", commissionHandler.ApplyDistribution)
	api.POST("/commissions/refunds", commissionHandler.RegisterRefund)
	api.GET("/commissions", commissionHandler.ListCommissions)

	// Dashboard
	api.GET("/dashboard/summary", dashboardHandler.Summary)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	e.Logger.Fatal(e.Start(":" + port))
}
