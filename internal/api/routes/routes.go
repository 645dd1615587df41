// Package routes handles the setup and configuration of API routes
package routes

import (
	"database/sql"

	_ "ballotbox/docs" // Import swagger docs
	"ballotbox/internal/api/handlers"
	"ballotbox/internal/api/middleware"
	"ballotbox/internal/auth"
	"ballotbox/internal/config"
	"ballotbox/internal/csvaudit"
	"ballotbox/internal/email"
	"ballotbox/internal/face"
	"ballotbox/internal/importer"
	"ballotbox/internal/ledger"
	"ballotbox/internal/registration"
	"ballotbox/internal/repository/postgres"
	"ballotbox/internal/voting"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupRoutes configures all API routes and their handlers
func SetupRoutes(cfg *config.Config, db *sql.DB, ledgerClient ledger.Client, faceMatcher face.Matcher, emailSender email.Sender) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.Compression(middleware.DefaultCompressionConfig()))

	healthHandler := handlers.NewHealthHandler(db)

	// Swagger stays outside the rate limiter
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.Use(middleware.NewRateLimiter(cfg).Middleware())

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	electionRepo := postgres.NewElectionRepository(db)
	candidateRepo := postgres.NewCandidateRepository(db)
	voteRepo := postgres.NewVoteRepository(db)
	eligibleRepo := postgres.NewEligibleVoterRepository(db)
	resetRepo := postgres.NewPasswordResetRepository(db)
	auditRepo := postgres.NewAuditLogRepository(db)

	// Initialize services
	authService := auth.NewService(cfg)
	auditWriter := csvaudit.NewWriter(cfg.Storage.CSVAuditDir)
	registrationService := registration.NewService(
		db, userRepo, electionRepo, eligibleRepo, auditRepo,
		authService, emailSender, auditWriter, &cfg.Storage,
	)
	importerService := importer.NewService(db, electionRepo, eligibleRepo)
	votingService := voting.NewService(
		db, userRepo, electionRepo, candidateRepo, voteRepo, auditRepo,
		ledgerClient, &cfg.Ledger,
	)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(authService, userRepo)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(
		db, userRepo, resetRepo, auditRepo,
		authService, emailSender, faceMatcher, cfg,
	)
	voterAdminHandler := handlers.NewVoterAdminHandler(registrationService, importerService, auditRepo)
	voteHandler := handlers.NewVoteHandler(votingService)
	electionHandler := handlers.NewElectionHandler(electionRepo, voteRepo)
	candidateHandler := handlers.NewCandidateHandler(candidateRepo)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Health check (no authentication required)
		v1.GET("/health", healthHandler.Health)

		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/change-password", authHandler.ChangePassword)
		}

		// Admin voter management
		admin := v1.Group("/admin")
		admin.Use(authMiddleware.AuthRequired(), authMiddleware.AdminRequired())
		{
			admin.POST("/register-voter", voterAdminHandler.RegisterVoter)
			admin.POST("/delete-voter", voterAdminHandler.DeleteVoter)
			admin.POST("/delete-all-voters", voterAdminHandler.DeleteAllVoters)
			admin.GET("/export-voters-csv", voterAdminHandler.ExportVotersCSV)
			admin.POST("/process-voter-list", voterAdminHandler.ProcessVoterList)
		}

		// Vote routes (requires authentication)
		votes := v1.Group("/votes")
		votes.Use(authMiddleware.AuthRequired())
		{
			votes.POST("", voteHandler.Cast)
			votes.GET("/status/:election_id", voteHandler.Status)
		}

		// Election routes
		elections := v1.Group("/elections")
		{
			elections.Use(authMiddleware.AuthRequired())
			elections.GET("", electionHandler.List)
			elections.GET("/:id", electionHandler.Get)
			elections.GET("/:id/results", electionHandler.Results)
			elections.GET("/:id/candidates", candidateHandler.List)

			// Admin-only routes
			adminElections := elections.Group("")
			adminElections.Use(authMiddleware.AdminRequired())
			{
				adminElections.POST("", electionHandler.Create)
				adminElections.PUT("/:id", electionHandler.Update)
				adminElections.DELETE("/:id", electionHandler.Delete)
				adminElections.POST("/:id/candidates", candidateHandler.Create)
				adminElections.DELETE("/:id/candidates/:candidate_id", candidateHandler.Delete)
			}
		}
	}

	return r
}
