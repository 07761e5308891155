package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "projectboard/docs" // swagger docs
	"projectboard/internal/bootstrap"
	"projectboard/internal/config"
	"projectboard/internal/database"
	"projectboard/internal/featureflags"
	"projectboard/internal/middleware"
	"projectboard/internal/models"
	"projectboard/internal/notifications"
	"projectboard/internal/repository"
	"projectboard/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	store          *repository.Store
	notifier       *notifications.Notifier
	featureFlags   *featureflags.Manager
	owners         *service.OwnerRegistry
	quotas         *middleware.Limiter

	core       *service.Core
	boards     *service.BoardService
	columns    *service.ColumnService
	cards      *service.CardService
	bulk       *service.BulkService
	comments   *service.CommentService
	checklists *service.ChecklistService
	labels     *service.LabelService
	search     *service.SearchService
	users      *service.UserService
	tokens     *service.TokenAuthority
	importer   *service.TrelloImporter
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	rt, err := bootstrap.Start(context.Background(), cfg, bootstrap.Options{ApplySchema: true, SeedLabels: true})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, rt.DB, rt.Redis)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	store := repository.NewStore(db)
	notifier := notifications.NewNotifier(redisClient)

	core := service.NewCore(store, notifier)
	core.Flags = featureflags.NewManager(cfg.FeatureFlags)

	owners := service.NewOwnerRegistry()
	owners.Register("user", service.UserOwner(store.Users))

	labels := service.NewLabelService(core)
	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("projectboard-api"),
		store:          store,
		notifier:       notifier,
		featureFlags:   core.Flags,
		owners:         owners,
		quotas:         middleware.NewLimiter(redisClient, cfg.Env),
		core:           core,
		boards:         service.NewBoardService(core, service.NewBoardAggregator(core), labels),
		columns:        service.NewColumnService(core),
		cards:          service.NewCardService(core),
		bulk:           service.NewBulkService(core, cfg.BulkUpdateMaxItems),
		comments:       service.NewCommentService(core, redisClient, cfg.MentionDebounce()),
		checklists:     service.NewChecklistService(core),
		labels:         labels,
		search:         service.NewSearchService(core),
		users:          service.NewUserService(store.Users, store.Users),
		tokens:         service.NewTokenAuthority(store, redisClient, cfg.TokenDisplayTTL()),
		importer:       service.NewTrelloImporter(core, redisClient, cfg.ImportTimeout()),
	}
	return server, nil
}

// Per-action budgets. Strict quotas fail closed when Redis is down.
var (
	loginQuota   = middleware.Quota{Name: "login", Limit: 10, Window: time.Minute, Strict: true}
	commentQuota = middleware.Quota{Name: "create_comment", Limit: 30, Window: time.Minute}
	searchQuota  = middleware.Quota{Name: "search", Limit: 30, Window: time.Minute}
	tokenQuota   = middleware.Quota{Name: "issue_token", Limit: 10, Window: 10 * time.Minute, Strict: true}
	importQuota  = middleware.Quota{Name: "import_trello", Limit: 5, Window: 10 * time.Minute}
)

func (s *Server) apiQuota() middleware.Quota {
	return middleware.Quota{Name: "api_v1", Limit: s.config.APIRateLimit, Window: time.Minute}
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Get("/tokens/display/:key", s.DisplayToken)

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)
	if s.devLoginEnabled() {
		api.Post("/auth/login", s.quotas.Handler(loginQuota), s.DevLogin)
	}

	// External API. Registered before the session group so /api/v1 never hits session auth.
	s.setupExternalRoutes(api.Group("/v1", s.APIEnabled(), s.TokenRequired(),
		s.quotas.Handler(s.apiQuota())))

	protected := api.Group("", middleware.SessionRequired(s.config.JWTSecret))

	boards := protected.Group("/boards")
	boards.Get("/", s.ListBoards)
	boards.Post("/", s.CreateBoard)
	// Define specific /:id/:resource routes BEFORE generic /:id route
	boards.Get("/:id/archived", s.GetArchived)
	boards.Get("/:id/template", s.ExportBoardTemplate)
	boards.Get("/:id/members", s.ListMembers)
	boards.Post("/:id/members", s.AddMember)
	boards.Put("/:id/members/:userId", s.UpdateMember)
	boards.Delete("/:id/members/:userId", s.RemoveMember)
	boards.Post("/:id/columns", s.CreateColumn)
	boards.Post("/:id/cards/bulk", s.BulkCreateCards)
	boards.Patch("/:id/cards/bulk-update", s.BulkUpdateCards)
	boards.Get("/:id", s.GetBoard)
	boards.Put("/:id", s.UpdateBoard)
	boards.Delete("/:id", s.DeleteBoard)

	columns := protected.Group("/columns")
	columns.Put("/:id/reorder", s.ReorderColumn)
	columns.Post("/:id/archive-cards", s.ArchiveColumnCards)
	columns.Put("/:id/restore", s.RestoreColumn)
	columns.Delete("/:id/force", s.PurgeColumn)
	columns.Post("/:id/cards", s.CreateCard)
	columns.Put("/:id", s.UpdateColumn)
	columns.Delete("/:id", s.ArchiveColumn)

	cards := protected.Group("/cards")
	cards.Put("/:id/move", s.MoveCard)
	cards.Post("/:id/duplicate", s.DuplicateCard)
	cards.Put("/:id/restore", s.RestoreCard)
	cards.Delete("/:id/force", s.PurgeCard)
	cards.Put("/:id/cover", s.SetCardCover)
	cards.Delete("/:id/cover", s.RemoveCardCover)
	cards.Post("/:id/attachments", s.AddAttachment)
	cards.Delete("/:id/attachments/:attachmentId", s.RemoveAttachment)
	cards.Post("/:id/labels", s.SyncCardLabels)
	cards.Post("/:id/assignees", s.SyncCardAssignees)
	cards.Get("/:id/activities", s.ListCardActivities)
	cards.Get("/:id/appearances", s.ListAppearances)
	cards.Post("/:id/mirror", s.AddMirror)
	cards.Delete("/:id/mirror/:columnId", s.RemoveMirror)
	cards.Get("/:id/search-columns-for-mirroring", s.SearchMirrorCandidates)
	cards.Get("/:id/comments", s.ListComments)
	cards.Post("/:id/comments", s.quotas.Handler(commentQuota), s.CreateComment)
	cards.Get("/:id/checklists", s.ListChecklists)
	cards.Post("/:id/checklists", s.CreateChecklist)
	cards.Get("/:id", s.GetCard)
	cards.Put("/:id", s.UpdateCard)
	cards.Delete("/:id", s.ArchiveCard)

	comments := protected.Group("/comments")
	comments.Post("/:id/reactions", s.ToggleReaction)
	comments.Put("/:id", s.UpdateComment)
	comments.Delete("/:id", s.DeleteComment)

	checklists := protected.Group("/checklists")
	checklists.Post("/:id/items", s.AddChecklistItem)
	checklists.Put("/:id", s.RenameChecklist)
	checklists.Delete("/:id", s.DeleteChecklist)

	items := protected.Group("/checklist-items")
	items.Put("/:id", s.UpdateChecklistItem)
	items.Delete("/:id", s.DeleteChecklistItem)

	labels := protected.Group("/labels")
	labels.Get("/", s.ListLabels)
	labels.Post("/", s.CreateLabel)
	labels.Put("/:id", s.UpdateLabel)
	labels.Delete("/:id", s.DeleteLabel)

	users := protected.Group("/users")
	users.Get("/search", s.SearchUsers)
	users.Get("/me", s.GetMyProfile)
	users.Get("/", s.GetAllUsers)
	users.Get("/:id", s.GetUser)

	protected.Get("/search", s.quotas.Handler(searchQuota), s.GlobalSearch)
	protected.Get("/feature-flags", s.GetFeatureFlags)
	protected.Get("/notifications", s.ListNotifications)
	protected.Delete("/notifications", s.ClearNotifications)

	tokens := protected.Group("/api-tokens")
	tokens.Get("/", s.ListTokens)
	tokens.Post("/", s.quotas.Handler(tokenQuota), s.IssueToken)
	tokens.Delete("/:id", s.RevokeToken)

	scoped := protected.Group("/tokens")
	scoped.Get("/", s.ListTokens)
	scoped.Post("/", s.quotas.Handler(tokenQuota), s.IssueScopedToken)
	scoped.Delete("/:id", s.RevokeToken)

	imports := protected.Group("/import-trello")
	imports.Post("/", s.quotas.Handler(importQuota), s.StartTrelloImport)
	imports.Get("/status/:runId", s.TrelloImportStatus)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// NewApp builds the Fiber app with middleware and routes.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Project Board API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start builds the app and listens on the configured port until Shutdown.
func (s *Server) Start() error {
	s.app = s.NewApp()
	middleware.Logger.Info("Board server listening", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests, waits for running imports, then closes the
// database and redis.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}

	s.importer.Wait()

	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}

	middleware.Logger.Info("Board server stopped", slog.Int("errors", len(errs)))
	return errors.Join(errs...)
}
