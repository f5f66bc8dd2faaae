package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/openacademia/research-track-api/api/swagger"
	"github.com/openacademia/research-track-api/internal/handler"
	"github.com/openacademia/research-track-api/internal/middleware"
	"github.com/openacademia/research-track-api/internal/models"
	"github.com/openacademia/research-track-api/internal/repository"
	"github.com/openacademia/research-track-api/internal/service"
	"github.com/openacademia/research-track-api/pkg/cache"
	"github.com/openacademia/research-track-api/pkg/config"
	"github.com/openacademia/research-track-api/pkg/database"
	"github.com/openacademia/research-track-api/pkg/jobs"
	"github.com/openacademia/research-track-api/pkg/logger"
	"github.com/openacademia/research-track-api/pkg/mailer"
	corsmiddleware "github.com/openacademia/research-track-api/pkg/middleware/cors"
	reqidmiddleware "github.com/openacademia/research-track-api/pkg/middleware/requestid"
	"github.com/openacademia/research-track-api/pkg/storage"
)

// @title Research Track API
// @version 1.0.0
// @description Graduate research progress tracking for multi-school universities
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, dashboard caching disabled", "error", err)
		redisClient = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	definitionRepo := repository.NewStatusDefinitionRepository(db)
	recordRepo := repository.NewStatusRecordRepository(db)
	proposalRepo := repository.NewProposalRepository(db)
	reviewerRepo := repository.NewReviewerRepository(db)
	panelistRepo := repository.NewPanelistRepository(db)
	examinerRepo := repository.NewExaminerRepository(db)
	defenseRepo := repository.NewDefenseRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	bookRepo := repository.NewBookRepository(db)
	reportRepo := repository.NewReportRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "research-track-api",
	})

	catalogSvc := service.NewCatalogService(definitionRepo, validate, logr)
	timelineSvc := service.NewTimelineService(recordRepo, logr)
	schoolSvc := service.NewSchoolService(schoolRepo, validate, logr)
	rosterSvc := service.NewRosterService(reviewerRepo, panelistRepo, examinerRepo, schoolRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, schoolRepo, userRepo, proposalRepo, gradeRepo, defenseRepo, bookRepo, examinerRepo, recordRepo, validate, logr)
	proposalSvc := service.NewProposalService(proposalRepo, gradeRepo, defenseRepo, recordRepo, logr)
	bookSvc := service.NewBookService(bookRepo, examinerRepo, recordRepo, logr)

	var notificationSvc *service.NotificationService
	if cfg.Notifications.Enabled {
		mailQueue := jobs.NewQueue("stage-mail", func(ctx context.Context, job jobs.Job) error {
			return notificationSvc.HandleJob(ctx, job)
		}, jobs.QueueConfig{
			Workers:    cfg.Notifications.WorkerCount,
			BufferSize: cfg.Notifications.QueueSize,
			Logger:     logr,
		})
		notificationSvc = service.NewNotificationService(studentRepo, userRepo, mailer.New(cfg.Mail), mailQueue, logr)
		mailQueue.Start(ctx)
		defer mailQueue.Stop()
	}

	workflowSvc := service.NewWorkflowService(
		catalogSvc, recordRepo, studentRepo, proposalRepo, defenseRepo,
		gradeRepo, bookRepo, examinerRepo, notificationSvc, validate, logr,
	)
	workflowSvc.SetMetrics(metricsSvc)

	files, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare report storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	var reportSvc *service.ReportService
	exportQueue := jobs.NewQueue("delay-report-export", func(ctx context.Context, job jobs.Job) error {
		return reportSvc.HandleJob(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	reportSvc = service.NewReportService(reportRepo, reportRepo, studentRepo, exportQueue, files, signer, logr)
	if cfg.Reports.Enabled {
		exportQueue.Start(ctx)
		defer exportQueue.Stop()
		reportSvc.StartCleanup(ctx, cfg.Reports.CleanupInterval, cfg.Reports.SignedURLTTL)
	}

	var dashboardSvc *service.DashboardService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
		dashboardSvc = service.NewDashboardService(dashboardRepo, cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr)
	} else {
		dashboardSvc = service.NewDashboardService(dashboardRepo, nil, metricsSvc, cfg.Dashboard.CacheTTL, logr)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	statusHandler := handler.NewStatusHandler(catalogSvc, timelineSvc)
	schoolHandler := handler.NewSchoolHandler(schoolSvc)
	rosterHandler := handler.NewRosterHandler(rosterSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	workflowHandler := handler.NewWorkflowHandler(workflowSvc)
	proposalHandler := handler.NewProposalHandler(proposalSvc)
	bookHandler := handler.NewBookHandler(bookSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
	}

	// Signed download links carry their own authorization.
	api.GET("/reports/downloads/:token", reportHandler.Download)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	{
		protected.POST("/auth/logout", authHandler.Logout)
		protected.POST("/auth/change-password", authHandler.ChangePassword)
		protected.GET("/auth/me", authHandler.Me)

		protected.GET("/statuses", statusHandler.ListDefinitions)
		protected.GET("/timelines/:kind/:id/history", statusHandler.History)
		protected.GET("/timelines/:kind/:id/current", statusHandler.Current)

		protected.GET("/schools", schoolHandler.ListSchools)
		protected.GET("/campuses", schoolHandler.ListCampuses)

		protected.GET("/students", studentHandler.List)
		protected.GET("/students/:id", studentHandler.Get)
		protected.GET("/students/:id/progress", studentHandler.Progress)
		protected.GET("/students/:id/proposals", proposalHandler.ListByStudent)
		protected.GET("/students/:id/books", bookHandler.ListByStudent)
		protected.GET("/students/:id/field-letter.pdf", reportHandler.FieldLetter)

		protected.GET("/proposals/:id", proposalHandler.Get)
		protected.GET("/proposals/:id/history", proposalHandler.History)
		protected.GET("/books/:id", bookHandler.Get)
		protected.GET("/books/:id/history", bookHandler.History)

		protected.GET("/reviewers", rosterHandler.ListReviewers)
		protected.GET("/panelists", rosterHandler.ListPanelists)
		protected.GET("/examiners", rosterHandler.ListExaminers)

		protected.GET("/reports/delays", reportHandler.Delays)
	}

	staff := protected.Group("")
	staff.Use(middleware.RequireRoles(models.RoleSuperAdmin, models.RoleResearchAdmin, models.RoleSchoolAdmin))
	{
		staff.POST("/students", studentHandler.Create)
		staff.PUT("/students/:id", studentHandler.Update)
		staff.DELETE("/students/:id", studentHandler.Delete)
		staff.PUT("/students/:id/supervisor",
			middleware.Audit(userRepo, models.AuditActionSupervisorReassign, "student"),
			studentHandler.AssignSupervisor)

		staff.POST("/students/:id/proposals",
			middleware.Audit(userRepo, models.AuditActionProposalSubmit, "proposal"),
			workflowHandler.SubmitProposal)
		staff.PUT("/proposals/:id/reviewers", workflowHandler.AssignReviewers)
		staff.POST("/proposals/:id/review-marks",
			middleware.Audit(userRepo, models.AuditActionReviewerMark, "proposal"),
			workflowHandler.RecordReviewerMark)
		staff.POST("/proposals/:id/defenses",
			middleware.Audit(userRepo, models.AuditActionDefenseSchedule, "proposal"),
			workflowHandler.ScheduleDefense)
		staff.POST("/proposals/:id/defense-verdict",
			middleware.Audit(userRepo, models.AuditActionDefenseVerdict, "proposal"),
			workflowHandler.RecordDefenseVerdict)
		staff.POST("/proposals/:id/defense-marks", workflowHandler.RecordPanelistMark)
		staff.POST("/students/:id/field-letter", workflowHandler.SetFieldLetterDate)
		staff.POST("/students/:id/books", workflowHandler.SubmitBook)
		staff.PUT("/books/:id/examiners",
			middleware.Audit(userRepo, models.AuditActionExaminerAssign, "book"),
			workflowHandler.AssignExaminers)
		staff.POST("/books/:id/examiner-marks",
			middleware.Audit(userRepo, models.AuditActionExaminerMark, "book"),
			workflowHandler.RecordExaminerMark)

		if cfg.Reports.Enabled {
			staff.POST("/reports/exports", reportHandler.RequestExport)
			staff.GET("/reports/exports/:id", reportHandler.ExportStatus)
		}
	}

	admin := protected.Group("")
	admin.Use(middleware.RequireRoles(models.RoleSuperAdmin, models.RoleResearchAdmin))
	{
		admin.POST("/statuses", statusHandler.CreateDefinition)
		admin.PUT("/statuses/:id", statusHandler.UpdateDefinition)

		admin.POST("/schools", schoolHandler.CreateSchool)
		admin.POST("/campuses", schoolHandler.CreateCampus)

		admin.POST("/reviewers", rosterHandler.CreateReviewer)
		admin.PUT("/reviewers/:id", rosterHandler.UpdateReviewer)
		admin.DELETE("/reviewers/:id", rosterHandler.DeleteReviewer)
		admin.POST("/panelists", rosterHandler.CreatePanelist)
		admin.PUT("/panelists/:id", rosterHandler.UpdatePanelist)
		admin.DELETE("/panelists/:id", rosterHandler.DeletePanelist)
		admin.POST("/examiners", rosterHandler.CreateExaminer)
		admin.PUT("/examiners/:id", rosterHandler.UpdateExaminer)
		admin.DELETE("/examiners/:id", rosterHandler.DeleteExaminer)

		admin.GET("/metrics/snapshot", metricsHandler.Snapshot)
		if cfg.Dashboard.Enabled {
			admin.GET("/dashboard/reconciliation", dashboardHandler.Reconciliation)
		}
	}

	if cfg.Dashboard.Enabled {
		protected.GET("/dashboard/summary", dashboardHandler.Summary)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
