package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/uni-adp-api/api/swagger"
	"github.com/noah-isme/uni-adp-api/internal/handler"
	"github.com/noah-isme/uni-adp-api/internal/middleware"
	"github.com/noah-isme/uni-adp-api/internal/models"
	"github.com/noah-isme/uni-adp-api/internal/repository"
	"github.com/noah-isme/uni-adp-api/internal/service"
	"github.com/noah-isme/uni-adp-api/pkg/cache"
	"github.com/noah-isme/uni-adp-api/pkg/config"
	"github.com/noah-isme/uni-adp-api/pkg/database"
	"github.com/noah-isme/uni-adp-api/pkg/export"
	"github.com/noah-isme/uni-adp-api/pkg/jobs"
	"github.com/noah-isme/uni-adp-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/uni-adp-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/uni-adp-api/pkg/middleware/requestid"
	"github.com/noah-isme/uni-adp-api/pkg/storage"
)

// @title University Academic Data Platform API
// @version 1.0.0
// @description Academic rules engine: policy configuration, enrollment
// @description eligibility, grade lifecycle, standings and graduation audits.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, computed caches disabled", zap.Error(err))
		redisClient = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()
	metrics := service.NewMetricsService()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	levelRepo := repository.NewLevelRepository(db)
	programRepo := repository.NewProgramRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	offeringRepo := repository.NewOfferingRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	policyRepo := repository.NewPolicyRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	reportRepo := repository.NewReportRepository(db)

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Analytics.CacheTTL, logr, cfg.Analytics.Enabled)
	}

	// Services.
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	sessionSvc := service.NewSessionService(sessionRepo, validate, logr)
	levelSvc := service.NewLevelService(levelRepo, validate, logr)
	programSvc := service.NewProgramService(programRepo, courseRepo, levelRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, validate, logr)
	offeringSvc := service.NewOfferingService(offeringRepo, courseRepo, sessionRepo, enrollmentRepo, validate, logr)
	policySvc := service.NewPolicyService(policyRepo, validate, logr)
	standingSvc := service.NewStandingService(gradeRepo, studentRepo, studentRepo, policySvc, cacheSvc, metrics, validate, logr)
	standingSvc.SetCacheTTL(cfg.Academic.StandingCacheTTL)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, offeringRepo, courseRepo, gradeRepo, policySvc, validate, logr)
	enrollmentSvc.SetDefaultStrict(cfg.Academic.StrictPrerequisites)
	gradeSvc := service.NewGradeService(gradeRepo, enrollmentRepo, policySvc, userRepo, standingSvc, validate, logr)
	transcriptSvc := service.NewTranscriptService(studentRepo, gradeRepo, policySvc, logr)
	graduationSvc := service.NewGraduationService(studentRepo, programRepo, policyRepo, gradeRepo, studentRepo, policySvc, metrics, logr)
	studentSvc := service.NewStudentService(studentRepo, levelRepo, standingSvc, userRepo, validate, logr)
	analyticsSvc := service.NewAnalyticsService(analyticsRepo, standingSvc, cacheSvc, metrics, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	sessionHandler := handler.NewSessionHandler(sessionSvc)
	levelHandler := handler.NewLevelHandler(levelSvc)
	programHandler := handler.NewProgramHandler(programSvc, graduationSvc, standingSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	offeringHandler := handler.NewOfferingHandler(offeringSvc)
	policyHandler := handler.NewPolicyHandler(policySvc)
	studentHandler := handler.NewStudentHandler(studentSvc, standingSvc, transcriptSvc, graduationSvc, enrollmentSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	gradeHandler := handler.NewGradeHandler(gradeSvc)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsSvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)

		authed := auth.Group("", middleware.JWT(authSvc))
		authed.POST("/logout", authHandler.Logout)
		authed.POST("/change-password", authHandler.ChangePassword)
		authed.GET("/me", authHandler.Me)
	}

	protected := api.Group("", middleware.JWT(authSvc))

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleRegistry)
	staffOrLecturer := middleware.RequireRoles(models.RoleAdmin, models.RoleRegistry, models.RoleLecturer)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	staffOrSelf := middleware.RBAC(string(models.RoleAdmin), string(models.RoleRegistry), "SELF")

	users := protected.Group("/users", adminOnly)
	{
		users.GET("", userHandler.List)
		users.GET("/:id", userHandler.Get)
		users.POST("", userHandler.Create)
		users.PUT("/:id", userHandler.Update)
		users.DELETE("/:id", userHandler.Delete)
	}

	sessions := protected.Group("/sessions")
	{
		sessions.GET("", sessionHandler.List)
		sessions.GET("/current", sessionHandler.GetCurrent)
		sessions.GET("/:id", sessionHandler.Get)
		sessions.POST("", staff, sessionHandler.Create)
		sessions.PUT("/:id", staff, sessionHandler.Update)
		sessions.POST("/:id/current", staff, sessionHandler.SetCurrent)
		sessions.DELETE("/:id", staff, sessionHandler.Delete)
	}

	levels := protected.Group("/levels")
	{
		levels.GET("", levelHandler.List)
		levels.GET("/:id", levelHandler.Get)
		levels.POST("", staff, levelHandler.Create)
		levels.PUT("/:id", staff, levelHandler.Update)
		levels.DELETE("/:id", staff, levelHandler.Delete)
	}

	programs := protected.Group("/programs")
	{
		programs.GET("", programHandler.List)
		programs.GET("/:id", programHandler.Get)
		programs.POST("", staff, programHandler.Create)
		programs.PUT("/:id", staff, programHandler.Update)
		programs.DELETE("/:id", staff, programHandler.Delete)
		programs.GET("/:id/curriculum", programHandler.ListCurriculum)
		programs.POST("/:id/curriculum", staff, programHandler.AddCurriculumCourse)
		programs.DELETE("/:id/curriculum/:courseId", staff, programHandler.RemoveCurriculumCourse)
		programs.GET("/:id/graduation-audit", staff, programHandler.CohortAudit)
		programs.POST("/:id/recompute-standings", staff, programHandler.RecomputeStandings)
	}

	courses := protected.Group("/courses")
	{
		courses.GET("", courseHandler.List)
		courses.GET("/:id", courseHandler.Get)
		courses.POST("", staff, courseHandler.Create)
		courses.PUT("/:id", staff, courseHandler.Update)
		courses.DELETE("/:id", staff, courseHandler.Delete)
		courses.GET("/:id/prerequisites", courseHandler.ListPrerequisites)
		courses.POST("/:id/prerequisites", staff, courseHandler.AddPrerequisite)
		courses.DELETE("/:id/prerequisites/:requiredCourseId", staff, courseHandler.RemovePrerequisite)
	}

	offerings := protected.Group("/offerings")
	{
		offerings.GET("", offeringHandler.List)
		offerings.GET("/:id", offeringHandler.Get)
		offerings.POST("", staff, offeringHandler.Create)
		offerings.PUT("/:id", staff, offeringHandler.Update)
		offerings.POST("/:id/activate", staff, offeringHandler.Activate)
		offerings.POST("/:id/deactivate", staff, offeringHandler.Deactivate)
		offerings.DELETE("/:id", staff, offeringHandler.Delete)
	}

	policies := protected.Group("/policies")
	{
		policies.GET("/scale", policyHandler.GetScale)
		policies.PUT("/scale", adminOnly, middleware.Audit(userRepo, models.AuditActionPolicyChange, "grading_scale"), policyHandler.UpdateScale)
		policies.GET("/academic", policyHandler.GetPolicy)
		policies.PUT("/academic", adminOnly, middleware.Audit(userRepo, models.AuditActionPolicyChange, "academic_policy"), policyHandler.UpdatePolicy)
		policies.GET("/classification", policyHandler.GetClassificationBands)
		policies.PUT("/classification", adminOnly, middleware.Audit(userRepo, models.AuditActionPolicyChange, "classification_bands"), policyHandler.UpdateClassificationBands)
	}

	students := protected.Group("/students")
	{
		students.GET("", staffOrLecturer, studentHandler.List)
		students.GET("/:id", staffOrSelf, studentHandler.Get)
		students.POST("", staff, studentHandler.Create)
		students.PUT("/:id", staff, studentHandler.Update)
		students.PATCH("/:id/status", staff, studentHandler.ChangeStatus)
		students.POST("/:id/promote", staff, studentHandler.Promote)
		students.DELETE("/:id", staff, studentHandler.Delete)
		students.GET("/:id/standing", staffOrSelf, studentHandler.Standing)
		students.GET("/:id/standing/:sessionId", staffOrSelf, studentHandler.SessionGPA)
		students.GET("/:id/transcript", staffOrSelf, studentHandler.Transcript)
		students.GET("/:id/graduation-audit", staffOrSelf, studentHandler.GraduationAudit)
		students.GET("/:id/enrollments", staffOrSelf, studentHandler.Enrollments)
	}

	enrollments := protected.Group("/enrollments")
	{
		enrollments.GET("", staffOrLecturer, enrollmentHandler.List)
		enrollments.GET("/:id", staffOrLecturer, enrollmentHandler.Get)
		enrollments.POST("/check", enrollmentHandler.Check)
		enrollments.POST("", staff, enrollmentHandler.Create)
		enrollments.POST("/bulk", staff, enrollmentHandler.BulkCreate)
		enrollments.DELETE("/:id", staff, enrollmentHandler.Delete)
	}

	grades := protected.Group("/grades")
	{
		grades.GET("", staffOrLecturer, gradeHandler.List)
		grades.GET("/:id", staffOrLecturer, gradeHandler.Get)
		grades.POST("/scores", staffOrLecturer, gradeHandler.RecordScores)
		grades.POST("/:id/submit", staffOrLecturer, gradeHandler.Submit)
		grades.POST("/:id/approve", staff, middleware.Audit(userRepo, models.AuditActionGradeApprove, "grades"), gradeHandler.Approve)
		grades.POST("/:id/reject", staff, middleware.Audit(userRepo, models.AuditActionGradeReject, "grades"), gradeHandler.Reject)
		grades.POST("/:id/reopen", staff, middleware.Audit(userRepo, models.AuditActionGradeReopen, "grades"), gradeHandler.Reopen)
		grades.POST("/bulk-submit", staffOrLecturer, gradeHandler.BulkSubmit)
		grades.POST("/bulk-approve", staff, gradeHandler.BulkApprove)
	}

	analytics := protected.Group("/analytics", staffOrLecturer)
	{
		analytics.GET("/grade-distribution", analyticsHandler.GradeDistribution)
		analytics.GET("/repeated-courses", analyticsHandler.RepeatedCourses)
		analytics.GET("/enrollment-stats", analyticsHandler.EnrollmentStats)
		analytics.GET("/at-risk", staff, analyticsHandler.AtRisk)
		analytics.GET("/system-metrics", staff, analyticsHandler.SystemMetrics)
	}

	if cfg.Reports.Enabled {
		fileStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Fatal("failed to prepare export storage", zap.Error(err))
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		exportSvc := service.NewExportService(transcriptSvc, gradeRepo, graduationSvc, fileStore, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Reports.SignedURLTTL,
		}, logr, export.NewCSVExporter(), export.NewPDFExporter())

		worker := service.NewReportWorker(reportRepo, exportSvc, metrics, cfg.Reports.WorkerRetries, logr)
		queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()

		reportSvc := service.NewReportService(reportRepo, offeringRepo, queue, exportSvc, logr, service.ReportServiceConfig{
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: cfg.Reports.CleanupInterval,
			MaxRetries:      cfg.Reports.WorkerRetries,
		})
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)

		reportHandler := handler.NewReportHandler(reportSvc)
		reports := protected.Group("/reports")
		{
			reports.POST("/generate", reportHandler.Generate)
			reports.GET("/:id/status", reportHandler.Status)
		}
		api.GET("/export/:token", middleware.OptionalJWT(authSvc), reportHandler.Download)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
