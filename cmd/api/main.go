package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/assignment-portal-api/internal/handler"
	"github.com/noah-isme/assignment-portal-api/internal/middleware"
	"github.com/noah-isme/assignment-portal-api/internal/models"
	"github.com/noah-isme/assignment-portal-api/internal/repository"
	"github.com/noah-isme/assignment-portal-api/internal/service"
	"github.com/noah-isme/assignment-portal-api/pkg/cache"
	"github.com/noah-isme/assignment-portal-api/pkg/config"
	"github.com/noah-isme/assignment-portal-api/pkg/database"
	"github.com/noah-isme/assignment-portal-api/pkg/logger"
	"github.com/noah-isme/assignment-portal-api/pkg/mailer"
	"github.com/noah-isme/assignment-portal-api/pkg/media"
	corsmiddleware "github.com/noah-isme/assignment-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/assignment-portal-api/pkg/middleware/requestid"
)

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	mediaStore, err := media.NewCloudinary(cfg.Media)
	if err != nil {
		logr.Sugar().Fatalw("failed to init media store", "error", err)
	}

	var mail mailer.Mailer
	if cfg.Mail.SendGridKey != "" {
		mail = mailer.NewSendGrid(cfg.Mail)
	} else {
		logr.Warn("no sendgrid key configured, otp codes will be logged")
		mail = mailer.NewConsole(logr)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	rosterRepo := repository.NewRosterRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	otpRepo := repository.NewOTPRepository(redisClient)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, otpRepo, mail, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
		OTPTTL:      cfg.OTP.TTL,
		OTPLength:   cfg.OTP.Length,
	})
	assignmentSvc := service.NewAssignmentService(assignmentRepo, submissionRepo, mediaStore, validate, logr)
	submissionSvc := service.NewSubmissionService(assignmentRepo, submissionRepo, rosterRepo, mediaStore, logr)
	adminSvc := service.NewAdminService(userRepo, rosterRepo, submissionRepo, mediaStore, validate, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc, metricsSvc)
	submissionHandler := handler.NewSubmissionHandler(submissionSvc, metricsSvc)
	adminHandler := handler.NewAdminHandler(adminSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	r.POST("/signup", authHandler.Signup)
	r.POST("/otp-process", authHandler.IssueOTP)
	r.POST("/verify-otp", authHandler.VerifyOTP)
	r.POST("/login", authHandler.Login)
	r.GET("/verify", authHandler.Verify)

	auth := r.Group("/", middleware.JWT(authSvc))

	teacherOnly := middleware.RequireRoles(userRepo, models.RoleTeacher)
	auth.POST("/assignments", teacherOnly, assignmentHandler.Create)
	auth.GET("/assignments", teacherOnly, assignmentHandler.List)
	auth.PUT("/assignments/:id", teacherOnly, assignmentHandler.Update)
	auth.DELETE("/assignments/:id", teacherOnly, assignmentHandler.Delete)
	auth.GET("/assignments/:id/submissions", teacherOnly, assignmentHandler.ListSubmissions)
	auth.PUT("/submissions/:id/grade", teacherOnly, assignmentHandler.Grade)

	studentOnly := middleware.RequireRoles(userRepo, models.RoleStudent)
	auth.GET("/students/assignments", studentOnly, submissionHandler.ListAssignments)
	auth.POST("/students/assignments/:id/submit", studentOnly, submissionHandler.Submit)
	auth.PUT("/students/assignments/:id/edit", studentOnly, submissionHandler.Edit)

	adminOnly := middleware.RequireRoles(userRepo, models.RoleAdmin)
	auth.POST("/register-teacher", adminOnly, adminHandler.RegisterTeacher)
	auth.GET("/teachers", adminOnly, adminHandler.ListTeachers)
	auth.GET("/students", adminOnly, adminHandler.ListStudents)
	auth.DELETE("/teachers/:id", adminOnly, adminHandler.DeleteTeacher)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
