package main

import (
	"log"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	httpadp "los-backend/internal/adapter/http"
	losmw "los-backend/internal/adapter/middleware"
	"los-backend/internal/adapter/repository/mysql"
	"los-backend/internal/adapter/verification"
	"los-backend/internal/config"
	"los-backend/internal/domain/application"
	"los-backend/internal/infrastructure/cache"
	"los-backend/internal/infrastructure/db"
	"los-backend/internal/usecase/workflow"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	gdb, err := db.OpenGorm(cfg.MySQLDSN())
	if err != nil {
		log.Fatal(err)
	}
	if err := gdb.AutoMigrate(&application.Application{}, &application.PhaseRecord{}); err != nil {
		log.Fatal(err)
	}

	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err != nil {
		log.Fatal(err)
	}

	apps := mysql.NewApplicationRepository(gdb)
	tx := mysql.NewGormUoW(gdb)
	sim := verification.NewSimulator()
	uc := workflow.NewUsecase(apps, tx, sim, sim, sim)

	h := httpadp.NewHandler()
	wh := httpadp.NewWorkflowHandler(uc)

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(echomw.Logger(), echomw.Recover())
	e.Use(losmw.IdempotencyMiddleware(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second))

	// routes
	e.GET("/health", h.Health)

	api := e.Group("/api")
	api.POST("/pre-qualification/process", wh.PreQualify)
	api.POST("/loan-application/:application_number", wh.SubmitApplication)
	api.POST("/application-processing/:application_number", wh.RunPhase(application.PhaseApplicationProcessing))
	api.POST("/underwriting/:application_number", wh.RunPhase(application.PhaseUnderwriting))
	api.POST("/credit-decision/:application_number", wh.DecideCredit)
	api.POST("/quality-check/:application_number", wh.RunPhase(application.PhaseQualityCheck))
	api.POST("/loan-funding/:application_number", wh.Fund)

	api.GET("/pre-qualification/status/:application_number", wh.PhaseStatus(application.PhasePreQualification))
	api.GET("/loan-application/status/:application_number", wh.PhaseStatus(application.PhaseLoanApplication))
	api.GET("/application-processing/status/:application_number", wh.PhaseStatus(application.PhaseApplicationProcessing))
	api.GET("/underwriting/status/:application_number", wh.PhaseStatus(application.PhaseUnderwriting))
	api.GET("/credit-decision/status/:application_number", wh.PhaseStatus(application.PhaseCreditDecision))
	api.GET("/quality-check/status/:application_number", wh.PhaseStatus(application.PhaseQualityCheck))
	api.GET("/loan-funding/status/:application_number", wh.PhaseStatus(application.PhaseLoanFunding))

	addr := ":" + cfg.AppPort
	log.Printf("listening on %s", addr)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
