package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	apptevents "github.com/brgycare/brgycare-backend/internal/appointment/events"
	appthandler "github.com/brgycare/brgycare-backend/internal/appointment/handler"
	apptrepository "github.com/brgycare/brgycare-backend/internal/appointment/repository"
	apptservice "github.com/brgycare/brgycare-backend/internal/appointment/service"
	"github.com/brgycare/brgycare-backend/internal/patient/events"
	"github.com/brgycare/brgycare-backend/internal/patient/handler"
	"github.com/brgycare/brgycare-backend/internal/patient/repository"
	"github.com/brgycare/brgycare-backend/internal/patient/service"
	"github.com/brgycare/brgycare-backend/pkg/config"
	"github.com/brgycare/brgycare-backend/pkg/database"
	"github.com/brgycare/brgycare-backend/pkg/httputil"
	"github.com/brgycare/brgycare-backend/pkg/logger"
	"github.com/brgycare/brgycare-backend/pkg/messaging"
)

func main() {
	cfg, err := config.LoadWithValidation("patient-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("patient-service", cfg.Server.Environment)
	log.Info().Msg("starting Patient Service")

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	var rmq *messaging.RabbitMQ
	var patientPublisher *events.Publisher
	var apptPublisher *apptevents.Publisher
	if cfg.RabbitMQ.URL != "" {
		rmq, err = messaging.New(&cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		patientPublisher, err = events.NewPublisher(rmq, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create patient event publisher")
		}
		apptPublisher, err = apptevents.NewPublisher(rmq, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create appointment event publisher")
		}
	} else {
		log.Warn().Msg("no RabbitMQ URL configured, events disabled")
	}

	patientRepo := repository.NewPatientRepository(db)
	userRepo := repository.NewUserRepository(db)
	apptRepo := apptrepository.NewAppointmentRepository(db)

	patientService := service.NewPatientService(db, patientRepo, userRepo, patientPublisher, log)
	apptService := apptservice.NewAppointmentService(apptRepo, apptPublisher, log)

	patientHandler := handler.NewPatientHandler(patientService, log)
	apptHandler := appthandler.NewAppointmentHandler(apptService, log)

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Actor)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "X-Actor"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := map[string]interface{}{
			"status":   "healthy",
			"service":  "patient-service",
			"database": db.Health(r.Context()),
		}
		if rmq != nil {
			health["rabbitmq"] = rmq.Health()
		}
		httputil.JSON(w, http.StatusOK, health)
	})

	r.Mount("/api/v1/patients", patientHandler.Routes())
	r.Mount("/api/v1/appointments", apptHandler.Routes())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
