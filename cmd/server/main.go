package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskdeck/internal/config"
	"taskdeck/internal/handler"
	"taskdeck/internal/logging"
	"taskdeck/internal/middleware"
	"taskdeck/internal/repository"
	"taskdeck/internal/service"
	"taskdeck/internal/websocket"
	"taskdeck/pkg/response"

	_ "github.com/go-kivik/kivik/v4/couchdb"

	"github.com/go-kivik/kivik/v4"
	"github.com/gorilla/mux"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logFile := logging.Setup(logging.Options{
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	defer logFile.Close()

	couchURL := fmt.Sprintf("http://%s:%s@%s:%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
	)

	client, err := kivik.New("couch", couchURL)
	if err != nil {
		log.Fatalf("Failed to connect to CouchDB: %v", err)
	}

	exists, err := client.DBExists(context.Background(), cfg.Database.Name)
	if err != nil {
		log.Fatalf("Failed to check database existence: %v", err)
	}

	if !exists {
		if err := client.CreateDB(context.Background(), cfg.Database.Name); err != nil {
			log.Fatalf("Failed to create database: %v", err)
		}
		log.Printf("Created database: %s", cfg.Database.Name)
	}

	userRepo := repository.NewUserRepository(client, cfg.Database.Name)
	taskRepo := repository.NewTaskRepository(client, cfg.Database.Name)
	knowledgeRepo := repository.NewKnowledgeRepository(client, cfg.Database.Name)
	sprintRepo := repository.NewSprintRepository(client, cfg.Database.Name)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wsManager := websocket.NewManager(
		cfg.WebSocket.MaxConnPerUser,
		cfg.WebSocket.WriteWait,
		cfg.WebSocket.PongWait,
		cfg.WebSocket.PingPeriod,
	)
	wsManager.SetMessageHandler(handler.NewWebSocketMessageHandler())
	go wsManager.Run(ctx)

	notifier := service.NewChangeNotifier(wsManager)

	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.RefreshTokenExpiration)
	userService := service.NewUserService(userRepo)
	taskService := service.NewTaskService(taskRepo, notifier)
	knowledgeService := service.NewKnowledgeService(knowledgeRepo, notifier)
	sprintService := service.NewSprintService(sprintRepo, taskRepo, notifier)
	reportService := service.NewReportService(taskRepo)
	adminService := service.NewAdminService(userRepo, taskRepo, knowledgeRepo, sprintRepo)

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	taskHandler := handler.NewTaskHandler(taskService)
	knowledgeHandler := handler.NewKnowledgeHandler(knowledgeService)
	sprintHandler := handler.NewSprintHandler(sprintService)
	reportHandler := handler.NewReportHandler(reportService)
	adminHandler := handler.NewAdminHandler(adminService)
	wsHandler := handler.NewWebSocketHandler(wsManager, cfg.JWT.Secret, cfg.WebSocket.ReadBufferSize, cfg.WebSocket.WriteBufferSize)

	r := mux.NewRouter()

	r.Use(middleware.LoggerMiddleware("/health", "/api/v1/health"))
	r.Use(middleware.CORSMiddleware(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowedHeaders,
	))

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", healthHandler).Methods("GET")

	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/refresh", authHandler.Refresh).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/logout", authHandler.Logout).Methods("POST", "OPTIONS")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware(cfg.JWT.Secret))

	protected.HandleFunc("/users/me", userHandler.GetMe).Methods("GET", "OPTIONS")
	protected.HandleFunc("/users/me", userHandler.UpdateMe).Methods("PUT", "OPTIONS")

	protected.HandleFunc("/tasks", taskHandler.List).Methods("GET", "OPTIONS")
	protected.HandleFunc("/tasks", taskHandler.Create).Methods("POST", "OPTIONS")
	protected.HandleFunc("/tasks/{id}", taskHandler.Get).Methods("GET", "OPTIONS")
	protected.HandleFunc("/tasks/{id}", taskHandler.Update).Methods("PUT", "OPTIONS")
	protected.HandleFunc("/tasks/{id}", taskHandler.Delete).Methods("DELETE", "OPTIONS")

	protected.HandleFunc("/knowledge", knowledgeHandler.List).Methods("GET", "OPTIONS")
	protected.HandleFunc("/knowledge", knowledgeHandler.Create).Methods("POST", "OPTIONS")
	protected.HandleFunc("/knowledge/tags", knowledgeHandler.Tags).Methods("GET", "OPTIONS")
	protected.HandleFunc("/knowledge/{id}", knowledgeHandler.Get).Methods("GET", "OPTIONS")
	protected.HandleFunc("/knowledge/{id}", knowledgeHandler.Update).Methods("PUT", "OPTIONS")
	protected.HandleFunc("/knowledge/{id}", knowledgeHandler.Delete).Methods("DELETE", "OPTIONS")
	protected.HandleFunc("/knowledge/{id}/link-tasks", knowledgeHandler.LinkTasks).Methods("POST", "OPTIONS")

	protected.HandleFunc("/sprints", sprintHandler.List).Methods("GET", "OPTIONS")
	protected.HandleFunc("/sprints", sprintHandler.Create).Methods("POST", "OPTIONS")
	protected.HandleFunc("/sprints/{id}", sprintHandler.Get).Methods("GET", "OPTIONS")
	protected.HandleFunc("/sprints/{id}", sprintHandler.Update).Methods("PUT", "OPTIONS")
	protected.HandleFunc("/sprints/{id}", sprintHandler.Delete).Methods("DELETE", "OPTIONS")
	protected.HandleFunc("/sprints/{id}/burndown", sprintHandler.Burndown).Methods("GET", "OPTIONS")
	protected.HandleFunc("/sprints/{id}/tasks/{taskId}", sprintHandler.AddTask).Methods("POST", "OPTIONS")
	protected.HandleFunc("/sprints/{id}/tasks/{taskId}", sprintHandler.RemoveTask).Methods("DELETE", "OPTIONS")

	protected.HandleFunc("/reports/insights", reportHandler.Insights).Methods("GET", "OPTIONS")

	protected.HandleFunc("/admin/setup", adminHandler.Setup).Methods("POST", "OPTIONS")

	admin := protected.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.AdminMiddleware(userService))

	admin.HandleFunc("/stats", adminHandler.SystemStats).Methods("GET", "OPTIONS")
	admin.HandleFunc("/users", adminHandler.ListUsers).Methods("GET", "OPTIONS")
	admin.HandleFunc("/users", adminHandler.CreateUser).Methods("POST", "OPTIONS")
	admin.HandleFunc("/users/{id}", adminHandler.GetUser).Methods("GET", "OPTIONS")
	admin.HandleFunc("/users/{id}", adminHandler.UpdateUser).Methods("PUT", "OPTIONS")
	admin.HandleFunc("/users/{id}", adminHandler.DeleteUser).Methods("DELETE", "OPTIONS")
	admin.HandleFunc("/users/{id}/stats", adminHandler.UserStats).Methods("GET", "OPTIONS")
	admin.HandleFunc("/users/{id}/promote", adminHandler.Promote).Methods("POST", "OPTIONS")
	admin.HandleFunc("/users/{id}/demote", adminHandler.Demote).Methods("POST", "OPTIONS")

	r.HandleFunc("/ws", wsHandler.HandleConnection)
	r.HandleFunc("/health", healthHandler).Methods("GET")

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting taskdeck server %s on %s (env: %s)", version, addr, cfg.Server.Env)
		log.Printf("Connected to CouchDB at %s:%s", cfg.Database.Host, cfg.Database.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Server failed to start: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	log.Println("Server stopped gracefully")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]string{
		"status":  "healthy",
		"service": "taskdeck",
		"version": version,
	})
}
