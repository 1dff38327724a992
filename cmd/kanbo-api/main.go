package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lberthe/kanbo-api/internal/auth"
	"github.com/lberthe/kanbo-api/internal/config"
	"github.com/lberthe/kanbo-api/internal/database"
	"github.com/lberthe/kanbo-api/internal/engine"
	"github.com/lberthe/kanbo-api/internal/handlers"
	authmw "github.com/lberthe/kanbo-api/internal/middleware"
	"github.com/lberthe/kanbo-api/internal/services"
	"github.com/lberthe/kanbo-api/internal/store/pgstore"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/m1z23r/drift/pkg/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	docStore := pgstore.New(db)
	defer docStore.Close()

	provider := auth.NewLocalProvider(docStore)
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	tokenService := auth.NewTokenService(docStore)
	emailService := services.NewEmailService(cfg.SMTP)

	manager := engine.NewManager(docStore, provider)
	defer manager.Close()

	authHandler := handlers.NewAuthHandler(manager, jwtService, tokenService)
	userHandler := handlers.NewUserHandler(docStore)
	projectHandler := handlers.NewProjectHandler(manager)
	ticketHandler := handlers.NewTicketHandler(manager)
	groupHandler := handlers.NewGroupHandler(manager)
	invitationHandler := handlers.NewInvitationHandler(manager, emailService)
	sseHandler := handlers.NewSSEHandler(manager)

	app := drift.New()

	if cfg.IsProduction() {
		app.SetMode(drift.ReleaseMode)
	} else {
		app.SetMode(drift.DebugMode)
	}

	app.Use(middleware.Recovery())
	app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       86400,
	}))
	app.Use(middleware.BodyParser())

	api := app.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/refresh", authHandler.RefreshToken)
	authGroup.Post("/logout", authHandler.Logout)

	protected := api.Group("")
	protected.Use(authmw.Auth(jwtService))

	protected.Post("/auth/logout-all", authHandler.LogoutAll)

	protected.Get("/users/me", userHandler.GetMe)
	protected.Patch("/users/me", userHandler.UpdateMe)

	protected.Get("/projects", projectHandler.List)
	protected.Post("/projects", projectHandler.Create)
	protected.Get("/projects/:projectId", projectHandler.Get)
	protected.Patch("/projects/:projectId", projectHandler.Update)
	protected.Delete("/projects/:projectId", projectHandler.Delete)
	protected.Post("/projects/:projectId/archive", projectHandler.Archive)
	protected.Post("/projects/:projectId/restore", projectHandler.Restore)
	protected.Get("/projects/:projectId/members", projectHandler.Members)
	protected.Delete("/projects/:projectId/members/:userId", projectHandler.RemoveMember)
	protected.Patch("/projects/:projectId/members/:userId/role", projectHandler.UpdateMemberRole)
	protected.Post("/projects/:projectId/groups", projectHandler.AssignGroup)
	protected.Post("/projects/:projectId/invitations", invitationHandler.InviteToProject)
	protected.Post("/projects/:projectId/tickets/auto-assign", ticketHandler.AutoAssign)

	protected.Get("/tickets", ticketHandler.List)
	protected.Post("/tickets", ticketHandler.Create)
	protected.Patch("/tickets/:ticketId", ticketHandler.Update)
	protected.Delete("/tickets/:ticketId", ticketHandler.Delete)
	protected.Post("/tickets/:ticketId/assign", ticketHandler.Assign)

	protected.Get("/groups", groupHandler.List)
	protected.Post("/groups", groupHandler.Create)
	protected.Patch("/groups/:groupId", groupHandler.Update)
	protected.Delete("/groups/:groupId", groupHandler.Delete)
	protected.Post("/groups/:groupId/members", groupHandler.AddMember)
	protected.Delete("/groups/:groupId/members/:userId", groupHandler.RemoveMember)
	protected.Post("/groups/:groupId/invitations", invitationHandler.InviteToGroup)

	protected.Get("/invitations", invitationHandler.List)
	protected.Post("/invitations/:invitationId/accept", invitationHandler.Accept)
	protected.Post("/invitations/:invitationId/decline", invitationHandler.Decline)
	protected.Delete("/invitations/:invitationId", invitationHandler.Delete)

	protected.Get("/events", sseHandler.Stream)

	api.Get("/health", func(c *drift.Context) {
		_ = c.JSON(200, map[string]string{"status": "ok"})
	})

	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		for range ticker.C {
			_ = tokenService.CleanupExpired(context.Background())
		}
	}()

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Printf("Server starting on %s", addr)
		if err := app.Run(addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
}
