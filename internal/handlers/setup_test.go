package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/m1z23r/drift/pkg/drift"
	driftmw "github.com/m1z23r/drift/pkg/middleware"
	"github.com/stretchr/testify/require"

	"github.com/lberthe/kanbo-api/internal/auth"
	"github.com/lberthe/kanbo-api/internal/config"
	"github.com/lberthe/kanbo-api/internal/engine"
	authmw "github.com/lberthe/kanbo-api/internal/middleware"
	"github.com/lberthe/kanbo-api/internal/services"
	"github.com/lberthe/kanbo-api/internal/store/memstore"
	"github.com/lberthe/kanbo-api/pkg/dto"
	"github.com/lberthe/kanbo-api/tests/testutil"
)

// testEnv wires the full API over the in-memory store: real auth, real
// engines, no HTTP server.
type testEnv struct {
	app     http.Handler
	store   *memstore.Store
	manager *engine.Manager
	jwt     *auth.JWTService
	tokens  *auth.TokenService
}

func setupAPI(t *testing.T) *testEnv {
	t.Helper()

	st := memstore.New()
	provider := auth.NewLocalProvider(st)
	jwtService := auth.NewJWTService("test-secret-key-for-testing-only", 15*time.Minute, 24*time.Hour)
	tokenService := auth.NewTokenService(st)
	emailService := services.NewEmailService(config.SMTPConfig{})

	manager := engine.NewManager(st, provider)
	t.Cleanup(manager.Close)

	authHandler := NewAuthHandler(manager, jwtService, tokenService)
	userHandler := NewUserHandler(st)
	projectHandler := NewProjectHandler(manager)
	ticketHandler := NewTicketHandler(manager)
	groupHandler := NewGroupHandler(manager)
	invitationHandler := NewInvitationHandler(manager, emailService)

	app := drift.New()
	app.Use(driftmw.Recovery())
	app.Use(driftmw.BodyParser())

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

	return &testEnv{
		app:     app,
		store:   st,
		manager: manager,
		jwt:     jwtService,
		tokens:  tokenService,
	}
}

func (e *testEnv) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	headers := map[string]string{}
	if token != "" {
		headers["Authorization"] = testutil.AuthHeader(token)
	}
	return testutil.NewHTTPTestClient(t, e.app).Request(method, path, body, headers)
}

// register creates an account and returns its access token.
func (e *testEnv) register(t *testing.T, email, password string) string {
	t.Helper()

	rec := e.request(t, http.MethodPost, "/api/v1/auth/register", "", dto.RegisterRequest{
		Email:    email,
		Password: password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var tokens dto.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tokens))
	return tokens.AccessToken
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}
