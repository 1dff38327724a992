package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lberthe/kanbo-api/pkg/dto"
)

func createProject(t *testing.T, env *testEnv, token, name string) string {
	t.Helper()
	rec := env.request(t, http.MethodPost, "/api/v1/projects", token, dto.CreateProjectRequest{Name: name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[map[string]string](t, rec)["id"]
}

func TestTicketHandler_CreateAndList(t *testing.T) {
	env := setupAPI(t)
	alice := env.register(t, "alice@example.com", "password123")
	projectID := createProject(t, env, alice, "Alpha")

	rec := env.request(t, http.MethodPost, "/api/v1/tickets", alice, dto.CreateTicketRequest{
		Title:     "Fix login page",
		ProjectID: projectID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.request(t, http.MethodGet, "/api/v1/tickets", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tickets := decodeBody[[]dto.TicketResponse](t, rec)
	require.Len(t, tickets, 1)
	assert.Equal(t, "Fix login page", tickets[0].Title)
	assert.Equal(t, "todo", tickets[0].Status)
	assert.Equal(t, "medium", tickets[0].Priority)
	assert.Empty(t, tickets[0].Assignee)
	assert.Equal(t, projectID, tickets[0].ProjectID)
}

func TestTicketHandler_Create_Validation(t *testing.T) {
	env := setupAPI(t)
	alice := env.register(t, "alice@example.com", "password123")
	projectID := createProject(t, env, alice, "Alpha")

	rec := env.request(t, http.MethodPost, "/api/v1/tickets", alice, dto.CreateTicketRequest{
		ProjectID: projectID,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/v1/tickets", alice, dto.CreateTicketRequest{
		Title:     "task",
		ProjectID: projectID,
		Status:    "blocked",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/v1/tickets", alice, dto.CreateTicketRequest{
		Title:     "task",
		ProjectID: "missing",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTicketHandler_List_FilterByProject(t *testing.T) {
	env := setupAPI(t)
	alice := env.register(t, "alice@example.com", "password123")
	alphaID := createProject(t, env, alice, "Alpha")
	betaID := createProject(t, env, alice, "Beta")

	for _, p := range []string{alphaID, alphaID, betaID} {
		rec := env.request(t, http.MethodPost, "/api/v1/tickets", alice, dto.CreateTicketRequest{
			Title:     "task",
			ProjectID: p,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := env.request(t, http.MethodGet, "/api/v1/tickets?project_id="+alphaID, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]dto.TicketResponse](t, rec), 2)

	rec = env.request(t, http.MethodGet, "/api/v1/tickets", alice, nil)
	assert.Len(t, decodeBody[[]dto.TicketResponse](t, rec), 3)
}

func TestTicketHandler_UpdateStatus(t *testing.T) {
	env := setupAPI(t)
	alice := env.register(t, "alice@example.com", "password123")
	projectID := createProject(t, env, alice, "Alpha")

	rec := env.request(t, http.MethodPost, "/api/v1/tickets", alice, dto.CreateTicketRequest{
		Title:     "task",
		ProjectID: projectID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	ticketID := decodeBody[map[string]string](t, rec)["id"]

	status := "in-progress"
	rec = env.request(t, http.MethodPatch, "/api/v1/tickets/"+ticketID, alice, dto.UpdateTicketRequest{
		Status: &status,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.request(t, http.MethodGet, "/api/v1/tickets", alice, nil)
	tickets := decodeBody[[]dto.TicketResponse](t, rec)
	require.Len(t, tickets, 1)
	assert.Equal(t, "in-progress", tickets[0].Status)
}

func TestTicketHandler_Assign(t *testing.T) {
	env := setupAPI(t)
	alice := env.register(t, "alice@example.com", "password123")
	projectID := createProject(t, env, alice, "Alpha")

	rec := env.request(t, http.MethodPost, "/api/v1/tickets", alice, dto.CreateTicketRequest{
		Title:     "task",
		ProjectID: projectID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	ticketID := decodeBody[map[string]string](t, rec)["id"]

	// Both or neither id is a bad request.
	rec = env.request(t, http.MethodPost, "/api/v1/tickets/"+ticketID+"/assign", alice, dto.AssignTicketRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.request(t, http.MethodPost, "/api/v1/tickets/"+ticketID+"/assign", alice, dto.AssignTicketRequest{
		UserID:  "u1",
		GroupID: "g1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/v1/tickets/"+ticketID+"/assign", alice, dto.AssignTicketRequest{
		UserID: "u1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.request(t, http.MethodGet, "/api/v1/tickets", alice, nil)
	tickets := decodeBody[[]dto.TicketResponse](t, rec)
	require.Len(t, tickets, 1)
	assert.Equal(t, "u1", tickets[0].Assignee)
	assert.Empty(t, tickets[0].AssignedGroup)
}

func TestTicketHandler_AutoAssign(t *testing.T) {
	env := setupAPI(t)
	alice := env.register(t, "alice@example.com", "password123")
	projectID := createProject(t, env, alice, "Alpha")

	for range 3 {
		rec := env.request(t, http.MethodPost, "/api/v1/tickets", alice, dto.CreateTicketRequest{
			Title:     "task",
			ProjectID: projectID,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := env.request(t, http.MethodPost, "/api/v1/projects/"+projectID+"/tickets/auto-assign", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 3, decodeBody[dto.AutoAssignResponse](t, rec).Assigned)

	rec = env.request(t, http.MethodGet, "/api/v1/tickets", alice, nil)
	for _, ticket := range decodeBody[[]dto.TicketResponse](t, rec) {
		assert.NotEmpty(t, ticket.Assignee)
	}
}

func TestTicketHandler_Delete(t *testing.T) {
	env := setupAPI(t)
	alice := env.register(t, "alice@example.com", "password123")
	projectID := createProject(t, env, alice, "Alpha")

	rec := env.request(t, http.MethodPost, "/api/v1/tickets", alice, dto.CreateTicketRequest{
		Title:     "task",
		ProjectID: projectID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	ticketID := decodeBody[map[string]string](t, rec)["id"]

	rec = env.request(t, http.MethodDelete, "/api/v1/tickets/"+ticketID, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/v1/tickets", alice, nil)
	assert.Empty(t, decodeBody[[]dto.TicketResponse](t, rec))

	rec = env.request(t, http.MethodDelete, "/api/v1/tickets/"+ticketID, alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
