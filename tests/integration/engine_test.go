package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lberthe/kanbo-api/internal/auth"
	"github.com/lberthe/kanbo-api/internal/engine"
	"github.com/lberthe/kanbo-api/internal/store/pgstore"
	"github.com/lberthe/kanbo-api/tests/testutil"
)

func startEngine(t *testing.T, st *pgstore.Store, user auth.UserHandle) *engine.Engine {
	t.Helper()

	eng := engine.New(st, user)
	require.NoError(t, eng.Start(context.Background()))
	t.Cleanup(eng.Stop)
	return eng
}

func TestEngine_Integration_ProjectAndTickets(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	_, st := setupTest(t)
	fixtures := testutil.NewFixtures(st)
	ctx := context.Background()

	owner := fixtures.CreateUser(t)
	eng := startEngine(t, st, owner)

	projectID, err := eng.CreateProject(ctx, "Alpha", "integration project", "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(eng.Projects()) == 1
	}, waitFor, tick, "project never reached the mirror")

	project := eng.Projects()[0]
	assert.Equal(t, projectID, project.ID)
	assert.Equal(t, owner.ID, project.CreatedBy)
	assert.Equal(t, []string{owner.ID}, project.Members)

	_, err = eng.CreateTicket(ctx, engine.TicketInput{
		Title:     "First ticket",
		ProjectID: projectID,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(eng.Tickets()) == 1
	}, waitFor, tick, "ticket never reached the mirror")

	ticket := eng.Tickets()[0]
	assert.Equal(t, "First ticket", ticket.Title)
	assert.Equal(t, "todo", ticket.Status)

	assigned, err := eng.AutoAssignTickets(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, 1, assigned)

	require.Eventually(t, func() bool {
		tickets := eng.Tickets()
		return len(tickets) == 1 && tickets[0].Assignee == owner.ID
	}, waitFor, tick, "assignment never reached the mirror")
}

func TestEngine_Integration_InvitationAcceptFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	_, st := setupTest(t)
	fixtures := testutil.NewFixtures(st)
	ctx := context.Background()

	owner := fixtures.CreateUser(t, testutil.WithEmail("owner@example.com"))
	guest := fixtures.CreateUser(t, testutil.WithEmail("guest@example.com"))

	ownerEng := startEngine(t, st, owner)

	projectID, err := ownerEng.CreateProject(ctx, "Alpha", "", "")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(ownerEng.Projects()) == 1
	}, waitFor, tick)

	_, err = ownerEng.InviteUserToProject(ctx, projectID, guest.Email, "")
	require.NoError(t, err)

	guestEng := startEngine(t, st, guest)

	require.Eventually(t, func() bool {
		return len(guestEng.Invitations()) == 1
	}, waitFor, tick, "invitation never reached the guest mirror")

	inv := guestEng.Invitations()[0]
	assert.Equal(t, "pending", inv.Status)
	assert.Equal(t, projectID, inv.TargetID)

	require.NoError(t, guestEng.AcceptInvitation(ctx, inv.ID))

	require.Eventually(t, func() bool {
		projects := guestEng.Projects()
		return len(projects) == 1 && projects[0].ID == projectID
	}, waitFor, tick, "membership never reached the guest mirror")

	require.Eventually(t, func() bool {
		members, err := ownerEng.GetProjectMembers(projectID)
		return err == nil && len(members) == 2
	}, waitFor, tick, "owner never saw the new member")
}

func TestEngine_Integration_ZeroProjectsSeesNoTickets(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	_, st := setupTest(t)
	fixtures := testutil.NewFixtures(st)
	ctx := context.Background()

	owner := fixtures.CreateUser(t)
	outsider := fixtures.CreateUser(t)

	ownerEng := startEngine(t, st, owner)
	projectID, err := ownerEng.CreateProject(ctx, "Alpha", "", "")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(ownerEng.Projects()) == 1
	}, waitFor, tick)

	_, err = ownerEng.CreateTicket(ctx, engine.TicketInput{Title: "task", ProjectID: projectID})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(ownerEng.Tickets()) == 1
	}, waitFor, tick)

	outsiderEng := startEngine(t, st, outsider)

	assert.Empty(t, outsiderEng.Projects())
	assert.Empty(t, outsiderEng.Tickets())
}
