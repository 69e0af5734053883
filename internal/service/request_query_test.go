package service

import (
	"context"
	"testing"

	"nfa-backend/internal/apperr"
	"nfa-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisibility(t *testing.T) {
	t.Run("Should always show the request to initiator and supervisor", func(t *testing.T) {
		env := newTestEnv()
		created := env.submit()

		_, err := env.query.Get(context.Background(), env.initiator.ID.String(), created.ID)
		assert.NoError(t, err)
		_, err = env.query.Get(context.Background(), env.supervisor.ID.String(), created.ID)
		assert.NoError(t, err)
	})

	t.Run("Should hide an in-progress request from approvers who are not current", func(t *testing.T) {
		env := newTestEnv()
		created := env.submit()
		_, err := env.engine.Review(context.Background(), env.supervisor.ID.String(), ReviewInput{
			RequestID: created.ID, Approved: true,
		})
		require.NoError(t, err)

		// Current approver sees it, the next one does not yet.
		_, err = env.query.Get(context.Background(), env.approverA.ID.String(), created.ID)
		assert.NoError(t, err)
		_, err = env.query.Get(context.Background(), env.approverB.ID.String(), created.ID)
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("Should show a terminal request to every chain member", func(t *testing.T) {
		env := newTestEnv()
		created := env.submit()
		_, err := env.engine.AdminDecide(context.Background(), env.admin.ID.String(), ReviewInput{
			RequestID: created.ID, Approved: false,
		})
		require.NoError(t, err)

		_, err = env.query.Get(context.Background(), env.approverB.ID.String(), created.ID)
		assert.NoError(t, err)
	})

	t.Run("Should hide the request from unrelated users", func(t *testing.T) {
		env := newTestEnv()
		created := env.submit()

		_, err := env.query.Get(context.Background(), env.outsider.ID.String(), created.ID)
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})
}

func TestList(t *testing.T) {
	t.Run("Should filter by the PENDING and APPROVED buckets", func(t *testing.T) {
		env := newTestEnv()
		first := env.submit()
		env.submit()
		_, err := env.engine.AdminDecide(context.Background(), env.admin.ID.String(), ReviewInput{
			RequestID: first.ID, Approved: true,
		})
		require.NoError(t, err)

		pending, total, err := env.query.List(context.Background(), env.initiator.ID.String(), RequestFilter{Filter: "PENDING"})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, pending, 1)
		assert.Equal(t, model.StatusNew, pending[0].Status)

		approved, total, err := env.query.List(context.Background(), env.initiator.ID.String(), RequestFilter{Filter: "APPROVED"})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, approved, 1)
		assert.Equal(t, model.StatusApproved, approved[0].Status)
	})

	t.Run("Should match the initiator name case-insensitively", func(t *testing.T) {
		env := newTestEnv()
		env.submit()

		views, _, err := env.query.List(context.Background(), env.initiator.ID.String(), RequestFilter{Initiator: "ines"})
		require.NoError(t, err)
		assert.Len(t, views, 1)

		views, _, err = env.query.List(context.Background(), env.initiator.ID.String(), RequestFilter{Initiator: "nobody"})
		require.NoError(t, err)
		assert.Empty(t, views)
	})

	t.Run("Should reject a malformed date filter", func(t *testing.T) {
		env := newTestEnv()
		env.submit()

		_, _, err := env.query.List(context.Background(), env.initiator.ID.String(), RequestFilter{Date: "05/11/2024"})
		assert.ErrorIs(t, err, apperr.ErrInvalidState)
	})

	t.Run("Should paginate and still report the full match count", func(t *testing.T) {
		env := newTestEnv()
		for i := 0; i < 5; i++ {
			env.submit()
		}

		views, total, err := env.query.List(context.Background(), env.initiator.ID.String(), RequestFilter{Page: 2, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		assert.Len(t, views, 2)

		views, total, err = env.query.List(context.Background(), env.initiator.ID.String(), RequestFilter{Page: 3, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		assert.Len(t, views, 1)
	})

	t.Run("Should exclude requests the caller cannot see", func(t *testing.T) {
		env := newTestEnv()
		env.submit()

		views, total, err := env.query.List(context.Background(), env.outsider.ID.String(), RequestFilter{})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, views)
	})
}

func TestAdminQueries(t *testing.T) {
	t.Run("Should set isApproved on the admin listing for both approved literals", func(t *testing.T) {
		env := newTestEnv()
		first := env.submit()
		second := env.submit()
		third := env.submit()
		_, err := env.engine.AdminDecide(context.Background(), env.admin.ID.String(), ReviewInput{RequestID: first.ID, Approved: true})
		require.NoError(t, err)
		_, err = env.engine.AdminApprove(context.Background(), env.admin.ID.String(), second.ID)
		require.NoError(t, err)

		views, err := env.query.ListAll(context.Background(), env.admin.ID.String())
		require.NoError(t, err)
		require.Len(t, views, 3)

		byID := map[string]RequestView{}
		for _, v := range views {
			byID[v.ID] = v
		}
		require.NotNil(t, byID[first.ID].IsApproved)
		assert.True(t, *byID[first.ID].IsApproved)
		require.NotNil(t, byID[second.ID].IsApproved)
		assert.True(t, *byID[second.ID].IsApproved)
		require.NotNil(t, byID[third.ID].IsApproved)
		assert.False(t, *byID[third.ID].IsApproved)
	})

	t.Run("Should forbid the admin listing for plain users", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.query.ListAll(context.Background(), env.outsider.ID.String())
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("Should count totals and pending requests", func(t *testing.T) {
		env := newTestEnv()
		first := env.submit()
		env.submit()
		_, err := env.engine.AdminDecide(context.Background(), env.admin.ID.String(), ReviewInput{RequestID: first.ID, Approved: true})
		require.NoError(t, err)

		total, err := env.query.TotalRequests(context.Background(), env.admin.ID.String())
		require.NoError(t, err)
		assert.Equal(t, 2, total)

		pending, err := env.query.PendingRequests(context.Background(), env.admin.ID.String())
		require.NoError(t, err)
		assert.Equal(t, 1, pending)
	})

	t.Run("Should group pending counts per initiator", func(t *testing.T) {
		env := newTestEnv()
		env.submit()
		env.submit()

		counts, err := env.query.PendingPerUser(context.Background(), env.admin.ID.String())
		require.NoError(t, err)

		byUser := map[string]int{}
		for _, c := range counts {
			byUser[c.UserID] = c.PendingRequests
		}
		assert.Equal(t, 2, byUser[env.initiator.ID.String()])
		assert.Equal(t, 0, byUser[env.outsider.ID.String()])
	})

	t.Run("Should expose the structured event trail to admins only", func(t *testing.T) {
		env := newTestEnv()
		created := env.submit()
		_, err := env.engine.Review(context.Background(), env.supervisor.ID.String(), ReviewInput{
			RequestID: created.ID, Approved: true,
		})
		require.NoError(t, err)

		events, err := env.query.ListEvents(context.Background(), env.admin.ID.String(), created.ID)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, model.EventRequestCreated, events[0].Kind)
		assert.Equal(t, model.EventSupervisorApproved, events[1].Kind)

		_, err = env.query.ListEvents(context.Background(), env.initiator.ID.String(), created.ID)
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("Should summarize files per user", func(t *testing.T) {
		env := newTestEnv()
		created := env.submit()
		_, err := env.engine.AddFiles(context.Background(), env.initiator.ID.String(), created.ID, []FileUpload{
			{Name: "quote.pdf", Content: []byte("x")},
		})
		require.NoError(t, err)

		summary, err := env.query.UserFilesSummary(context.Background(), env.admin.ID.String())
		require.NoError(t, err)
		require.Len(t, summary, 1)
		assert.Equal(t, env.initiator.ID.String(), summary[0].UserID)
		assert.Equal(t, 1, summary[0].FileCount)

		files, err := env.query.UserFiles(context.Background(), env.admin.ID.String(), env.initiator.ID.String())
		require.NoError(t, err)
		assert.Len(t, files, 1)
	})
}

func TestRenderPDF(t *testing.T) {
	approved := func(env *testEnv) *RequestView {
		created := env.submit(env.approverA.ID.String())
		_, err := env.engine.Review(context.Background(), env.supervisor.ID.String(), ReviewInput{
			RequestID: created.ID, Approved: true,
		})
		if err != nil {
			panic(err)
		}
		view, err := env.engine.Review(context.Background(), env.approverA.ID.String(), ReviewInput{
			RequestID: created.ID, Approved: true,
		})
		if err != nil {
			panic(err)
		}
		return view
	}

	t.Run("Should render a PDF for a fully approved request", func(t *testing.T) {
		env := newTestEnv()
		view := approved(env)

		data, err := env.query.RenderPDF(context.Background(), env.initiator.ID.String(), view.ID)
		require.NoError(t, err)
		require.NotEmpty(t, data)
		assert.Equal(t, "%PDF", string(data[:4]))
	})

	t.Run("Should refuse anything but the APPROVED literal", func(t *testing.T) {
		env := newTestEnv()
		created := env.submit()

		_, err := env.query.RenderPDF(context.Background(), env.initiator.ID.String(), created.ID)
		assert.ErrorIs(t, err, apperr.ErrInvalidState)

		// "Approved by ADMIN" is deliberately not eligible.
		_, err = env.engine.AdminApprove(context.Background(), env.admin.ID.String(), created.ID)
		require.NoError(t, err)
		_, err = env.query.RenderPDF(context.Background(), env.initiator.ID.String(), created.ID)
		assert.ErrorIs(t, err, apperr.ErrInvalidState)
	})

	t.Run("Should forbid downloads by users who are neither initiator nor elevated", func(t *testing.T) {
		env := newTestEnv()
		view := approved(env)

		_, err := env.query.RenderPDF(context.Background(), env.outsider.ID.String(), view.ID)
		assert.ErrorIs(t, err, apperr.ErrForbidden)

		_, err = env.query.RenderPDF(context.Background(), env.admin.ID.String(), view.ID)
		assert.NoError(t, err)
	})
}
