package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prepme-backend/internal/models"
)

func TestPrepLifecycle(t *testing.T) {
	env := newTestEnv(t, []models.User{{ID: "u1"}, {ID: "u2"}})

	w := env.do(t, http.MethodPost, "/api/v1/preps", "tok-u1", models.CreatePrepRequest{LinkedInURL: "linkedin.com/in/jane-doe?trk=feed"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var prep models.Prep
	decode(t, w, &prep)
	assert.Equal(t, "https://linkedin.com/in/jane-doe", prep.LinkedInURL)
	assert.Equal(t, "Jane Doe", prep.ProfileName)
	assert.Equal(t, "", prep.Notes)
	require.NotEmpty(t, prep.ID)
	path := "/api/v1/preps/" + prep.ID

	w = env.do(t, http.MethodGet, "/api/v1/preps", "tok-u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []models.Prep
	decode(t, w, &listed)
	assert.Len(t, listed, 1)

	w = env.do(t, http.MethodGet, path, "tok-u2", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	notes := `<p>Ask about <b>sailing</b></p><script>alert(1)</script>`
	w = env.do(t, http.MethodPut, path+"/notes", "tok-u1", models.UpdateNotesRequest{Notes: &notes})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &prep)
	assert.Equal(t, "<p>Ask about <b>sailing</b></p>", prep.Notes)

	w = env.do(t, http.MethodGet, "/api/v1/context?meetingId="+prep.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ctxResp ContextResponse
	decode(t, w, &ctxResp)
	assert.Contains(t, ctxResp.Context, "helping prepare for a meeting with Jane Doe")
	assert.False(t, ctxResp.Timestamp.IsZero())

	w = env.do(t, http.MethodDelete, path, "tok-u1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/.netlify/functions/context?meetingId="+prep.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":true,"message":"Meeting not found"}`, w.Body.String())
}

func TestCreatePrepEnforcesFreeLimit(t *testing.T) {
	env := newTestEnv(t, []models.User{
		{ID: "u1"},
		{ID: "u2", Subscription: &models.SubscriptionSnapshot{ID: "sub_2", Status: "active", PriceID: "price_individual"}},
	})
	body := models.CreatePrepRequest{LinkedInURL: "https://www.linkedin.com/in/jane-doe"}

	assert.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/v1/preps", "tok-u1", body).Code)
	w := env.do(t, http.MethodPost, "/api/v1/preps", "tok-u1", body)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Monthly prep limit reached")

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/v1/preps", "tok-u2", body).Code)
	}
}

func TestCreatePrepValidation(t *testing.T) {
	env := newTestEnv(t, []models.User{{ID: "u1"}})

	w := env.do(t, http.MethodPost, "/api/v1/preps", "tok-u1", models.CreatePrepRequest{LinkedInURL: "https://example.com/in/jane"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":true,"message":"A valid LinkedIn profile URL is required"}`, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/v1/preps", "tok-u1", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/preps", "", models.CreatePrepRequest{LinkedInURL: "https://linkedin.com/in/jane"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetContextValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/api/v1/context", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":true,"message":"Meeting ID is required"}`, w.Body.String())

	bare, err := env.preps.Create(context.Background(), &models.Prep{UserID: "u1"})
	require.NoError(t, err)
	w = env.do(t, http.MethodGet, "/api/v1/context?meetingId="+bare, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":true,"message":"Profile data not found"}`, w.Body.String())
}
