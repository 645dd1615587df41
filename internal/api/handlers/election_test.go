package handlers_test

import (
	"ballotbox/internal/models"
	"ballotbox/internal/testutil"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func electionRouter(tc *testutil.TestContext) *gin.Engine {
	router := gin.New()
	router.POST("/elections", tc.ElectionHandler.Create)
	router.GET("/elections", tc.ElectionHandler.List)
	router.GET("/elections/:id", tc.ElectionHandler.Get)
	router.PUT("/elections/:id", tc.ElectionHandler.Update)
	router.DELETE("/elections/:id", tc.ElectionHandler.Delete)
	router.GET("/elections/:id/results", tc.ElectionHandler.Results)
	router.POST("/elections/:id/candidates", tc.CandidateHandler.Create)
	router.GET("/elections/:id/candidates", tc.CandidateHandler.List)
	router.DELETE("/elections/:id/candidates/:candidate_id", tc.CandidateHandler.Delete)
	return router
}

func TestElectionHandler_Create(t *testing.T) {
	tc := testutil.NewTestContext(t)
	router := electionRouter(tc)

	start := time.Now().Add(time.Hour)
	end := start.Add(48 * time.Hour)

	w := postJSON(t, router, "/elections", models.CreateElectionRequest{
		Title:       "Mayoral Election",
		Description: "City mayoral election",
		StartDate:   start,
		EndDate:     end,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Election
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	require.NotEqual(t, uuid.Nil, created.ID)
	require.Equal(t, models.ElectionDraft, created.Status, "new elections start as drafts")

	// End date must come after the start date
	w = postJSON(t, router, "/elections", models.CreateElectionRequest{
		Title:     "Backwards Election",
		StartDate: end,
		EndDate:   start,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Title is required
	w = postJSON(t, router, "/elections", models.CreateElectionRequest{
		StartDate: start,
		EndDate:   end,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestElectionHandler_GetAndList(t *testing.T) {
	tc := testutil.NewTestContext(t)
	router := electionRouter(tc)

	active := tc.CreateTestElection("Active Election", models.ElectionActive)
	tc.CreateTestElection("Draft Election", models.ElectionDraft)

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := get("/elections/" + active.ID.String())
	require.Equal(t, http.StatusOK, w.Code)
	var fetched models.Election
	require.NoError(t, json.NewDecoder(w.Body).Decode(&fetched))
	require.Equal(t, active.ID, fetched.ID)

	require.Equal(t, http.StatusBadRequest, get("/elections/not-a-uuid").Code)
	require.Equal(t, http.StatusNotFound, get("/elections/"+uuid.New().String()).Code)

	w = get("/elections")
	require.Equal(t, http.StatusOK, w.Code)
	var all []models.Election
	require.NoError(t, json.NewDecoder(w.Body).Decode(&all))
	require.Len(t, all, 2)

	w = get("/elections?status=active")
	require.Equal(t, http.StatusOK, w.Code)
	var filtered []models.Election
	require.NoError(t, json.NewDecoder(w.Body).Decode(&filtered))
	require.Len(t, filtered, 1)
	require.Equal(t, active.ID, filtered[0].ID)

	require.Equal(t, http.StatusBadRequest, get("/elections?status=bogus").Code)
	require.Equal(t, http.StatusBadRequest, get("/elections?limit=0").Code)
}

func TestElectionHandler_Update(t *testing.T) {
	tc := testutil.NewTestContext(t)
	router := electionRouter(tc)

	election := tc.CreateTestElection("Editable Election", models.ElectionDraft)

	putJSON := func(path string, body interface{}) *httptest.ResponseRecorder {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPut, path, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	newTitle := "Renamed Election"
	newStatus := models.ElectionActive
	w := putJSON("/elections/"+election.ID.String(), models.UpdateElectionRequest{
		Title:  &newTitle,
		Status: &newStatus,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var updated models.Election
	require.NoError(t, json.NewDecoder(w.Body).Decode(&updated))
	require.Equal(t, "Renamed Election", updated.Title)
	require.Equal(t, models.ElectionActive, updated.Status)
	require.Equal(t, election.StartDate.Unix(), updated.StartDate.Unix(), "unset fields keep their values")

	// Dates cannot be inverted by a partial update
	badEnd := election.StartDate.Add(-time.Hour)
	w = putJSON("/elections/"+election.ID.String(), models.UpdateElectionRequest{
		EndDate: &badEnd,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = putJSON("/elections/"+uuid.New().String(), models.UpdateElectionRequest{Title: &newTitle})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestElectionHandler_Delete(t *testing.T) {
	tc := testutil.NewTestContext(t)
	router := electionRouter(tc)

	election := tc.CreateTestElection("Doomed Election", models.ElectionDraft)

	del := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodDelete, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	require.Equal(t, http.StatusOK, del("/elections/"+election.ID.String()).Code)
	require.Equal(t, http.StatusNotFound, del("/elections/"+election.ID.String()).Code)
}

func TestElectionHandler_Results(t *testing.T) {
	tc := testutil.NewTestContext(t)
	router := electionRouter(tc)

	election := tc.CreateTestElection("Results Election", models.ElectionActive)
	candidate := tc.CreateTestCandidate(election.ID, "Candidate A", "Party A")

	voter := tc.CreateTestVoter("Results Voter", "results@example.com", "password123")
	voteW := postJSON(t, voteRouter(tc, voter), "/votes", models.CastVoteRequest{
		ElectionID:  election.ID,
		CandidateID: candidate.ID,
	})
	require.Equal(t, http.StatusOK, voteW.Code)

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	// Results stay hidden until the election closes
	w := get(fmt.Sprintf("/elections/%s/results", election.ID))
	require.Equal(t, http.StatusBadRequest, w.Code)

	_, err := tc.DB.Exec("UPDATE elections SET status = 'closed' WHERE id = $1", election.ID)
	require.NoError(t, err)

	w = get(fmt.Sprintf("/elections/%s/results", election.ID))
	require.Equal(t, http.StatusOK, w.Code)

	var results struct {
		ElectionID uuid.UUID `json:"election_id"`
		TotalVotes int       `json:"total_votes"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&results))
	require.Equal(t, election.ID, results.ElectionID)
	require.Equal(t, 1, results.TotalVotes)
}

func TestCandidateHandler(t *testing.T) {
	tc := testutil.NewTestContext(t)
	router := electionRouter(tc)

	election := tc.CreateTestElection("Candidate Election", models.ElectionDraft)

	w := postJSON(t, router, fmt.Sprintf("/elections/%s/candidates", election.ID), models.CreateCandidateRequest{
		Name:  "Candidate A",
		Party: "Party A",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Candidate
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	require.Equal(t, election.ID, created.ElectionID)

	// Unknown election
	w = postJSON(t, router, fmt.Sprintf("/elections/%s/candidates", uuid.New()), models.CreateCandidateRequest{
		Name: "Orphan Candidate",
	})
	require.Equal(t, http.StatusNotFound, w.Code)

	// List
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/elections/%s/candidates", election.ID), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []models.Candidate
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&listed))
	require.Len(t, listed, 1)

	// Delete
	req = httptest.NewRequest(http.MethodDelete,
		fmt.Sprintf("/elections/%s/candidates/%s", election.ID, created.ID), nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodDelete,
		fmt.Sprintf("/elections/%s/candidates/%s", election.ID, created.ID), nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
