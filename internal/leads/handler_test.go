package leads

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/roofing-lead-agent/pkg/logging"
)

type countingRecorder struct {
	results []string
}

func (c *countingRecorder) ObserveLeadSaved(result string) {
	c.results = append(c.results, result)
}

func newTestRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/leads", h.Create)
	r.Get("/api/leads", h.ListLeads)
	r.Get("/api/leads/export.csv", h.ExportCSV)
	r.Get("/api/leads/{id}", h.GetLead)
	r.Put("/api/leads/{id}", h.UpdateLead)
	r.Delete("/api/leads/{id}", h.DeleteLead)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestCreate_NewThenRepeat(t *testing.T) {
	rec := &countingRecorder{}
	h := NewHandler(NewInMemoryRepository(), logging.New("error")).WithRecorder(rec)
	router := newTestRouter(h)

	body := map[string]any{"name": "John Doe", "phone": "(415) 867-5309", "problem": "Roof leaking into the attic"}
	w := doJSON(t, router, http.MethodPost, "/api/leads", body)
	require.Equal(t, http.StatusCreated, w.Code)

	var lead Lead
	require.NoError(t, json.NewDecoder(w.Body).Decode(&lead))
	assert.Equal(t, "John Doe", lead.Name)
	assert.Equal(t, "web_form", lead.Source)
	assert.Equal(t, StatusNew, lead.Status)

	w = doJSON(t, router, http.MethodPost, "/api/leads", map[string]any{"name": "John Doe", "phone": "4158675309", "city": "Denver"})
	require.Equal(t, http.StatusOK, w.Code)
	var again Lead
	require.NoError(t, json.NewDecoder(w.Body).Decode(&again))
	assert.Equal(t, lead.ID, again.ID)
	assert.Equal(t, "Denver", again.City)

	assert.Equal(t, []string{"created", "updated"}, rec.results)
}

func TestCreate_InvalidRequests(t *testing.T) {
	router := newTestRouter(NewHandler(NewInMemoryRepository(), logging.New("error")))

	req := httptest.NewRequest(http.MethodPost, "/api/leads", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/leads", map[string]any{"name": "John Doe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), ErrMissingContact.Error())
}

func TestListUpdateDelete(t *testing.T) {
	repo := NewInMemoryRepository()
	router := newTestRouter(NewHandler(repo, nil))

	lead, _, err := repo.Upsert(context.Background(), &CreateLeadRequest{Name: "Jane Smith", Phone: "4158675309"})
	require.NoError(t, err)
	_, _, err = repo.Upsert(context.Background(), &CreateLeadRequest{Name: "Bob Jones", Email: "bob@example.com"})
	require.NoError(t, err)

	w := doJSON(t, router, http.MethodGet, "/api/leads?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list ListLeadsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, 1, list.Limit)

	w = doJSON(t, router, http.MethodGet, "/api/leads?status=archived", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPut, "/api/leads/"+lead.ID, map[string]any{"status": "contacted"})
	require.Equal(t, http.StatusOK, w.Code)
	var updated Lead
	require.NoError(t, json.NewDecoder(w.Body).Decode(&updated))
	assert.Equal(t, StatusContacted, updated.Status)

	w = doJSON(t, router, http.MethodPut, "/api/leads/"+lead.ID, map[string]any{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPut, "/api/leads/missing", map[string]any{"status": "contacted"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/leads/"+lead.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/api/leads/"+lead.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	w = doJSON(t, router, http.MethodDelete, "/api/leads/"+lead.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportCSV(t *testing.T) {
	repo := NewInMemoryRepository()
	_, _, err := repo.Upsert(context.Background(), &CreateLeadRequest{
		Name:    "Jane Smith",
		Phone:   "4158675309",
		Problem: "Leak, near the chimney",
	})
	require.NoError(t, err)
	router := newTestRouter(NewHandler(repo, logging.New("error")))

	w := doJSON(t, router, http.MethodGet, "/api/leads/export.csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment;")

	records, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, "Jane Smith", records[1][1])
	assert.Equal(t, "Leak, near the chimney", records[1][9])
	assert.Equal(t, "1", records[1][10])
}
