package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/forms-api/controllers"
	"github.com/yeremiapane/forms-api/database"
	"github.com/yeremiapane/forms-api/feed"
	"github.com/yeremiapane/forms-api/models"
	"github.com/yeremiapane/forms-api/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestStore(t *testing.T) *database.LocalStore {
	t.Helper()
	store, err := database.OpenLocal(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

type fakeEnricher struct {
	profile *services.XProfile
	links   []string
}

func (f *fakeEnricher) Enrich(_ context.Context, link string) *services.XProfile {
	f.links = append(f.links, link)
	return f.profile
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []feed.SubmissionEvent
}

func (n *recordingNotifier) BroadcastSubmission(ev feed.SubmissionEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func setupFormRouter(store database.Store, enricher controllers.Enricher, notifier controllers.SubmissionNotifier) *gin.Engine {
	r := gin.New()
	fc := controllers.NewFormController(store, enricher, notifier)
	r.GET("/forms", fc.ListForms)
	r.POST("/forms/:formName", fc.CreateSubmission)
	r.GET("/forms/:formName/submissions", fc.ListSubmissions)
	r.GET("/forms/:formName/submissions/:id", fc.GetSubmission)
	r.GET("/forms/:formName/stats", fc.GetStats)
	return r
}

func postJSON(r http.Handler, path string, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	r.ServeHTTP(w, req)
	return w
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

type listResponse struct {
	Page        int                 `json:"page"`
	Limit       int                 `json:"limit"`
	Total       int64               `json:"total"`
	Submissions []models.Submission `json:"submissions"`
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) listResponse {
	t.Helper()
	var resp listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCreateSubmission(t *testing.T) {
	store := setupTestStore(t)
	notifier := &recordingNotifier{}
	r := setupFormRouter(store, nil, notifier)

	w := postJSON(r, "/forms/apply", `{"fullName":"Ada","region":"X","followers":1200}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		ID        uint64 `json:"id"`
		Form      string `json:"form"`
		CreatedAt string `json:"created_at"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotZero(t, resp.ID)
	assert.Equal(t, "apply", resp.Form)
	assert.NotEmpty(t, resp.CreatedAt)

	sub, err := store.GetSubmission(context.Background(), "apply", resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "test-agent", *sub.UserAgent)
	assert.Equal(t, "203.0.113.7", *sub.IP)
	assert.JSONEq(t, `{"fullName":"Ada","region":"X","followers":1200}`, string(sub.Payload))

	require.Len(t, notifier.events, 1)
	assert.Equal(t, resp.ID, notifier.events[0].ID)
	assert.Equal(t, "apply", notifier.events[0].Form)
}

func TestCreateSubmissionSanitizesFormName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/forms/Apply%20Form!", "apply-form-"},
		{"/forms/%20%20", "default"},
		{"/forms/" + strings.Repeat("a", 80), strings.Repeat("a", 64)},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			r := setupFormRouter(setupTestStore(t), nil, nil)
			w := postJSON(r, tt.path, `{}`)
			require.Equal(t, http.StatusCreated, w.Code)

			var resp map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp["form"])
		})
	}
}

func TestCreateSubmissionBodies(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        string
	}{
		{"json object", "application/json", `{"a":"b"}`, `{"a":"b"}`},
		{"json array", "application/json", `[1,2,3]`, `{}`},
		{"json scalar", "application/json", `"hello"`, `{}`},
		{"invalid json", "application/json", `{"a":`, `{}`},
		{"empty body", "application/json", ``, `{}`},
		{"urlencoded", "application/x-www-form-urlencoded", `fullName=Ada+L&skills=Dev&skills=Design`, `{"fullName":"Ada L","skills":["Dev","Design"]}`},
		{"urlencoded brackets stay flat", "application/x-www-form-urlencoded", `profile[handle]=ada`, `{"profile[handle]":"ada"}`},
		{"plain text", "text/plain", `{"a":"b"}`, `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupTestStore(t)
			r := setupFormRouter(store, nil, nil)

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodPost, "/forms/contact", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			r.ServeHTTP(w, req)
			require.Equal(t, http.StatusCreated, w.Code)

			subs, err := store.ListSubmissions(context.Background(), "contact", 1, 0)
			require.NoError(t, err)
			require.Len(t, subs, 1)
			assert.JSONEq(t, tt.want, string(subs[0].Payload))
			assert.Nil(t, subs[0].UserAgent)
		})
	}
}

func TestCreateSubmissionEnrichment(t *testing.T) {
	followers := int64(42)
	profile := &services.XProfile{Username: "ada", ProfileImageURL: "https://img/ada.png", FollowersCount: &followers}

	tests := []struct {
		name      string
		body      string
		profile   *services.XProfile
		wantLinks []string
		want      string
	}{
		{
			name:      "merges profile and fills followers",
			body:      `{"xProfile":"https://x.com/ada"}`,
			profile:   profile,
			wantLinks: []string{"https://x.com/ada"},
			want:      `{"xProfile":"https://x.com/ada","xUsername":"ada","xProfileImageUrl":"https://img/ada.png","xFollowersCount":42,"followers":"42"}`,
		},
		{
			name:      "keeps submitted followers",
			body:      `{"x profile link":"@ada","followers":"10k"}`,
			profile:   profile,
			wantLinks: []string{"@ada"},
			want:      `{"x profile link":"@ada","followers":"10k","xUsername":"ada","xProfileImageUrl":"https://img/ada.png","xFollowersCount":42}`,
		},
		{
			name:      "no profile found",
			body:      `{"xProfile":"https://x.com/ghost"}`,
			wantLinks: []string{"https://x.com/ghost"},
			want:      `{"xProfile":"https://x.com/ghost"}`,
		},
		{
			name:    "no link",
			body:    `{"xProfile":"   ","fullName":"Ada"}`,
			profile: profile,
			want:    `{"xProfile":"   ","fullName":"Ada"}`,
		},
		{
			name:    "non-string link",
			body:    `{"xProfile":12}`,
			profile: profile,
			want:    `{"xProfile":12}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupTestStore(t)
			enricher := &fakeEnricher{profile: tt.profile}
			r := setupFormRouter(store, enricher, nil)

			w := postJSON(r, "/forms/apply", tt.body)
			require.Equal(t, http.StatusCreated, w.Code)
			assert.Equal(t, tt.wantLinks, enricher.links)

			subs, err := store.ListSubmissions(context.Background(), "apply", 1, 0)
			require.NoError(t, err)
			require.Len(t, subs, 1)
			assert.JSONEq(t, tt.want, string(subs[0].Payload))
		})
	}
}

func TestCreateSubmissionStoreFailure(t *testing.T) {
	store, err := database.OpenLocal(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	notifier := &recordingNotifier{}
	r := setupFormRouter(store, nil, notifier)

	w := postJSON(r, "/forms/apply", `{"fullName":"Ada"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"failed_to_store_submission"}`, w.Body.String())
	assert.Empty(t, notifier.events)

	w = get(r, "/forms/apply/submissions")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"failed_to_list_submissions"}`, w.Body.String())

	w = get(r, "/forms/apply/submissions/1")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"failed_to_get_submission"}`, w.Body.String())

	w = get(r, "/forms/apply/stats")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"failed_to_get_stats"}`, w.Body.String())

	w = get(r, "/forms")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"forms":[]}`, w.Body.String())
}

func TestListSubmissions(t *testing.T) {
	store := setupTestStore(t)
	r := setupFormRouter(store, nil, nil)

	var ids []uint64
	for i := 0; i < 3; i++ {
		res, err := store.StoreSubmission(context.Background(), "apply", map[string]interface{}{"i": i}, "", "")
		require.NoError(t, err)
		ids = append(ids, res.ID)
	}

	w := get(r, "/forms/apply/submissions")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeList(t, w)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 50, resp.Limit)
	assert.Equal(t, int64(3), resp.Total)
	require.Len(t, resp.Submissions, 3)
	assert.Equal(t, ids[2], resp.Submissions[0].ID)
	assert.Equal(t, "apply", resp.Submissions[0].FormName)

	w = get(r, "/forms/apply/submissions?page=2&limit=2")
	resp = decodeList(t, w)
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 2, resp.Limit)
	require.Len(t, resp.Submissions, 1)
	assert.Equal(t, ids[0], resp.Submissions[0].ID)

	w = get(r, "/forms/empty/submissions")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"submissions":[]`)
}

func TestListSubmissionsPaginationBounds(t *testing.T) {
	r := setupFormRouter(setupTestStore(t), nil, nil)

	tests := []struct {
		query     string
		wantPage  int
		wantLimit int
	}{
		{"limit=0", 1, 1},
		{"limit=9999", 1, 200},
		{"page=0", 1, 50},
		{"page=-3&limit=-1", 1, 1},
		{"page=abc&limit=xyz", 1, 50},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := get(r, "/forms/apply/submissions?"+tt.query)
			require.Equal(t, http.StatusOK, w.Code)
			resp := decodeList(t, w)
			assert.Equal(t, tt.wantPage, resp.Page)
			assert.Equal(t, tt.wantLimit, resp.Limit)
		})
	}
}

func TestGetSubmissionAndStats(t *testing.T) {
	store := setupTestStore(t)
	r := setupFormRouter(store, nil, nil)

	w := get(r, "/forms/apply/stats")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"form":"apply","total":0,"latest":null}`, w.Body.String())

	res, err := store.StoreSubmission(context.Background(), "apply", map[string]interface{}{"fullName": "Ada"}, "", "")
	require.NoError(t, err)

	w = get(r, "/forms/apply/submissions/"+jsonNumber(res.ID))
	require.Equal(t, http.StatusOK, w.Code)
	var detail struct {
		Submission models.Submission `json:"submission"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, res.ID, detail.Submission.ID)

	w = get(r, "/forms/other/submissions/"+jsonNumber(res.ID))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"not_found"}`, w.Body.String())

	w = get(r, "/forms/apply/submissions/abc")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(r, "/forms/apply/stats")
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		Form   string  `json:"form"`
		Total  int64   `json:"total"`
		Latest *string `json:"latest"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.Total)
	assert.NotNil(t, stats.Latest)

	w = get(r, "/forms")
	assert.JSONEq(t, `{"forms":["apply"]}`, w.Body.String())
}

func jsonNumber(id uint64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
