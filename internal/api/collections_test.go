package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/pathconvert/pathconvert/internal/api"
	"github.com/pathconvert/pathconvert/internal/models"
)

func TestCollectionList(t *testing.T) {
	t.Parallel()

	admin := &mockAdminService{
		listFn: func(context.Context, uuid.UUID) ([]models.CollectionSummary, error) {
			return nil, nil
		},
	}

	r := newTestRouter()
	r.GET("/collections", api.NewCollectionHandler(admin, nil, testLogger()).List)

	w := doRequest(r, http.MethodGet, "/collections", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	if w.Body.String() != `{"collections":[]}` {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestCollectionSetState(t *testing.T) {
	t.Parallel()

	var got models.SetCollectionsStateRequest

	admin := &mockAdminService{
		setStateFn: func(_ context.Context, _ uuid.UUID, req models.SetCollectionsStateRequest) (int, error) {
			got = req
			return len(req.IDs), nil
		},
	}

	r := newTestRouter()
	r.POST("/collections/state", api.NewCollectionHandler(admin, nil, testLogger()).SetState)

	id := uuid.New()

	w := doRequest(r, http.MethodPost, "/collections/state", `{"ids":["`+id.String()+`"],"enabled":false}`)
	if w.Code != http.StatusOK || w.Body.String() != `{"updated":1}` {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	if len(got.IDs) != 1 || got.IDs[0] != id || got.Enabled {
		t.Errorf("request = %+v", got)
	}

	if w := doRequest(r, http.MethodPost, "/collections/state", `{"ids":[],"enabled":true}`); w.Code != http.StatusBadRequest {
		t.Errorf("empty ids: status = %d, want 400", w.Code)
	}
}

func TestCollectionPreview(t *testing.T) {
	t.Parallel()

	recs := &mockRecommendations{
		getFn: func(_ context.Context, _ uuid.UUID, handle string) ([]models.Recommendation, error) {
			if handle != "summer" {
				return []models.Recommendation{}, nil
			}

			return []models.Recommendation{{Title: "Sandals", URL: "/collections/sandals", Score: 0.8, Rank: 1}}, nil
		},
	}

	r := newTestRouter()
	r.GET("/collections/:handle/recommendations", api.NewCollectionHandler(nil, recs, testLogger()).Preview)

	w := doRequest(r, http.MethodGet, "/collections/summer/recommendations", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var body struct {
		Recommendations []models.Recommendation `json:"recommendations"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if len(body.Recommendations) != 1 || body.Recommendations[0].URL != "/collections/sandals" {
		t.Errorf("recommendations = %+v", body.Recommendations)
	}
}

func TestSettingsUpdate(t *testing.T) {
	t.Parallel()

	admin := &mockAdminService{
		updateSettingsFn: func(_ context.Context, _ uuid.UUID, req models.UpdateSettingsRequest) (models.Settings, error) {
			if err := req.Validate(); err != nil {
				return models.Settings{}, err
			}

			return req.Apply(models.DefaultSettings()), nil
		},
		getSettingsFn: func(context.Context, uuid.UUID) (models.Settings, error) {
			return models.DefaultSettings(), nil
		},
	}

	h := api.NewSettingsHandler(admin, testLogger())
	r := newTestRouter()
	r.GET("/settings", h.Get)
	r.PUT("/settings", h.Update)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid", `{"max_buttons":8,"alignment":"center"}`, http.StatusOK},
		{"too many buttons", `{"max_buttons":21}`, http.StatusBadRequest},
		{"zero buttons", `{"max_buttons":0}`, http.StatusBadRequest},
		{"bad alignment", `{"alignment":"justify"}`, http.StatusBadRequest},
		{"bad json", `{`, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if w := doRequest(r, http.MethodPut, "/settings", tc.body); w.Code != tc.want {
				t.Errorf("status = %d, want %d: %s", w.Code, tc.want, w.Body.String())
			}
		})
	}

	w := doRequest(r, http.MethodGet, "/settings", "")
	if w.Code != http.StatusOK || w.Body.String() != `{"max_buttons":15,"alignment":"left"}` {
		t.Errorf("GET /settings = %d %s", w.Code, w.Body.String())
	}
}
