package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/pathconvert/pathconvert/internal/api"
	"github.com/pathconvert/pathconvert/internal/httputil"
	"github.com/pathconvert/pathconvert/internal/models"
)

func TestJobCreate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantErr  string
	}{
		{name: "accepted", body: `{"type":"analyse_deploy"}`, wantCode: http.StatusAccepted},
		{name: "not entitled", body: `{"type":"analyse_deploy"}`, err: models.ErrNotEntitled, wantCode: http.StatusForbidden, wantErr: api.ErrCodeNotEntitled},
		{name: "unknown type", body: `{"type":"reindex"}`, wantCode: http.StatusBadRequest, wantErr: api.ErrCodeValidationError},
		{name: "bad json", body: `{"type":`, wantCode: http.StatusBadRequest, wantErr: api.ErrCodeInvalidRequest},
		{name: "store failure", body: `{"type":"build_edges"}`, err: errors.New("db down"), wantCode: http.StatusInternalServerError, wantErr: api.ErrCodeInternalError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockJobService{
				createFn: func(_ context.Context, shopID uuid.UUID, jobType models.JobType) (*models.Job, error) {
					if tc.err != nil {
						return nil, tc.err
					}

					return &models.Job{ID: uuid.New(), ShopID: shopID, Type: jobType, Status: models.JobPending}, nil
				},
			}

			r := newTestRouter()
			r.POST("/jobs", api.NewJobHandler(svc, testLogger()).Create)

			w := doRequest(r, http.MethodPost, "/jobs", tc.body)
			if w.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d: %s", w.Code, tc.wantCode, w.Body.String())
			}

			if tc.wantErr == "" {
				var job models.Job
				if err := json.Unmarshal(w.Body.Bytes(), &job); err != nil {
					t.Fatalf("invalid JSON: %v", err)
				}

				if job.Status != models.JobPending {
					t.Errorf("status = %q", job.Status)
				}

				return
			}

			var body httputil.ErrorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}

			if body.Code != tc.wantErr {
				t.Errorf("code = %q, want %q", body.Code, tc.wantErr)
			}
		})
	}
}

func TestJobGet(t *testing.T) {
	t.Parallel()

	known := uuid.New()
	svc := &mockJobService{
		getFn: func(_ context.Context, shopID, jobID uuid.UUID) (*models.Job, error) {
			if shopID != testShopID || jobID != known {
				return nil, models.ErrJobNotFound
			}

			return &models.Job{ID: jobID, Status: models.JobRunning, Progress: 40, Step: "Generating AI embeddings"}, nil
		},
		latestFn: func(context.Context, uuid.UUID) (*models.Job, error) {
			return nil, models.ErrJobNotFound
		},
	}

	h := api.NewJobHandler(svc, testLogger())
	r := newTestRouter()
	r.GET("/jobs/latest", h.Latest)
	r.GET("/jobs/:id", h.Get)

	tests := []struct {
		path string
		want int
	}{
		{"/jobs/" + known.String(), http.StatusOK},
		{"/jobs/" + uuid.NewString(), http.StatusNotFound},
		{"/jobs/not-a-uuid", http.StatusBadRequest},
		{"/jobs/latest", http.StatusNotFound},
	}

	for _, tc := range tests {
		if w := doRequest(r, http.MethodGet, tc.path, ""); w.Code != tc.want {
			t.Errorf("GET %s = %d, want %d", tc.path, w.Code, tc.want)
		}
	}
}
