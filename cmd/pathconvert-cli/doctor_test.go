package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pathconvert/pathconvert/client"
)

func TestLastJobCheck(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       any
		wantPassed bool
		wantDetail string
	}{
		{
			name:       "no jobs yet",
			status:     http.StatusNotFound,
			body:       map[string]string{"code": "not_found", "message": "no jobs"},
			wantPassed: true,
			wantDetail: "none yet",
		},
		{
			name:       "complete",
			status:     http.StatusOK,
			body:       client.Job{Type: client.JobAnalyseDeploy, Status: client.JobComplete, Progress: 100},
			wantPassed: true,
			wantDetail: "analyse_deploy complete (100%)",
		},
		{
			name:       "failed",
			status:     http.StatusOK,
			body:       client.Job{Type: client.JobEmbedCollections, Status: client.JobFailed, Error: "quota exceeded"},
			wantDetail: "embed_collections failed: quota exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(tt.body)
			}))
			defer srv.Close()

			got := lastJobCheck(context.Background(), client.New(srv.URL, client.WithAPIKey("pc_test")))

			if got.Passed != tt.wantPassed {
				t.Errorf("passed = %v, want %v", got.Passed, tt.wantPassed)
			}
			if got.Detail != tt.wantDetail {
				t.Errorf("detail = %q, want %q", got.Detail, tt.wantDetail)
			}
		})
	}
}

func TestPrintDoctor(t *testing.T) {
	results := []checkResult{
		{Name: "Config file", Passed: true, Detail: "/home/u/.pathconvert/config.yaml"},
		{Name: "API key", Hint: "Set --api-key"},
	}

	t.Run("checklist", func(t *testing.T) {
		var buf bytes.Buffer
		if err := printDoctor(&buf, false, results); err != nil {
			t.Fatal(err)
		}

		want := "ok   Config file: /home/u/.pathconvert/config.yaml\n" +
			"FAIL API key\n" +
			"     Set --api-key\n"
		if buf.String() != want {
			t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
		}
	})

	t.Run("quiet lists failures", func(t *testing.T) {
		resetFlags(t)
		flagFmt = formatQuiet

		var buf bytes.Buffer
		if err := printDoctor(&buf, true, results); err != nil {
			t.Fatal(err)
		}
		if strings.TrimSpace(buf.String()) != "API key" {
			t.Errorf("got %q", buf.String())
		}
	})
}
