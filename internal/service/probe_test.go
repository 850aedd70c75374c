package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nooperation/slutils/internal/config"
	"github.com/nooperation/slutils/pkg/logger"
)

func TestProber_Probe(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{name: "healthy", status: http.StatusOK, body: "OK.", wantErr: false},
		{name: "wrong body", status: http.StatusOK, body: "OK", wantErr: true},
		{name: "body with trailing data", status: http.StatusOK, body: "OK.extra", wantErr: true},
		{name: "server error", status: http.StatusInternalServerError, body: "OK.", wantErr: true},
		{name: "not found", status: http.StatusNotFound, body: "OK.", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer upstream.Close()

			prober := NewProber(config.ProbeConfig{Timeout: 2 * time.Second}, logger.New())
			err := prober.Probe(context.Background(), upstream.URL, StatusProbePath)

			if tt.wantErr && err == nil {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if gotPath != StatusProbePath {
				t.Errorf("expected probe against %q, got %q", StatusProbePath, gotPath)
			}
		})
	}
}

func TestProber_NetworkFailure(t *testing.T) {
	prober := NewProber(config.ProbeConfig{Timeout: time.Second}, logger.New())

	err := prober.Probe(context.Background(), "http://127.0.0.1:1", ConfirmProbePath)
	if err == nil {
		t.Error("expected error for unreachable upstream, got none")
	}
}
