package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionHandler(t *testing.T) {
	tests := []struct {
		name                          string
		version, gitCommit, buildDate string
		want                          versionResponse
	}{
		{
			name:      "all values",
			version:   "0.3.0",
			gitCommit: "abc123def456",
			buildDate: "2026-09-30T12:00:00Z",
			want:      versionResponse{Version: "0.3.0", GitCommit: "abc123def456", BuildDate: "2026-09-30T12:00:00Z"},
		},
		{
			name: "defaults",
			want: versionResponse{Version: "dev", GitCommit: "unknown", BuildDate: "unknown"},
		},
		{
			name:      "partial",
			version:   "1.0.0",
			buildDate: "2026-09-30T12:00:00Z",
			want:      versionResponse{Version: "1.0.0", GitCommit: "unknown", BuildDate: "2026-09-30T12:00:00Z"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			VersionHandler(tt.version, tt.gitCommit, tt.buildDate).
				ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

			require.Equal(t, http.StatusOK, rec.Code)
			require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var got versionResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			tt.want.Service = "pitchside"
			tt.want.GoVersion = runtime.Version()
			require.Equal(t, tt.want, got)
		})
	}
}
