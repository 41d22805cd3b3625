package loadtest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCalculateCurrentRPS(t *testing.T) {
	config := ProfileConfig{
		RequestsPerSecond: 40,
		Duration:          time.Minute,
		RampUpTime:        10 * time.Second,
		RampDownTime:      10 * time.Second,
	}

	tests := []struct {
		elapsed time.Duration
		want    int
	}{
		{0, 1},
		{5 * time.Second, 20},
		{10 * time.Second, 40},
		{40 * time.Second, 40},
		{75 * time.Second, 20},
		{2 * time.Minute, 1},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, calculateCurrentRPS(tt.elapsed, config), "elapsed %s", tt.elapsed)
	}
}

func TestCalculatePercentile(t *testing.T) {
	times := []int64{50, 10, 40, 20, 30}
	require.EqualValues(t, 30, calculatePercentile(times, 0.5))
	require.EqualValues(t, 50, calculatePercentile(times, 0.99))
	require.Equal(t, []int64{50, 10, 40, 20, 30}, times, "input must not be reordered")
	require.Zero(t, calculatePercentile(nil, 0.5))
}

func TestRandomTeamIsValidInput(t *testing.T) {
	lt := NewLoadTester("http://unused").WithSeed(7)
	for range 20 {
		team := lt.randomTeam()
		short, ok := team["shortName"].(string)
		require.True(t, ok)
		require.Regexp(t, `^[A-Z]{3}$`, short)
		require.NotEmpty(t, team["name"])
	}
}

func TestRunCustom(t *testing.T) {
	var reads, writes, authorized atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			writes.Add(1)
			if r.Header.Get("Authorization") == "Bearer test-token" {
				authorized.Add(1)
			}
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusCreated)
			return
		}
		reads.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	lt := NewLoadTester(server.URL).WithToken("test-token").WithSeed(1)
	stats, err := lt.RunCustom(context.Background(), ProfileConfig{
		RequestsPerSecond: 100,
		Duration:          300 * time.Millisecond,
		ReadWriteRatio:    0.5,
	})
	require.NoError(t, err)

	total, success, failed, limited := stats.Counts()
	require.Positive(t, total)
	require.Equal(t, total, success)
	require.Zero(t, failed)
	require.Zero(t, limited)
	require.EqualValues(t, total, reads.Load()+writes.Load())
	require.Equal(t, writes.Load(), authorized.Load())
	require.Contains(t, stats.Report(), "LOAD TEST RESULTS")
}

func TestRunCustomCountsRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	stats, err := NewLoadTester(server.URL).RunCustom(context.Background(), ProfileConfig{
		RequestsPerSecond: 50,
		Duration:          100 * time.Millisecond,
		ReadWriteRatio:    1,
	})
	require.NoError(t, err)

	total, success, failed, limited := stats.Counts()
	require.Positive(t, total)
	require.Zero(t, success)
	require.Equal(t, total, failed)
	require.Equal(t, total, limited)
	require.Contains(t, stats.Report(), "429:")
}

func TestRunRejectsUnknownProfile(t *testing.T) {
	_, err := NewLoadTester("http://unused").Run(context.Background(), "tsunami")
	require.Error(t, err)
}
