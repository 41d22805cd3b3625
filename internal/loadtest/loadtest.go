// Package loadtest generates traffic against a running server to exercise
// the rate limiter, the metrics dashboards and the database pool.
package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"slices"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoadProfile names a predefined scenario.
type LoadProfile string

const (
	ProfileLight  LoadProfile = "light"  // 5 req/s, 1 minute
	ProfileMedium LoadProfile = "medium" // 20 req/s, 2 minutes
	ProfileHeavy  LoadProfile = "heavy"  // 50 req/s, 5 minutes
	ProfileMatch  LoadProfile = "match"  // live-score polling during a match day
)

// ProfileConfig defines the parameters for a load test.
type ProfileConfig struct {
	RequestsPerSecond int           // Target requests per second
	Duration          time.Duration // Steady-state duration
	RampUpTime        time.Duration // Time to gradually reach target RPS
	RampDownTime      time.Duration // Time to gradually decrease RPS
	ReadWriteRatio    float64       // 0.8 = 80% reads, 20% writes
}

// Total is the full run length including both ramps.
func (c ProfileConfig) Total() time.Duration {
	return c.RampUpTime + c.Duration + c.RampDownTime
}

var LoadProfiles = map[LoadProfile]ProfileConfig{
	ProfileLight: {
		RequestsPerSecond: 5,
		Duration:          1 * time.Minute,
		RampUpTime:        10 * time.Second,
		RampDownTime:      10 * time.Second,
		ReadWriteRatio:    0.9,
	},
	ProfileMedium: {
		RequestsPerSecond: 20,
		Duration:          2 * time.Minute,
		RampUpTime:        20 * time.Second,
		RampDownTime:      20 * time.Second,
		ReadWriteRatio:    0.9,
	},
	ProfileHeavy: {
		RequestsPerSecond: 50,
		Duration:          5 * time.Minute,
		RampUpTime:        30 * time.Second,
		RampDownTime:      30 * time.Second,
		ReadWriteRatio:    0.8,
	},
	ProfileMatch: {
		RequestsPerSecond: 40,
		Duration:          10 * time.Minute,
		RampUpTime:        2 * time.Minute,
		RampDownTime:      2 * time.Minute,
		ReadWriteRatio:    1,
	},
}

// LoadTester orchestrates load testing operations.
type LoadTester struct {
	baseURL    string
	httpClient *http.Client
	token      string
	rng        *rand.Rand
	rngMu      sync.Mutex
	stats      *Statistics
}

func NewLoadTester(baseURL string) *LoadTester {
	return &LoadTester{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		rng:        rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		stats:      newStatistics(),
	}
}

// WithToken sends writes with a bearer token. Without one, writes are
// expected to fail with 401 and only measure the auth path.
func (lt *LoadTester) WithToken(token string) *LoadTester {
	lt.token = token
	return lt
}

// WithSeed makes the request mix reproducible.
func (lt *LoadTester) WithSeed(seed uint64) *LoadTester {
	lt.rng = rand.New(rand.NewPCG(seed, 0))
	return lt
}

func (lt *LoadTester) Run(ctx context.Context, profile LoadProfile) (*Statistics, error) {
	config, exists := LoadProfiles[profile]
	if !exists {
		return nil, fmt.Errorf("unknown profile: %s", profile)
	}
	return lt.RunCustom(ctx, config)
}

func (lt *LoadTester) RunCustom(ctx context.Context, config ProfileConfig) (*Statistics, error) {
	if config.RequestsPerSecond <= 0 {
		return nil, fmt.Errorf("requests per second must be positive")
	}
	lt.stats = newStatistics()

	workers := max(config.RequestsPerSecond*2, 10)
	workChan := make(chan workItem, workers*2)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lt.worker(ctx, workChan)
		}()
	}

	go func() {
		defer close(workChan)
		lt.generateWork(ctx, config, workChan)
	}()

	wg.Wait()
	lt.stats.endTime = time.Now()
	return lt.stats, nil
}

type workItem struct {
	method   string
	path     string
	body     any
	endpoint string
}

// generateWork paces requests with a token bucket whose rate follows the
// ramp schedule.
func (lt *LoadTester) generateWork(ctx context.Context, config ProfileConfig, workChan chan<- workItem) {
	start := time.Now()
	limiter := rate.NewLimiter(rate.Limit(calculateCurrentRPS(0, config)), 1)
	total := config.Total()

	for {
		elapsed := time.Since(start)
		if elapsed > total {
			return
		}
		limiter.SetLimit(rate.Limit(calculateCurrentRPS(elapsed, config)))
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		var work workItem
		if lt.float64() < config.ReadWriteRatio {
			work = lt.generateReadRequest()
		} else {
			work = lt.generateWriteRequest()
		}
		select {
		case workChan <- work:
		case <-ctx.Done():
			return
		}
	}
}

func calculateCurrentRPS(elapsed time.Duration, config ProfileConfig) int {
	target := config.RequestsPerSecond

	if elapsed < config.RampUpTime {
		progress := float64(elapsed) / float64(config.RampUpTime)
		return max(int(float64(target)*progress), 1)
	}

	steadyEnd := config.RampUpTime + config.Duration
	if elapsed < steadyEnd {
		return target
	}

	if into := elapsed - steadyEnd; into < config.RampDownTime {
		progress := float64(into) / float64(config.RampDownTime)
		return max(int(float64(target)*(1.0-progress)), 1)
	}
	return 1
}

var readOperations = []workItem{
	{method: http.MethodGet, path: "/healthz", endpoint: "healthz"},
	{method: http.MethodGet, path: "/api/teams", endpoint: "list_teams"},
	{method: http.MethodGet, path: "/api/players/stats/top-scorers", endpoint: "top_scorers"},
	{method: http.MethodGet, path: "/api/players/stats/top-wicket-takers", endpoint: "top_wicket_takers"},
	{method: http.MethodGet, path: "/api/matches/live", endpoint: "live_matches"},
	{method: http.MethodGet, path: "/api/matches/upcoming", endpoint: "upcoming_matches"},
	{method: http.MethodGet, path: "/api/tournaments/active", endpoint: "active_tournaments"},
	{method: http.MethodGet, path: "/api/tournaments?limit=5&fields=name,status", endpoint: "list_tournaments"},
}

func (lt *LoadTester) generateReadRequest() workItem {
	return readOperations[lt.intN(len(readOperations))]
}

func (lt *LoadTester) generateWriteRequest() workItem {
	return workItem{
		method:   http.MethodPost,
		path:     "/api/teams",
		body:     lt.randomTeam(),
		endpoint: "create_team",
	}
}

var teamPlaces = []string{"Colombo", "Karachi", "Perth", "Durban", "Leeds", "Pune", "Galle", "Nelson"}
var teamMascots = []string{"Falcons", "Strikers", "Royals", "Tigers", "Gladiators", "Warriors"}

func (lt *LoadTester) randomTeam() map[string]any {
	place := teamPlaces[lt.intN(len(teamPlaces))]
	mascot := teamMascots[lt.intN(len(teamMascots))]
	short := make([]byte, 3)
	for i := range short {
		short[i] = byte('A' + lt.intN(26))
	}
	return map[string]any{
		"name":       place + " " + mascot,
		"shortName":  string(short),
		"homeGround": place + " Oval",
		"manager": map[string]string{
			"name":    "Load Test",
			"contact": "loadtest@pitchside.local",
		},
	}
}

func (lt *LoadTester) intN(n int) int {
	lt.rngMu.Lock()
	defer lt.rngMu.Unlock()
	return lt.rng.IntN(n)
}

func (lt *LoadTester) float64() float64 {
	lt.rngMu.Lock()
	defer lt.rngMu.Unlock()
	return lt.rng.Float64()
}

func (lt *LoadTester) worker(ctx context.Context, workChan <-chan workItem) {
	for {
		select {
		case <-ctx.Done():
			return
		case work, ok := <-workChan:
			if !ok {
				return
			}
			lt.executeRequest(ctx, work)
		}
	}
}

func (lt *LoadTester) executeRequest(ctx context.Context, work workItem) {
	var reqBody io.Reader
	if work.body != nil {
		data, err := json.Marshal(work.body)
		if err != nil {
			lt.stats.recordError(0, work.endpoint)
			return
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, work.method, lt.baseURL+work.path, reqBody)
	if err != nil {
		lt.stats.recordError(0, work.endpoint)
		return
	}
	if work.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if lt.token != "" && work.method != http.MethodGet {
		req.Header.Set("Authorization", "Bearer "+lt.token)
	}

	start := time.Now()
	resp, err := lt.httpClient.Do(req)
	if err != nil {
		lt.stats.recordError(0, work.endpoint)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	// Drain so the full response time is measured.
	_, _ = io.Copy(io.Discard, resp.Body)
	lt.stats.recordResponse(resp.StatusCode, time.Since(start).Milliseconds(), work.endpoint)
}

// Statistics tracks load test metrics.
type Statistics struct {
	mu sync.Mutex

	totalRequests   int64
	successRequests int64
	failedRequests  int64
	rateLimited     int64

	responseTimes []int64       // milliseconds
	errors        map[int]int64 // status code -> count; 0 is a transport error
	endpointStats map[string]*EndpointStats

	startTime time.Time
	endTime   time.Time
}

type EndpointStats struct {
	count   int64
	total   int64
	times   []int64
	errors  int64
	minTime int64
	maxTime int64
}

func newStatistics() *Statistics {
	return &Statistics{
		errors:        make(map[int]int64),
		endpointStats: make(map[string]*EndpointStats),
		startTime:     time.Now(),
	}
}

func (s *Statistics) recordResponse(statusCode int, durationMs int64, endpoint string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalRequests++
	s.responseTimes = append(s.responseTimes, durationMs)
	ok := statusCode >= 200 && statusCode < 300
	if ok {
		s.successRequests++
	} else {
		s.failedRequests++
		s.errors[statusCode]++
	}
	if statusCode == http.StatusTooManyRequests {
		s.rateLimited++
	}

	ep := s.endpointStats[endpoint]
	if ep == nil {
		ep = &EndpointStats{minTime: durationMs, maxTime: durationMs}
		s.endpointStats[endpoint] = ep
	}
	ep.count++
	ep.total += durationMs
	ep.times = append(ep.times, durationMs)
	ep.minTime = min(ep.minTime, durationMs)
	ep.maxTime = max(ep.maxTime, durationMs)
	if !ok {
		ep.errors++
	}
}

func (s *Statistics) recordError(statusCode int, endpoint string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalRequests++
	s.failedRequests++
	s.errors[statusCode]++
	if s.endpointStats[endpoint] == nil {
		s.endpointStats[endpoint] = &EndpointStats{}
	}
	s.endpointStats[endpoint].errors++
}

// Counts returns the total, successful, failed and rate-limited request
// counts.
func (s *Statistics) Counts() (total, success, failed, limited int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalRequests, s.successRequests, s.failedRequests, s.rateLimited
}

// Report renders a summary of the run.
func (s *Statistics) Report() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	duration := s.endTime.Sub(s.startTime)
	total := max(s.totalRequests, 1)

	var b bytes.Buffer
	b.WriteString("\n═══════════════════════════════════════════════════════════════\n")
	b.WriteString("                    LOAD TEST RESULTS\n")
	b.WriteString("═══════════════════════════════════════════════════════════════\n\n")
	fmt.Fprintf(&b, "Duration:        %s\n", duration.Round(time.Second))
	fmt.Fprintf(&b, "Total Requests:  %d\n", s.totalRequests)
	fmt.Fprintf(&b, "Successful:      %d (%.1f%%)\n", s.successRequests, float64(s.successRequests)/float64(total)*100)
	fmt.Fprintf(&b, "Failed:          %d (%.1f%%)\n", s.failedRequests, float64(s.failedRequests)/float64(total)*100)
	fmt.Fprintf(&b, "Rate limited:    %d\n", s.rateLimited)
	if secs := duration.Seconds(); secs > 0 {
		fmt.Fprintf(&b, "Requests/sec:    %.2f\n", float64(s.totalRequests)/secs)
	}
	b.WriteString("\n")

	if len(s.responseTimes) > 0 {
		fmt.Fprintf(&b, "Response Times (ms):\n")
		fmt.Fprintf(&b, "  Average:  %d\n", average(s.responseTimes))
		fmt.Fprintf(&b, "  p50:      %d\n", calculatePercentile(s.responseTimes, 0.50))
		fmt.Fprintf(&b, "  p95:      %d\n", calculatePercentile(s.responseTimes, 0.95))
		fmt.Fprintf(&b, "  p99:      %d\n\n", calculatePercentile(s.responseTimes, 0.99))
	}

	if len(s.errors) > 0 {
		b.WriteString("Errors by Status Code:\n")
		codes := make([]int, 0, len(s.errors))
		for code := range s.errors {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		for _, code := range codes {
			label := fmt.Sprint(code)
			if code == 0 {
				label = "transport"
			}
			fmt.Fprintf(&b, "  %s: %d\n", label, s.errors[code])
		}
		b.WriteString("\n")
	}

	if len(s.endpointStats) > 0 {
		names := make([]string, 0, len(s.endpointStats))
		for name := range s.endpointStats {
			names = append(names, name)
		}
		sort.Strings(names)

		b.WriteString("Per-Endpoint Statistics:\n")
		fmt.Fprintf(&b, "%-20s %8s %8s %8s %8s %8s %8s\n", "Endpoint", "Count", "Errors", "Avg(ms)", "p95(ms)", "Min", "Max")
		for _, name := range names {
			ep := s.endpointStats[name]
			if ep.count == 0 {
				fmt.Fprintf(&b, "%-20s %8d %8d\n", name, 0, ep.errors)
				continue
			}
			fmt.Fprintf(&b, "%-20s %8d %8d %8d %8d %8d %8d\n",
				name, ep.count, ep.errors, ep.total/ep.count, calculatePercentile(ep.times, 0.95), ep.minTime, ep.maxTime)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func average(times []int64) int64 {
	if len(times) == 0 {
		return 0
	}
	var sum int64
	for _, t := range times {
		sum += t
	}
	return sum / int64(len(times))
}

func calculatePercentile(times []int64, percentile float64) int64 {
	if len(times) == 0 {
		return 0
	}
	sorted := slices.Clone(times)
	slices.Sort(sorted)
	index := min(int(float64(len(sorted))*percentile), len(sorted)-1)
	return sorted[index]
}
