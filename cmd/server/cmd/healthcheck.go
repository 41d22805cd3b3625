package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/pitchside/server/internal/api/handlers"
)

type healthcheckOptions struct {
	url      string
	timeout  time.Duration
	retries  int
	interval time.Duration
	format   string
}

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func newHealthcheckCommand() *cobra.Command {
	opts := &healthcheckOptions{}
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Check if the server is healthy",
		Long: `Performs a health check by calling the /health endpoint.

This command is used by Docker HEALTHCHECK to monitor container health.
It exits with code 0 if the server is healthy, non-zero otherwise.

Exit codes:
  0 - Server is healthy
  1 - Server is unhealthy, degraded or unreachable
  2 - Invalid response from server`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.url == "" {
				opts.url = defaultHealthURL()
			}
			client := &http.Client{Timeout: opts.timeout}
			health, err := checkHealthWithRetries(cmd.Context(), client, *opts)
			if err != nil {
				return err
			}
			return writeHealth(cmd.OutOrStdout(), health, opts.format)
		},
	}
	cmd.Flags().StringVar(&opts.url, "url", "", "health check URL (default: http://localhost:{SERVER_PORT}/health)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "timeout per attempt")
	cmd.Flags().IntVar(&opts.retries, "retries", 1, "number of attempts before giving up")
	cmd.Flags().DurationVar(&opts.interval, "interval", 2*time.Second, "wait between attempts")
	cmd.Flags().StringVar(&opts.format, "format", "text", "output format (text, json)")
	return cmd
}

func defaultHealthURL() string {
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	return fmt.Sprintf("http://localhost:%s/health", port)
}

// checkHealthWithRetries repeats checkHealth until it succeeds or attempts
// run out. An unparseable response is not retried.
func checkHealthWithRetries(ctx context.Context, client *http.Client, opts healthcheckOptions) (handlers.HealthCheck, error) {
	attempts := max(opts.retries, 1)
	var lastErr error
	for i := range attempts {
		if i > 0 {
			select {
			case <-ctx.Done():
				return handlers.HealthCheck{}, &exitError{code: 1, err: ctx.Err()}
			case <-time.After(opts.interval):
			}
		}
		health, err := checkHealth(ctx, client, opts.url)
		if err == nil {
			return health, nil
		}
		lastErr = err
		var exit *exitError
		if errors.As(err, &exit) && exit.code == 2 {
			break
		}
	}
	return handlers.HealthCheck{}, lastErr
}

func checkHealth(ctx context.Context, client *http.Client, url string) (handlers.HealthCheck, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return handlers.HealthCheck{}, &exitError{code: 1, err: fmt.Errorf("creating request: %w", err)}
	}

	resp, err := client.Do(req)
	if err != nil {
		return handlers.HealthCheck{}, &exitError{code: 1, err: fmt.Errorf("health check failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	var health handlers.HealthCheck
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		if resp.StatusCode != http.StatusOK {
			return handlers.HealthCheck{}, &exitError{code: 1, err: fmt.Errorf("unhealthy: status %d", resp.StatusCode)}
		}
		return handlers.HealthCheck{}, &exitError{code: 2, err: fmt.Errorf("parsing health check response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK || health.Status != "healthy" {
		return health, &exitError{code: 1, err: fmt.Errorf("unhealthy: status=%s (%d)", health.Status, resp.StatusCode)}
	}
	return health, nil
}

func writeHealth(w io.Writer, health handlers.HealthCheck, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(health)
	}

	fmt.Fprintf(w, "Status: %s\n", health.Status)
	names := make([]string, 0, len(health.Checks))
	for name := range health.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		check := health.Checks[name]
		fmt.Fprintf(w, "  %-12s %-5s %s\n", name, check.Status, check.Message)
	}
	return nil
}
