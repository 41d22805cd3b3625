package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pitchside/server/internal/loadtest"
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:8080", "Base URL of the server to test")
		profile   = flag.String("profile", "light", "Load profile: light, medium, heavy, match")
		token     = flag.String("token", "", "Bearer token for write requests (see cmd/gentoken)")
		rps       = flag.Int("rps", 0, "Custom requests per second (overrides profile)")
		duration  = flag.Duration("duration", 0, "Custom test duration (overrides profile)")
		readRatio = flag.Float64("read-ratio", 0, "Read/write ratio 0.0-1.0 (overrides profile)")
		noRamp    = flag.Bool("no-ramp", false, "Disable ramp-up/ramp-down (instant start/stop)")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, ok := loadtest.LoadProfiles[loadtest.LoadProfile(*profile)]
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown profile %q\n", *profile)
		os.Exit(2)
	}
	if *rps > 0 {
		config.RequestsPerSecond = *rps
	}
	if *duration > 0 {
		config.Duration = *duration
	}
	if *readRatio > 0 {
		config.ReadWriteRatio = *readRatio
	}
	if *noRamp {
		config.RampUpTime = 0
		config.RampDownTime = 0
	}

	fmt.Printf("Starting load test against %s\n", *baseURL)
	fmt.Printf("  RPS: %d, duration: %s, ramp: %s/%s, reads: %.0f%%\n\n",
		config.RequestsPerSecond, config.Duration, config.RampUpTime, config.RampDownTime, config.ReadWriteRatio*100)

	stats, err := loadtest.NewLoadTester(*baseURL).WithToken(*token).RunCustom(ctx, config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(stats.Report())
}
