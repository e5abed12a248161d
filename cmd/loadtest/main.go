package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/hotlabel/hotlabel/internal/loadtest"
)

// Default configuration constants.
const (
	defaultSessions    = 100
	defaultTasks       = 10
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:8080", "Base URL of the service")
		publisher = flag.String("publisher", "loadtest", "Publisher identity sent with every request")
		sessions  = flag.Int("sessions", defaultSessions, "Number of labeling sessions to simulate")
		tasks     = flag.Int("tasks", defaultTasks, "Submissions attempted per session")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFile   = flag.String("log", "", "Log file for test output (default: loadtest_TIMESTAMP.log)")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadtest.ShowHelp()
		return
	}

	if err := loadtest.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	config := &loadtest.Config{
		BaseURL:         *baseURL,
		PublisherID:     *publisher,
		Sessions:        *sessions,
		TasksPerSession: *tasks,
		Workers:         *workers,
		Timeout:         *timeout,
		LogFile:         *logFile,
		Verbose:         *verbose,
	}

	if err := loadtest.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Load test failed: " + err.Error() + "\n")
		return
	}
}
