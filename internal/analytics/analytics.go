// Package analytics reports non-PII lifecycle events: which phase ran,
// how long it took, and whether it ended in schema staleness or a fatal
// error. No file paths, source content, or finding data ever leave the
// process. Adapted from analytics/usage.go; event set trimmed to the
// pipeline's own lifecycle instead of CLI-subcommand tracking.
package analytics

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/posthog/posthog-go"
)

const (
	IndexStarted   = "index_started"
	IndexCompleted = "index_completed"
	TaintStarted   = "taint_started"
	TaintCompleted = "taint_completed"
	SchemaStale    = "schema_stale"
	Fatal          = "fatal"
)

var (
	// PublicKey is set at build time (ldflags); empty disables reporting.
	PublicKey     string
	enableMetrics bool
	appVersion    string
)

// Init enables or disables reporting for the remainder of the process.
func Init(disableMetrics bool) {
	enableMetrics = !disableMetrics
}

// SetVersion stamps the running binary's version into every event.
func SetVersion(version string) {
	appVersion = version
}

func envFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".theauditor", ".env"), nil
}

func createEnvFile() {
	envFile, err := envFilePath()
	if err != nil {
		return
	}
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(envFile), 0o755); err != nil {
			return
		}
		_ = godotenv.Write(map[string]string{"uuid": uuid.New().String()}, envFile)
	}
}

// LoadEnvFile ensures a per-machine anonymous uuid exists and loads it
// (and any other .env overrides) into the process environment.
func LoadEnvFile() {
	createEnvFile()
	envFile, err := envFilePath()
	if err != nil {
		return
	}
	_ = godotenv.Load(envFile)
}

// Report sends a lifecycle event with optional non-PII properties
// (counts, durations, kind strings — never paths or source text).
func Report(event string, properties map[string]interface{}) {
	if !enableMetrics || PublicKey == "" {
		return
	}
	disableGeoIP := false
	client, err := posthog.NewWithConfig(PublicKey, posthog.Config{
		Endpoint:     "https://us.i.posthog.com",
		DisableGeoIP: &disableGeoIP,
	})
	if err != nil {
		return
	}
	defer client.Close()

	props := posthog.NewProperties()
	props.Set("os", runtime.GOOS)
	props.Set("arch", runtime.GOARCH)
	props.Set("go_version", runtime.Version())
	if appVersion != "" {
		props.Set("auditor_version", appVersion)
	}
	for k, v := range properties {
		props.Set(k, v)
	}

	_ = client.Enqueue(posthog.Capture{
		DistinctId: os.Getenv("uuid"),
		Event:      event,
		Properties: props,
	})
}
