// Package constants provides shared constants for the procurement-planner application.
package constants

import "time"

// Identifier constants
const (
	// CandidateIDFormat is the printf layout for sequential candidate ids.
	CandidateIDFormat = "P%06d"
)

// Numeric tolerances
const (
	// ShareTolerance is the allowed drift when resolved zone span shares are summed.
	ShareTolerance = 1e-6

	// IntegralityTolerance is how far an LP value may sit from an integer and still count as integral.
	IntegralityTolerance = 1e-6

	// SimplexTolerance is passed to the LP backend for its pivoting decisions.
	SimplexTolerance = 1e-9

	// ScorePrecision is the number of decimals kept when reporting scores.
	ScorePrecision = 4

	// ProgressSteps is how many progress reports a generation run emits.
	ProgressSteps = 10
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// ExampleConfigFile is the example configuration file name
	ExampleConfigFile = "config.yaml.example"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// EnvPrefix is the prefix for environment variable overrides
	EnvPrefix = "PLANNER"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the plan API
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for YAML configs (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024

	// DefaultMaxSolveTime caps the solver time limit of configurations posted to the API
	DefaultMaxSolveTime = 2 * time.Minute

	// ServerTimeoutHeadroom is added to the solve cap to form the HTTP write timeout
	ServerTimeoutHeadroom = 30 * time.Second
)

// Solver defaults
const (
	// DefaultTimeLimitSeconds bounds a solve when the configuration does not.
	DefaultTimeLimitSeconds = 60

	// DefaultMaxCandidates is the pre-filter size handed to the solver.
	DefaultMaxCandidates = 100

	// DefaultTrendFactor is the month-over-month demand growth used by forecasts.
	DefaultTrendFactor = 1.02

	// DefaultDemandBuffer is the safety multiplier applied to forecast demand.
	DefaultDemandBuffer = 1.5
)
