package app

const ServiceName = "orbitus-api"

// Set via -ldflags during build:
//
//	go build -ldflags="-X 'orbitus-api/internal/app.Version=1.0.0'" ./cmd/server
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)
