package app

const ServiceName = "student-console"

// Set at build time:
//
//	go build -ldflags="-X 'student-console/internal/app.Version=1.0.0'"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)
