package buildinfo

import "time"

// Set via -ldflags at build time
var (
	Version    = "dev"
	BuildTime  string // when the binary was compiled
	CommitTime string // last git commit time (last code edit)
	CommitHash string // short git commit hash
)

// StartTime is recorded when the process starts
var StartTime = time.Now().UTC().Format(time.RFC3339)

// Info is the build stamp reported by the status endpoint.
type Info struct {
	Version    string `json:"version"`
	BuildTime  string `json:"buildTime,omitempty"`
	CommitTime string `json:"commitTime,omitempty"`
	CommitHash string `json:"commitHash,omitempty"`
	StartTime  string `json:"startTime"`
}

// Get returns the current build stamp.
func Get() Info {
	return Info{
		Version:    Version,
		BuildTime:  BuildTime,
		CommitTime: CommitTime,
		CommitHash: CommitHash,
		StartTime:  StartTime,
	}
}
