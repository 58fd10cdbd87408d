package version

// Version is set at build time:
// -ldflags "-X github.com/rxtech-lab/argo-autotrade/internal/version.Version=v0.3.0"
var Version = "dev"

// GetVersion returns the build version of the autotrader.
func GetVersion() string {
	return Version
}
