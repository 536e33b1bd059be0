package version

var (
	// Version is the current vol2bird release, set via -ldflags.
	Version = "0.2.0"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the build identity for usage and -version output.
func String() string {
	return Version + " (" + GitSHA + ", built " + BuildTime + ")"
}
