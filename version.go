package prismlate

// Version information for prismlate. Build metadata can be set with
//
//	go build -ldflags "-X github.com/ZaguanLabs/prismlate.GitCommit=$(git rev-parse HEAD)"
const (
	// Name is the application name.
	Name = "prismlate"

	// Description is a short description of the application.
	Description = "Auto-translation for CMS edit pages"

	// Version is the semantic version of the application.
	Version = "1.2.0"
)

var (
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// FullVersion returns the version string with the short commit hash when known.
func FullVersion() string {
	v := Version
	if GitCommit != "unknown" && GitCommit != "" {
		short := GitCommit
		if len(short) > 7 {
			short = short[:7]
		}
		v += "+" + short
	}
	return v
}

// UserAgent returns the user agent sent to translation services.
func UserAgent() string {
	return Name + "/" + FullVersion()
}
