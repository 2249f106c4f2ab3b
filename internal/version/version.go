// Package version carries build metadata set through -ldflags.
package version

var (
	Version = "dev"
	Commit  = ""
)

// String renders the version line printed by the CLI.
func String() string {
	if Commit == "" {
		return Version
	}
	return Version + " (" + Commit + ")"
}
