package version

import "runtime"

// These are intended to be set at build time via -ldflags.
// Example:
// go build -ldflags "-X github.com/pkmn-dev/pkmn/pkg/version.Version=0.2.0 -X github.com/pkmn-dev/pkmn/pkg/version.Commit=$(git rev-parse --short HEAD)"
var (
	Version = "0.1.0"
	Commit  = "dev"
)

type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// UserAgent is the product token sent by the client and the CLI.
func UserAgent(product string) string {
	return product + "/" + Version + " (" + runtime.GOOS + "/" + runtime.GOARCH + ")"
}
