package version

import (
	"fmt"
	"runtime"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

var (
	// Version is the version of the CLI
	Version = "0.1.0"
	// BuildDate is the build date
	BuildDate = "unknown"
	// GitCommit is the git commit hash
	GitCommit = "unknown"
)

// Info holds version information
type Info struct {
	Version   string
	BuildDate string
	GitCommit string
	GoVersion string
	Platform  string
}

// Get returns version information
func Get() Info {
	return Info{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns a formatted version string
func (i Info) String() string {
	return fmt.Sprintf("pgorm version %s (%s %s)", i.Version, i.Platform, i.GoVersion)
}

// FullString returns a detailed version string
func (i Info) FullString() string {
	return fmt.Sprintf(`pgorm version %s
Build Date: %s
Git Commit: %s
Platform: %s
Go Version: %s`, i.Version, i.BuildDate, i.GitCommit, i.Platform, i.GoVersion)
}

// ParseServer extracts the version number from a server's version string,
// e.g. "16.2 (Debian 16.2-1.pgdg120+2)" or "8.0.36-0ubuntu0.22.04.1".
func ParseServer(s string) (*goversion.Version, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty server version")
	}
	num := fields[0]
	if i := strings.IndexAny(num, "-+"); i > 0 {
		num = num[:i]
	}
	v, err := goversion.NewVersion(num)
	if err != nil {
		return nil, fmt.Errorf("invalid server version %q: %w", s, err)
	}
	return v, nil
}

// CheckServer reports an error when server is older than minimum. An empty
// minimum accepts any server.
func CheckServer(server, minimum string) error {
	if minimum == "" {
		return nil
	}
	want, err := goversion.NewVersion(minimum)
	if err != nil {
		return fmt.Errorf("invalid minimum version %q: %w", minimum, err)
	}
	got, err := ParseServer(server)
	if err != nil {
		return err
	}
	if got.LessThan(want) {
		return fmt.Errorf("server version %s is older than the required %s", got, want)
	}
	return nil
}
