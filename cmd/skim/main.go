// Command skim is a concurrent TCP/TLS reconnaissance scanner.
package main

import "github.com/anstrom/skim/cmd/cli"

// Build information - set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildTime)
	cli.Execute()
}
