// Command s2gpp runs one peer of a Series2Graph++ distributed anomaly
// detection pipeline.
package main

import (
	"fmt"
	"os"

	"github.com/series2gpp/s2gpp-go/internal/cli"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

func main() {
	cli.SetVersion(buildVersion, buildCommit, buildDate)

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
