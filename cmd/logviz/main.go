// logviz - Robot telemetry log inspector
//
// logviz parses robot telemetry logs from the command line and prints
// fields, values and series without starting the visualizer server.
package main

import (
	"os"

	"github.com/robotlog-visualizer/backend/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
