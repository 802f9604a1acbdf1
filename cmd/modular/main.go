// Command modular runs chains, pipelines and agents declared in a YAML
// configuration file.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(cliOptions{}).Execute(); err != nil {
		os.Exit(1)
	}
}
