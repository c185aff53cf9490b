package main

import (
	"os"

	"github.com/brolyroly007/contentforge/internal/cli"
	"github.com/brolyroly007/contentforge/internal/logging"
)

// Version is set via -ldflags during build
var Version = "dev"

func main() {
	if err := cli.Execute(Version); err != nil {
		logging.UserError("%v", err)
		os.Exit(1)
	}
}
