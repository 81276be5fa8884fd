package cli

import (
	"fmt"

	"github.com/O-deepcodee/AWS/pkg/config"
)

// Version is the toolkit release version.
const Version = "1.0.0"

func newVersionCommand() *Command {
	return &Command{
		Name:        "version",
		Description: "Show version information",
		Run:         runVersion,
	}
}

func runVersion(cfg *config.Config, args []string) error {
	fmt.Printf("AWS Toolkit version %s\n", Version)
	return nil
}
