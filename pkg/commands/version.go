package commands

import (
	"fmt"

	"github.com/acorn-io/dns01-hook/pkg/version"
	"github.com/urfave/cli/v2"
)

func execute(c *cli.Context) error {
	fmt.Printf("%s\n", version.Get())

	return nil
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "print version",
		Action: execute,
	}
}
