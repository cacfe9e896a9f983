package commands

import (
	"fmt"

	"github.com/acorn-io/dns01-hook/pkg/hook"
	"github.com/urfave/cli/v2"
)

func zonesCommand() *cli.Command {
	return &cli.Command{
		Name:      "zones",
		Usage:     "print the known zones in match order, and where each given domain's challenge would go",
		ArgsUsage: "[domain...]",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			conn, err := connect(signalContext(), cfg)
			if err != nil {
				return err
			}

			w := c.App.Writer
			for _, zone := range conn.directory.Zones() {
				fmt.Fprintln(w, zone)
			}

			for _, domain := range c.Args().Slice() {
				name := conn.resolver.Resolve(hook.NormalizeDomain(domain))
				guessed := ""
				if name.Guessed {
					guessed = " (guessed)"
				}
				fmt.Fprintf(w, "%s -> zone %s, record %s%s\n", domain, name.Zone, name.RelativeName, guessed)
			}
			return nil
		},
	}
}
