package commands

import (
	"fmt"

	"github.com/acorn-io/dns01-hook/pkg/rand"
	"github.com/urfave/cli/v2"
)

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "generate a server token and the SERVER_TOKEN_HASH for it",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "length",
				Usage: "token length",
				Value: 32,
			},
		},
		Action: func(c *cli.Context) error {
			token, hash, err := rand.TokenWithHash(c.Int("length"))
			if err != nil {
				return err
			}

			fmt.Fprintf(c.App.Writer, "token: %s\n", token)
			fmt.Fprintf(c.App.Writer, "SERVER_TOKEN_HASH='%s'\n", hash)
			return nil
		},
	}
}
