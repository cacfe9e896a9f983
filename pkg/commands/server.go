package commands

import (
	"fmt"

	"github.com/acorn-io/dns01-hook/pkg/apiserver"
	"github.com/acorn-io/dns01-hook/pkg/config"
	"github.com/acorn-io/dns01-hook/pkg/version"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

type apiServerCommand struct{}

func (s *apiServerCommand) Execute(c *cli.Context) error {
	ctx := signalContext()

	log := logrus.WithField("command", "serve")

	log.Infof("version: %v", version.Get())

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.ServerTokenHash == "" {
		return fmt.Errorf("%w: SERVER_TOKEN_HASH must be set, generate one with the token command", config.ErrMissingCredential)
	}

	conn, err := connect(ctx, cfg)
	if err != nil {
		return err
	}

	apiServer := apiserver.NewAPIServer(ctx, log, c.Int("port"), cfg.ServerTokenHash)

	return apiServer.Start(conn.manager, conn.resolver)
}

func serverCommand() *cli.Command {
	cmd := apiServerCommand{}

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Usage:   "Port for the HTTP Server Port",
			EnvVars: []string{"DNS01_HOOK_PORT", "PORT"},
			Value:   4315,
		},
	}

	return &cli.Command{
		Name:   "serve",
		Usage:  "serve challenge requests from lego's httpreq provider",
		Action: cmd.Execute,
		Flags:  flags,
	}
}
