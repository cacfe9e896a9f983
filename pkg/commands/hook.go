package commands

import (

	"github.com/acorn-io/dns01-hook/pkg/hook"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// Hook handles one invocation from the ACME client: the first argument is the
// phase, the rest are passed on as given.
func Hook(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.ShowAppHelp(c)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx := signalContext()

	runner := hook.NewRunner(connectFunc(cfg), cfg.Wait)
	runner.DeployCertHook = cfg.DeployCertHook
	runner.ExitHook = cfg.ExitHook

	args := c.Args().Slice()
	logrus.WithField("command", "hook").Debugf("running phase %s with %d argument(s)", args[0], len(args)-1)

	return runner.Run(ctx, args[0], args[1:])
}
