package commands

import (
	"fmt"
	"os"
	"path"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func GlobalFlags() []cli.Flag {
	globalFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "config file, searched for in the usual places when unset",
			Aliases: []string{"c"},
			EnvVars: []string{"DNS01_HOOK_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log Level",
			Aliases: []string{"l"},
			EnvVars: []string{"LOGLEVEL"},
			Value:   "info",
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "json or text",
			EnvVars: []string{"LOGFORMAT"},
			Value:   "text",
		},
		&cli.BoolFlag{
			Name:  "log-caller",
			Usage: "log the caller (aka line number and file)",
		},
	}

	return globalFlags
}

func Before(c *cli.Context) error {
	callerPrettyfier := func(f *runtime.Frame) (string, string) {
		return "", fmt.Sprintf("%s:%d", path.Base(f.File), f.Line)
	}

	switch c.String("log-format") {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{CallerPrettyfier: callerPrettyfier})
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{CallerPrettyfier: callerPrettyfier})
	default:
		return fmt.Errorf("unknown log format %q", c.String("log-format"))
	}

	logrus.SetReportCaller(c.Bool("log-caller"))
	// stdout belongs to the ACME client
	logrus.SetOutput(os.Stderr)

	switch c.String("log-level") {
	case "trace":
		logrus.SetLevel(logrus.TraceLevel)
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	}

	return nil
}
