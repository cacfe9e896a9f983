package main

import (
	"os"
	"path"

	"github.com/acorn-io/dns01-hook/pkg/commands"
	"github.com/acorn-io/dns01-hook/pkg/version"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			// log panics forces exit
			if _, ok := r.(*logrus.Entry); ok {
				os.Exit(1)
			}
			panic(r)
		}
	}()

	app := cli.NewApp()
	app.Name = path.Base(os.Args[0])
	app.Usage = "ACME DNS-01 hook for cloud DNS providers"
	app.UsageText = app.Name + " [global options] <phase> [domain tokenfile token]...\n" +
		app.Name + " [global options] command [command options]"
	app.Version = version.Get().String()
	app.Authors = []*cli.Author{
		{
			Name:  "The Acorn Labs Dev Team",
			Email: "engineering@acorn.io",
		},
	}

	app.Flags = commands.GlobalFlags()
	app.Before = commands.Before
	app.Action = commands.Hook
	app.Commands = commands.GetCommands()

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}
