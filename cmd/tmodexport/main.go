// tmodexport converts animated scenes into TMOD scene-description files.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/Faultbox/tmodexport/internal/logger"
)

var version = "1.0.7"

func main() {
	app := cli.NewApp()
	app.Name = "tmodexport"
	app.Usage = "export animated scenes to the TMOD format"
	app.Version = version
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "configuration file (default ./tmodexport.yaml or the user config dir)",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "export",
			Usage: "write the base frame and one update per frame",
			Description: `
Sample the scene at every frame of the display range and write
<base>.tmod plus <base>[NNNNN].tmod per frame into the output directory,
together with the .sm mesh files they reference.`,
			ArgsUsage: "[scene file]",
			Flags:     append(sceneFlags(), exportFlags()...),
			Action:    cmdExport,
		},
		{
			Name:      "inspect",
			Usage:     "list the scene's objects and how they would be exported",
			ArgsUsage: "[scene file]",
			Flags: append(sceneFlags(),
				cli.IntFlag{
					Name:  "frame",
					Usage: "frame to sample (default: start frame)",
				},
				cli.BoolFlag{
					Name:  "dump",
					Usage: "dump the raw objects",
				},
			),
			Action: cmdInspect,
		},
		{
			Name:  "config",
			Usage: "manage configuration files",
			Subcommands: []cli.Command{
				{
					Name:      "init",
					Usage:     "write the default configuration",
					ArgsUsage: "[path]",
					Action:    cmdConfigInit,
				},
			},
		},
	}

	err := app.Run(os.Args)
	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func sceneFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "format, f",
			Usage: "scene format: yaml, gltf or obj (default: by extension)",
		},
		cli.IntFlag{
			Name:  "start",
			Usage: "override the start frame",
		},
		cli.IntFlag{
			Name:  "end",
			Usage: "override the end frame",
		},
		cli.IntFlag{
			Name:  "width",
			Usage: "override the output width",
		},
		cli.IntFlag{
			Name:  "height",
			Usage: "override the output height",
		},
	}
}

func exportFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "out, o",
			Usage: "output directory",
		},
		cli.StringFlag{
			Name:  "name, n",
			Usage: "base name of the generated files",
		},
		cli.IntFlag{
			Name:  "fps",
			Usage: "frames per second",
		},
		cli.StringFlag{
			Name:  "listen",
			Usage: "serve progress over HTTP on this address, e.g. 127.0.0.1:8765",
		},
		cli.StringFlag{
			Name:  "log-file",
			Usage: "also log to this file",
		},
		cli.BoolFlag{
			Name:  "dry-run",
			Usage: "export into memory and list the files that would be written",
		},
	}
}
