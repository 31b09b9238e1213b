package main

import (
	"log"
	"os"

	"github.com/dargueta/blockpress/config"
	"github.com/urfave/cli/v2"
)

func main() {
	configFlag := &cli.StringFlag{
		Name:    "config",
		Usage:   "YAML file describing the benchmark matrix",
		EnvVars: []string{config.EnvVar},
	}
	verboseFlag := &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Log every failed section and per-run details",
	}

	cli := cli.App{
		Name:  "blockpress",
		Usage: "Measure how well chunk sections compress under different pipelines",
		Commands: []*cli.Command{
			{
				Name:   "bench",
				Usage:  "Run every configured pipeline and print the sizes",
				Action: runBench,
				Flags: []cli.Flag{
					configFlag,
					verboseFlag,
					&cli.StringFlag{
						Name:  "csv-dir",
						Usage: "Also write per-palette and profile CSV files to this directory",
					},
				},
			},
			{
				Name:   "roundtrip",
				Usage:  "Run every configured pipeline forwards and backwards and check the output",
				Action: runRoundTrip,
				Flags:  []cli.Flag{configFlag, verboseFlag},
			},
			{
				Name:      "generate",
				Usage:     "Write a dump of synthetic sections",
				Action:    generateDump,
				ArgsUsage: "OUTPUT_FILE",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "seed", Value: 1, Usage: "Terrain seed"},
					&cli.IntFlag{Name: "sections", Value: 1024, Usage: "Number of sections"},
					&cli.StringFlag{
						Name:  "convention",
						Value: "aligned",
						Usage: "Packing convention: spanning (pre-1.16) or aligned",
					},
				},
			},
			{
				Name:   "list",
				Usage:  "List the names of the available transformers, coders and compressors",
				Action: listComponents,
			},
		},
	}

	err := cli.Run(os.Args)
	if err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}
