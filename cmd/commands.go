package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dargueta/blockpress"
	"github.com/dargueta/blockpress/bitpack"
	"github.com/dargueta/blockpress/coder"
	"github.com/dargueta/blockpress/config"
	"github.com/dargueta/blockpress/pipeline"
	"github.com/dargueta/blockpress/report"
	"github.com/dargueta/blockpress/sections"
	"github.com/dargueta/blockpress/transform"
	"github.com/dargueta/blockpress/utilities/compression"
	"github.com/hashicorp/go-multierror"
	"github.com/urfave/cli/v2"
)

func newLogger(context *cli.Context) *slog.Logger {
	level := slog.LevelWarn
	if context.Bool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openSource returns a fresh source of sections for one pipeline run, and the
// packing convention of its words.
func openSource(cfg *config.Config) (sections.Source, bitpack.Convention, io.Closer, error) {
	if cfg.Input == "" {
		conv := cfg.PackingConvention()
		generator := sections.NewGenerator(cfg.Synthetic.Seed, cfg.Synthetic.Sections, conv)
		return generator, conv, io.NopCloser(nil), nil
	}

	file, err := os.Open(cfg.Input)
	if err != nil {
		return nil, 0, nil, err
	}
	reader, err := sections.NewDumpReader(file)
	if err != nil {
		file.Close()
		return nil, 0, nil, fmt.Errorf("%s: %w", cfg.Input, err)
	}
	return reader, reader.Convention(), file, nil
}

// runMatrix runs every pipeline in the configured matrix, calling `done` after
// each. Section failures don't stop the run; they're returned together at the
// end.
func runMatrix(
	context *cli.Context,
	cfg *config.Config,
	done func(p *pipeline.Pipeline, acc *report.Accumulator) error,
) error {
	logger := newLogger(context)

	pipelines, err := pipeline.Matrix(cfg.Transformers, cfg.Coders, cfg.Compressors)
	if err != nil {
		return err
	}

	var failures *multierror.Error
	for _, p := range pipelines {
		source, conv, closer, err := openSource(cfg)
		if err != nil {
			return err
		}

		acc := report.NewAccumulator(p.Name())
		p.Convention = conv
		p.Verify = cfg.Verify
		p.CollectProfile = cfg.Profile
		p.Reporter = acc
		p.Logger = logger

		stats, runErr := p.Run(context.Context, source, cfg.Workers)
		closer.Close()
		if runErr != nil {
			logger.Error(
				"pipeline had failures",
				slog.String("pipeline", p.Name()),
				slog.Int("failed", stats.Failed),
			)
			failures = multierror.Append(failures, runErr)
		}

		if err = done(p, acc); err != nil {
			return err
		}
	}
	return failures.ErrorOrNil()
}

func csvFileName(directory, pipelineName, kind string) string {
	safeName := strings.NewReplacer("/", "_", "+", "-").Replace(pipelineName)
	return filepath.Join(directory, fmt.Sprintf("%s.%s.csv", safeName, kind))
}

func writeCSV(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err = write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func runBench(context *cli.Context) error {
	cfg, err := config.Load(context.String("config"))
	if err != nil {
		return err
	}

	csvDirectory := context.String("csv-dir")
	if csvDirectory != "" {
		if err = os.MkdirAll(csvDirectory, 0o755); err != nil {
			return err
		}
	}

	err = runMatrix(context, cfg, func(p *pipeline.Pipeline, acc *report.Accumulator) error {
		if err := acc.WriteText(context.App.Writer); err != nil {
			return err
		}
		if csvDirectory == "" {
			return nil
		}

		err := writeCSV(csvFileName(csvDirectory, p.Name(), "buckets"), acc.WriteBucketsCSV)
		if err != nil {
			return err
		}
		if !cfg.Profile {
			return nil
		}
		return writeCSV(csvFileName(csvDirectory, p.Name(), "profile"), acc.WriteProfileCSV)
	})

	// Failed sections are already logged and left out of the totals.
	if merr, ok := err.(*multierror.Error); ok {
		fmt.Fprintf(context.App.ErrWriter, "%d pipeline(s) had failed sections\n", merr.Len())
		return nil
	}
	return err
}

func runRoundTrip(context *cli.Context) error {
	cfg, err := config.Load(context.String("config"))
	if err != nil {
		return err
	}
	cfg.Verify = true

	err = runMatrix(context, cfg, func(p *pipeline.Pipeline, acc *report.Accumulator) error {
		summary := acc.Summary()
		_, err := fmt.Fprintf(
			context.App.Writer,
			"%-40s %6d ok %6d skipped\n",
			p.Name(),
			summary.Processed,
			summary.Skipped,
		)
		return err
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("round trip failed: %s", err.Error()), 1)
	}
	return nil
}

func generateDump(context *cli.Context) error {
	if context.NArg() != 1 {
		return blockpress.ErrInvalidArgument.WithMessage("expected exactly one output file")
	}

	conv, err := bitpack.ParseConvention(context.String("convention"))
	if err != nil {
		return err
	}

	file, err := os.Create(context.Args().First())
	if err != nil {
		return err
	}

	writer, err := sections.NewDumpWriter(file, conv)
	if err != nil {
		file.Close()
		return err
	}

	generator := sections.NewGenerator(uint32(context.Uint("seed")), context.Int("sections"), conv)
	count, err := writer.WriteAll(generator)
	if err != nil {
		file.Close()
		return err
	}
	if err = file.Close(); err != nil {
		return err
	}

	fmt.Fprintf(context.App.Writer, "Wrote %d sections to %s.\n", count, context.Args().First())
	return nil
}

func listComponents(context *cli.Context) error {
	groups := []struct {
		title string
		names []string
	}{
		{"Transformers (join with + to chain)", transform.Names()},
		{"Coders", coder.Names()},
		{"Compressors", compression.Names()},
	}

	for _, group := range groups {
		fmt.Fprintf(context.App.Writer, "%s:\n", group.title)
		for _, name := range group.names {
			fmt.Fprintf(context.App.Writer, "  %s\n", name)
		}
	}
	return nil
}
