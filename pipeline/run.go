package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/dargueta/blockpress"
	"github.com/dargueta/blockpress/sections"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// Stats counts what happened to the sections of one [Pipeline.Run].
type Stats struct {
	Processed int
	Skipped   int
	Failed    int
}

// Run processes every section from `source` using up to `workers` goroutines.
//
// A section that fails is logged and its error collected, and the rest carry
// on. The returned error is nil only if every section succeeded; otherwise it's
// a [*multierror.Error] holding one [*blockpress.BlockError] per failure, plus
// any error from the source or the context. Cancelling `ctx` stops new sections
// from being started but lets those in flight finish.
func (p *Pipeline) Run(ctx context.Context, source sections.Source, workers int) (Stats, error) {
	if workers < 1 {
		return Stats{}, blockpress.ErrArgumentOutOfRange.WithMessage("need at least one worker")
	}

	logger := p.logger().With(slog.String("pipeline", p.Name()))

	var lock sync.Mutex
	var stats Stats
	var errs *multierror.Error

	group := errgroup.Group{}
	group.SetLimit(workers)

	for ctx.Err() == nil {
		raw, err := source.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			lock.Lock()
			errs = multierror.Append(errs, err)
			lock.Unlock()
			break
		}

		// Go blocks until a worker is free.
		group.Go(func() error {
			result, err := p.ProcessRaw(raw)

			lock.Lock()
			defer lock.Unlock()
			switch {
			case err != nil:
				stats.Failed++
				errs = multierror.Append(errs, err)
				logFailure(logger, err)
			case result.Skipped:
				stats.Skipped++
			default:
				stats.Processed++
			}
			return nil
		})
	}

	// Workers never return errors; failures are collected above.
	_ = group.Wait()

	if err := ctx.Err(); err != nil {
		errs = multierror.Append(errs, err)
	}
	logger.Debug(
		"run finished",
		slog.Int("processed", stats.Processed),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed),
	)
	return stats, errs.ErrorOrNil()
}

func logFailure(logger *slog.Logger, err error) {
	var blockErr *blockpress.BlockError
	if errors.As(err, &blockErr) {
		logger.Warn(
			"section failed",
			slog.Int("index", blockErr.Index),
			slog.Any("palette_size", blockErr.PaletteSize),
			slog.String("stage", blockErr.Stage.String()),
			slog.String("error", blockErr.Err.Error()),
		)
		return
	}
	logger.Warn("section failed", slog.String("error", err.Error()))
}
