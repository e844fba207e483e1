package main

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/MimeLyc/srt-translator/internal/service"
	"github.com/MimeLyc/srt-translator/internal/translator"
)

// runBatch runs the coordinator on a worker goroutine and renders its
// progress events on the calling side of a channel.
func runBatch(
	ctx context.Context,
	out io.Writer,
	coord *service.Coordinator,
	paths []string,
	req translator.Request,
) (*service.BatchResult, error) {
	events := make(chan service.BatchProgress, 16)
	var result *service.BatchResult

	var g errgroup.Group
	g.Go(func() error {
		defer close(events)
		var err error
		result, err = coord.Run(ctx, paths, req, func(p service.BatchProgress) {
			events <- p
		})
		return err
	})
	g.Go(func() error {
		for p := range events {
			renderProgress(out, p)
		}
		return nil
	})

	err := g.Wait()
	return result, err
}

func renderProgress(out io.Writer, p service.BatchProgress) {
	fmt.Fprintf(out, "[%d/%d] %-30s %3.0f%%  %s\n",
		p.FileIndex, p.TotalFiles, p.FileName, p.Overall*100, p.Message)
}
