package main

import (
	"context"
	"fmt"
	"io"

	"github.com/loykin/acqsim/pkg/client"
)

func newClient(flags *ClientFlags) *client.Client {
	return client.New(client.Config{BaseURL: flags.APIUrl, Timeout: flags.APITimeout})
}

func runGet(ctx context.Context, c *client.Client, runID string, out io.Writer) error {
	info, err := c.GetCurrentRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("get current run: %w", err)
	}
	return printJSON(out, info)
}

func runPeek(ctx context.Context, c *client.Client, runID string, out io.Writer) error {
	info, err := c.PeekCurrentRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("peek current run: %w", err)
	}
	return printJSON(out, info)
}

func runWatch(ctx context.Context, c *client.Client, runID string, out io.Writer) error {
	res, err := c.WatchCurrentRun(ctx, runID)
	for _, it := range res.Items {
		if perr := printJSON(out, it); perr != nil {
			return perr
		}
	}
	if err != nil {
		return fmt.Errorf("watch current run: %w", err)
	}
	return nil
}

func runList(ctx context.Context, c *client.Client, out io.Writer) error {
	runs, err := c.Runs(ctx)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	return printJSON(out, runs)
}

func runStatus(ctx context.Context, c *client.Client, out io.Writer) error {
	st, err := c.CurrentStatus(ctx)
	if err != nil {
		return fmt.Errorf("current status: %w", err)
	}
	return printJSON(out, st)
}

func runProgress(ctx context.Context, c *client.Client, out io.Writer) error {
	p, err := c.GetProgress(ctx)
	if err != nil {
		return fmt.Errorf("get progress: %w", err)
	}
	return printJSON(out, p)
}
