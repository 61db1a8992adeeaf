package main

import (
	"context"
	"encoding/json"

	"github.com/nxtreaming/mcpcore/internal/protocol"
	"github.com/nxtreaming/mcpcore/internal/registry"
	"github.com/nxtreaming/mcpcore/internal/workerpool"
)

const echoSchema = `{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}`

// registerBuiltinTools installs the reference tool and resource every
// deployment of this binary ships with out of the box: an echo tool for
// connectivity checks and a static example resource for exercising the
// resource cache. Both run through wp, which bounds how many of their
// calls execute at once to the pool's worker count.
func registerBuiltinTools(reg *registry.Registry, wp *workerpool.Pool) {
	reg.AddTool(
		protocol.Tool{
			Name:        "echo",
			Description: "Echoes the text argument back as tool output.",
			InputSchema: []protocol.ToolParam{
				{Name: "text", Type: "string", Required: true},
			},
		},
		offloadTool(wp, echoHandler),
		echoSchema,
	)

	reg.AddResource(protocol.Resource{
		URI:         "example://a",
		Name:        "example",
		MimeType:    "text/plain",
		Description: "Static example resource used to exercise the cache.",
	})
	reg.SetDefaultProducer(offloadProducer(wp, exampleResourceProducer))
}

// offloadProducer runs a ResourceProducer on the worker pool, bounding
// how many resource lookups execute concurrently to wp's worker count.
func offloadProducer(wp *workerpool.Pool, fn registry.ResourceProducer) registry.ResourceProducer {
	return func(ctx context.Context, uri string) ([]*protocol.ContentItem, error) {
		type result struct {
			items []*protocol.ContentItem
			err   error
		}
		done := make(chan result, 1)
		submitErr := wp.Submit(ctx, func(taskCtx context.Context) {
			items, err := fn(taskCtx, uri)
			done <- result{items: items, err: err}
		})
		if submitErr != nil {
			return nil, submitErr
		}
		select {
		case r := <-done:
			return r.items, r.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// offloadTool runs a ToolHandler on the worker pool, the same way
// offloadProducer does for resource producers.
func offloadTool(wp *workerpool.Pool, fn registry.ToolHandler) registry.ToolHandler {
	return func(ctx context.Context, args []byte) ([]*protocol.ContentItem, bool, error) {
		type result struct {
			items   []*protocol.ContentItem
			isError bool
			err     error
		}
		done := make(chan result, 1)
		submitErr := wp.Submit(ctx, func(taskCtx context.Context) {
			items, isError, err := fn(taskCtx, args)
			done <- result{items: items, isError: isError, err: err}
		})
		if submitErr != nil {
			return nil, true, submitErr
		}
		select {
		case r := <-done:
			return r.items, r.isError, r.err
		case <-ctx.Done():
			return nil, true, ctx.Err()
		}
	}
}

type echoArgs struct {
	Text string `json:"text"`
}

func echoHandler(_ context.Context, args []byte) ([]*protocol.ContentItem, bool, error) {
	var a echoArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, true, err
	}
	return []*protocol.ContentItem{{
		Type:     protocol.ContentText,
		MimeType: "text/plain",
		Data:     []byte(a.Text),
	}}, false, nil
}

func exampleResourceProducer(_ context.Context, uri string) ([]*protocol.ContentItem, error) {
	if uri != "example://a" {
		return nil, nil
	}
	return []*protocol.ContentItem{{
		Type:     protocol.ContentText,
		MimeType: "text/plain",
		Data:     []byte("hello from example://a"),
	}}, nil
}
