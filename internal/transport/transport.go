// Package transport hosts the thin framing layers that feed raw message
// bytes to the dispatcher and write its response bytes back: stdio, TCP,
// WebSocket, and streamable HTTP. None of them
// know about JSON-RPC structure; they only find message boundaries and
// hand the dispatcher complete byte slices.
package transport

import "context"

// Handler is the shape every transport drives: given raw message bytes
// and a client identity string, return response bytes (nil means no
// response is sent, e.g. after a notification).
type Handler func(ctx context.Context, raw []byte, clientIdentity string) ([]byte, error)
