// Copyright 2024 The Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package client

import (
	"context"

	"go.stanzaclient.dev/xmpp"
	"go.stanzaclient.dev/xmpp/mux"
)

// MuxKey is the conventional Container key for a Service built with
// NewMuxService.
const MuxKey Key = "mux"

// muxService adapts a mux.ServeMux into a Service so that extension
// packages exposing a Handle() mux.Option (disco, carbons, muc, and
// others) can be summoned alongside a Client's other long-lived services
// and dispatched to through a single xmpp.Handler.
type muxService struct {
	m *mux.ServeMux
}

func (m *muxService) Close() error { return nil }

// Handler returns the composed xmpp.Handler. A Client.Run callback passes
// it to Session.Serve once the mux Service has been summoned.
func (m *muxService) Handler() xmpp.Handler { return m.m }

// NewMuxService returns a Factory that builds a Service wrapping a
// mux.ServeMux configured with opts, letting extension packages register
// their handlers (disco.Handle(), carbons.Handle(...), muc.HandleClient(...))
// through the same dependency-ordered Container as any other service.
func NewMuxService(opts ...mux.Option) Factory {
	return func(ctx context.Context, c *Client) (Service, error) {
		return &muxService{m: mux.New(opts...)}, nil
	}
}
