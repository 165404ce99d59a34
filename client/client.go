// Copyright 2024 The Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package client implements a reconnecting XMPP client supervisor: a
// bounded-retry, exponential-backoff dial loop wrapped around
// xmpp.NewClientSession, plus a dependency-ordered container of long-lived
// services that ride along with whatever session is currently active.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"go.stanzaclient.dev/xmpp"
	"go.stanzaclient.dev/xmpp/dial"
	"go.stanzaclient.dev/xmpp/internal/saslerr"
	"go.stanzaclient.dev/xmpp/jid"
	"go.stanzaclient.dev/xmpp/sm"
	"go.stanzaclient.dev/xmpp/stream"
)

// ErrMaxInitialAttempts is returned by Run when the very first connection
// attempt fails MaxInitialAttempts times in a row. Once a session has been
// established at least once, later reconnects are retried indefinitely
// (bounded only by ctx) since a transient outage should not cause a
// long-lived client to give up.
var ErrMaxInitialAttempts = errors.New("client: exceeded maximum initial connection attempts")

// SessionFactory dials and fully negotiates a session for origin.
type SessionFactory func(ctx context.Context, origin jid.JID) (*xmpp.Session, error)

// Config controls Client's reconnect behavior.
type Config struct {
	// Origin is the address used to establish (and re-establish) sessions.
	Origin jid.JID

	// Lang is the stream language, used when attempting stream resumption
	// (SM.Enabled sessions bypass Dial entirely, so it never sees Lang).
	Lang string

	// Dial constructs a fresh, fully-negotiated session. It is used whenever
	// SM is nil, not yet enabled, or a resumption attempt fails.
	Dial SessionFactory

	// SM, when non-nil, is consulted before every reconnect after the first:
	// if it holds a resumption ID, Client tries to resume that stream
	// management session before falling back to Dial.
	SM *sm.State

	// MaxInitialAttempts bounds retries of the very first connection
	// attempt. Zero means unbounded.
	MaxInitialAttempts uint

	// InitialInterval, MaxInterval, and Multiplier configure the exponential
	// backoff applied between reconnect attempts. Zero values fall back to
	// the backoff package's defaults (500ms initial, 60s max, factor 1.5).
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64

	// ResumptionTimeout bounds a single stream management resumption
	// attempt (opening the bare stream and exchanging <resume/>/<resumed/>
	// or <failed/>). Zero means no additional deadline beyond ctx.
	ResumptionTimeout time.Duration

	// NegotiationTimeout bounds a single call to Dial, covering the whole
	// connect-and-negotiate sequence for a fresh (non-resumed) session.
	// Zero means no additional deadline beyond ctx.
	NegotiationTimeout time.Duration

	// OnStreamEstablished, if set, is called whenever a brand new (not
	// resumed) session finishes negotiation and is handed to serve.
	OnStreamEstablished func(*xmpp.Session)

	// OnStreamResumed, if set, is called instead of OnStreamEstablished when
	// a reconnect recovers the previous stream management session rather
	// than negotiating a fresh one.
	OnStreamResumed func(*xmpp.Session)

	// OnStreamSuspended, if set, is called when serve returns because the
	// underlying connection was lost in a way that might still be
	// resumable, just before Run attempts to reconnect.
	OnStreamSuspended func(error)

	// OnStreamDestroyed, if set, is called when a stream management
	// resumption attempt fails, meaning the previous stream's state is
	// gone for good and the next connection will start a fresh session.
	OnStreamDestroyed func()

	// OnFailure, if set, is called with a critical, non-retryable error
	// (a TLS misconfiguration, an authentication failure, or any other
	// non-network error surfaced by the stream) immediately before Run
	// aborts the reconnect loop and returns that error.
	OnFailure func(error)

	// OnStopped, if set, is called exactly once, right before Run returns
	// for any reason.
	OnStopped func()
}

// isRetryable reports whether err looks like a transient network failure
// (a dial timeout, a dropped TCP connection, DNS resolution failure) that
// a reconnect with backoff can reasonably be expected to resolve. Anything
// else — a TLS misconfiguration, a SASL authentication failure, or a
// protocol-level stream error sent by the peer — is treated as critical,
// since retrying without operator or configuration changes will just fail
// again.
func isRetryable(err error) bool {
	if err == nil {
		return true
	}
	// Check these explicitly as critical before the network checks below, so
	// that the classification stays correct if either type ever grows a
	// net.Error-compatible method set.
	var saslFail saslerr.Failure
	if errors.As(err, &saslFail) {
		return false
	}
	var streamErr stream.Error
	if errors.As(err, &streamErr) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	return false
}

// Client supervises a single XMPP session across reconnects and owns a
// Container of services summoned against whatever session is currently
// active.
type Client struct {
	cfg      Config
	services *Container

	mu      sync.RWMutex
	session *xmpp.Session
}

// New returns a Client configured by cfg. Register services against
// Services() before calling Run.
func New(cfg Config) *Client {
	return &Client{cfg: cfg, services: NewContainer()}
}

// Services returns the Client's service container.
func (c *Client) Services() *Container {
	return c.services
}

// Session returns the currently active session, or nil between connection
// attempts.
func (c *Client) Session() *xmpp.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

func (c *Client) setSession(s *xmpp.Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

func (c *Client) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if c.cfg.InitialInterval > 0 {
		b.InitialInterval = c.cfg.InitialInterval
	}
	if c.cfg.MaxInterval > 0 {
		b.MaxInterval = c.cfg.MaxInterval
	}
	if c.cfg.Multiplier > 0 {
		b.Multiplier = c.cfg.Multiplier
	}
	// The supervisor, not the backoff policy, decides when to stop retrying.
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Run dials and negotiates sessions, handing each to serve, until ctx is
// canceled or the first connection attempt is exhausted per
// MaxInitialAttempts. serve is expected to call Session.Serve (directly or
// indirectly) and return once the session ends; Run then reconnects,
// preferring stream resumption over a fresh Dial, and calls serve again.
func (c *Client) Run(ctx context.Context, serve func(context.Context, *xmpp.Session) error) error {
	if c.cfg.OnStopped != nil {
		defer c.cfg.OnStopped()
	}

	b := c.newBackOff()
	var attempt uint
	established := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		session, resumed, err := c.connect(ctx)
		if err != nil {
			attempt++
			if !established && c.cfg.MaxInitialAttempts > 0 && attempt >= c.cfg.MaxInitialAttempts {
				return fmt.Errorf("%w: %v", ErrMaxInitialAttempts, err)
			}
			if !isRetryable(err) {
				if c.cfg.OnFailure != nil {
					c.cfg.OnFailure(err)
				}
				return err
			}
			wait := b.NextBackOff()
			if wait == backoff.Stop {
				b.Reset()
				wait = b.NextBackOff()
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}

		established = true
		attempt = 0
		b.Reset()
		c.setSession(session)
		if resumed {
			if c.cfg.OnStreamResumed != nil {
				c.cfg.OnStreamResumed(session)
			}
		} else if c.cfg.OnStreamEstablished != nil {
			c.cfg.OnStreamEstablished(session)
		}

		serveErr := serve(ctx, session)
		c.setSession(nil)
		if closeErr := c.services.Close(); closeErr != nil && serveErr == nil {
			serveErr = closeErr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if serveErr != nil && !isRetryable(serveErr) {
			if c.cfg.OnFailure != nil {
				c.cfg.OnFailure(serveErr)
			}
			return serveErr
		}
		if c.cfg.OnStreamSuspended != nil {
			c.cfg.OnStreamSuspended(serveErr)
		}
	}
}

// connect tries to resume a stream management session (if one is available)
// before falling back to a full Dial, reporting whether the returned
// session picked up an existing stream (true) or negotiated a fresh one
// (false).
func (c *Client) connect(ctx context.Context) (session *xmpp.Session, resumed bool, err error) {
	if c.cfg.SM != nil {
		if _, ok := c.cfg.SM.ResumptionID(); ok {
			resumeCtx, cancel := c.withTimeout(ctx, c.cfg.ResumptionTimeout)
			session, err := c.resume(resumeCtx)
			cancel()
			if err == nil {
				return session, true, nil
			}
			if c.cfg.OnStreamDestroyed != nil {
				c.cfg.OnStreamDestroyed()
			}
		}
	}
	dialCtx, cancel := c.withTimeout(ctx, c.cfg.NegotiationTimeout)
	defer cancel()
	session, err = c.cfg.Dial(dialCtx, c.cfg.Origin)
	return session, false, err
}

// withTimeout returns a context bounded by both ctx and, if d is non-zero,
// an additional d-long deadline.
func (c *Client) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

func (c *Client) resume(ctx context.Context) (*xmpp.Session, error) {
	domain := c.cfg.Origin.Domain()
	rw, err := dialRawConn(ctx, c.cfg.Origin)
	if err != nil {
		return nil, err
	}
	return xmpp.NegotiateSession(ctx, &domain, &c.cfg.Origin, rw, false,
		resumeNegotiator(c.cfg.Lang, c.cfg.Origin, c.cfg.SM))
}

func dialRawConn(ctx context.Context, origin jid.JID) (io.ReadWriter, error) {
	return dial.Client(ctx, "tcp", origin)
}
