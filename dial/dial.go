// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package dial contains methods and types for dialing XMPP connections.
package dial // import "go.stanzaclient.dev/xmpp/dial"

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"go.stanzaclient.dev/xmpp/internal/discover"
	"go.stanzaclient.dev/xmpp/jid"
)

// Peer is a host/port pair dialed directly, bypassing DNS discovery.
type Peer struct {
	Host string
	Port uint16
}

// Client discovers and connects to the address on the named network with a
// client-to-server (c2s) connection.
//
// For more information see the Dialer type.
func Client(ctx context.Context, network string, addr jid.JID) (net.Conn, error) {
	var d Dialer
	return d.Dial(ctx, network, addr)
}

// Server discovers and connects to the address on the named network with a
// server-to-server connection (s2s).
//
// For more info see the Dialer type.
func Server(ctx context.Context, network string, addr jid.JID) (net.Conn, error) {
	d := Dialer{
		S2S: true,
	}
	return d.Dial(ctx, network, addr)
}

// A Dialer contains options for connecting to an XMPP address.
// After a connection is established the Dial method does not attempt to create
// an XMPP session on the connection, the various session establishment
// functions in the main xmpp package should be passed the resulting connection.
//
// The zero value for each field is equivalent to dialing without that option.
// Dialing with the zero value of Dialer is equivalent to calling the Client
// function.
type Dialer struct {
	net.Dialer

	// resolverOnce guards a single, one-time replacement of Resolver with
	// the system default when a lookup first times out.
	resolverOnce sync.Once

	// NoLookup stops the dialer from looking up SRV records for the given domain.
	// It also prevents fetching of the host metadata file. Instead, it will try
	// to connect to the domain directly.
	NoLookup bool

	// S2S causes the server to attempt to dial a server-to-server connection.
	S2S bool

	// Disable implicit TLS entirely (eg. when using opportunistic TLS on a server
	// that does not support implicit TLS).
	NoTLS bool

	// The configuration to use when dialing with implicit TLS support.
	// Setting TLSConfig has no effect if NoTLS is true.
	// The default value is interpreted as a tls.Config with the expected host set
	// to that of the connection addresses domain part.
	TLSConfig *tls.Config

	// Pins, if non-nil, additionally requires that the peer's leaf
	// certificate match one of the digests in the store, regardless of what
	// the normal certificate chain verification decides. See PinStore.
	Pins *PinStore

	// OverridePeer, if non-empty, replaces DNS discovery (both SRV lookup
	// and the direct A/AAAA fallback) with a fixed, ordered list of
	// host/port pairs to dial. This is for administrators who know their
	// deployment's topology and want to skip discovery, or who need to
	// reach a host that does not publish (or is not allowed to publish)
	// the usual xmpp-client/xmpp-server SRV records.
	OverridePeer []Peer
}

// Dial discovers and connects to the address on the named network.
// If the context expires before the connection is complete, an error is
// returned. Once successfully connected, any expiration of the context will not
// affect the connection.
//
// Network may be any of the network types supported by net.Dial, but you most
// likely want to use one of the tcp connection types ("tcp", "tcp4", or
// "tcp6").
func (d *Dialer) Dial(ctx context.Context, network string, addr jid.JID) (net.Conn, error) {
	return d.dial(ctx, network, addr, addr.Domainpart())
}

// DialServer behaves exactly the same as Dial, besides that the server it tries
// to connect to is given as argument instead of using the domainpart of the JID.
//
// Changing the server does not affect the server name expected by the default
// TLSConfig which remains the addresses domainpart.
func (d *Dialer) DialServer(ctx context.Context, network string, addr jid.JID, server string) (net.Conn, error) {
	return d.dial(ctx, network, addr, server)
}

func (d *Dialer) dial(ctx context.Context, network string, addr jid.JID, server string) (net.Conn, error) {
	cfg := d.TLSConfig
	if cfg == nil {
		cfg = &tls.Config{
			ServerName: addr.Domainpart(),
			MinVersion: tls.VersionTLS12,
		}
		// XEP-0368
		if d.S2S {
			cfg.NextProtos = []string{"xmpp-server"}
		} else {
			cfg.NextProtos = []string{"xmpp-client"}
		}
	}
	if d.Pins != nil {
		cfg = withPinning(cfg, d.Pins)
	}

	// A fixed peer list bypasses discovery entirely.
	if len(d.OverridePeer) > 0 {
		return d.dialPeers(ctx, network, d.OverridePeer, cfg)
	}

	// A bare IP literal has no SRV records to discover; dial it directly
	// using the same single-entry implicit-TLS-then-plain fallback as the
	// NoLookup path.
	if net.ParseIP(server) != nil {
		return d.legacy(ctx, network, server, cfg)
	}

	// If we're not looking up SRV records, use the A/AAAA fallback.
	if d.NoLookup {
		return d.legacy(ctx, network, server, cfg)
	}

	var xmppAddrs, xmppsAddrs []*net.SRV
	var xmppErr, xmppsErr error
	var wg sync.WaitGroup
	wg.Add(1)
	if !d.NoTLS {
		wg.Add(1)
		go func() {
			// Lookup xmpps-(client|server)
			defer wg.Done()
			xmppsService := connType(true, d.S2S)
			addrs, e := d.lookupService(ctx, xmppsService, server)
			if e != nil {
				xmppsErr = e
				return
			}
			xmppsAddrs = addrs
		}()
	}
	go func() {
		// Lookup xmpp-(client|server)
		defer wg.Done()
		xmppService := connType(false, d.S2S)
		addrs, e := d.lookupService(ctx, xmppService, server)
		if e != nil {
			xmppErr = e
			return
		}
		xmppAddrs = addrs
	}()
	wg.Wait()

	// If both lookups failed, return one of the errors.
	if xmppsErr != nil && xmppErr != nil {
		return nil, xmppsErr
	}
	addrs := make([]*net.SRV, 0, len(xmppAddrs)+len(xmppsAddrs))
	addrs = append(addrs, xmppsAddrs...)
	addrs = append(addrs, xmppAddrs...)
	if len(addrs) == 0 {
		return nil, fmt.Errorf("no xmpp service found at address %s", server)
	}

	// Try dialing all of the SRV records we know about, breaking as soon as the
	// connection is established.
	var err error
	for i, addr := range addrs {
		var c net.Conn
		var e error
		// Do not dial expecting a TLS connection if we're trying addreses that we
		// expect starttls on or if we have implicit TLS disabled.
		if d.NoTLS || i >= len(xmppsAddrs) {
			c, e = d.Dialer.DialContext(ctx, network, net.JoinHostPort(
				addr.Target,
				strconv.FormatUint(uint64(addr.Port), 10),
			))
		} else {
			tlsDialer := &tls.Dialer{
				NetDialer: &d.Dialer,
				Config:    cfg,
			}
			c, e = tlsDialer.DialContext(ctx, network, net.JoinHostPort(
				addr.Target,
				strconv.FormatUint(uint64(addr.Port), 10),
			))
		}
		if e != nil {
			err = e
			continue
		}

		return c, nil
	}
	return nil, err
}

// lookupService performs a single SRV lookup, and if it fails with a
// timeout, replaces the dialer's resolver with the system default exactly
// once (in case a previously configured custom resolver is unreachable or
// misconfigured) and retries the lookup a single time.
func (d *Dialer) lookupService(ctx context.Context, service, server string) ([]*net.SRV, error) {
	addrs, err := discover.LookupServiceByDomain(ctx, d.Resolver, service, server)
	if err == nil {
		return addrs, nil
	}
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		return nil, err
	}
	d.resolverOnce.Do(func() {
		d.Resolver = &net.Resolver{}
	})
	return discover.LookupServiceByDomain(ctx, d.Resolver, service, server)
}

// dialPeers dials each peer in order, using implicit TLS unless NoTLS is
// set, and returns the first successful connection.
func (d *Dialer) dialPeers(ctx context.Context, network string, peers []Peer, cfg *tls.Config) (net.Conn, error) {
	var err error
	for _, p := range peers {
		hostport := net.JoinHostPort(p.Host, strconv.FormatUint(uint64(p.Port), 10))
		var c net.Conn
		var e error
		if d.NoTLS {
			c, e = d.Dialer.DialContext(ctx, network, hostport)
		} else {
			tlsDialer := &tls.Dialer{NetDialer: &d.Dialer, Config: cfg}
			c, e = tlsDialer.DialContext(ctx, network, hostport)
		}
		if e != nil {
			err = e
			continue
		}
		return c, nil
	}
	return nil, err
}

func (d *Dialer) legacy(ctx context.Context, network string, domain string, cfg *tls.Config) (net.Conn, error) {
	if !d.NoTLS {
		tlsDialer := &tls.Dialer{
			NetDialer: &d.Dialer,
			Config:    cfg,
		}
		conn, err := tlsDialer.DialContext(ctx, network,
			net.JoinHostPort(domain, "5223"))
		if err == nil {
			return conn, nil
		}
	}

	return d.Dialer.DialContext(ctx, network, net.JoinHostPort(domain, "5222"))
}

func connType(useTLS, s2s bool) string {
	switch {
	case useTLS && s2s:
		return "xmpps-server"
	case !useTLS && s2s:
		return "xmpp-server"
	case useTLS && !s2s:
		return "xmpps-client"
	}
	return "xmpp-client"
}
