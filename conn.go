// Copyright 2018 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpp

import (
	"crypto/tls"
	"io"
	"net"
	"time"
)

// Conn wraps the io.ReadWriter backing a Session so that TLS state and
// closing behavior can be inspected uniformly regardless of what the
// underlying transport actually is (a net.Conn, an in-memory pipe used by
// tests, etc.).
type Conn struct {
	rwc io.ReadWriter
}

// newConn wraps rw in a *Conn.
func newConn(rw io.ReadWriter) *Conn {
	return &Conn{rwc: rw}
}

// Read implements io.Reader.
func (c *Conn) Read(p []byte) (int, error) {
	return c.rwc.Read(p)
}

// Write implements io.Writer.
func (c *Conn) Write(p []byte) (int, error) {
	return c.rwc.Write(p)
}

// ConnectionState returns the TLS connection state of the underlying
// connection and true if the connection is a *tls.Conn, or the zero value and
// false otherwise.
func (c *Conn) ConnectionState() (tls.ConnectionState, bool) {
	tlsConn, ok := c.rwc.(*tls.Conn)
	if !ok {
		return tls.ConnectionState{}, false
	}
	return tlsConn.ConnectionState(), true
}

// Close closes the underlying connection if it implements io.Closer. If it
// does not, Close is a no-op.
func (c *Conn) Close() error {
	closer, ok := c.rwc.(io.Closer)
	if !ok {
		return nil
	}
	return closer.Close()
}

// LocalAddr satisfies net.Conn. If the underlying connection is not a
// net.Conn, it returns nil.
func (c *Conn) LocalAddr() net.Addr {
	if nc, ok := c.rwc.(net.Conn); ok {
		return nc.LocalAddr()
	}
	return nil
}

// RemoteAddr satisfies net.Conn. If the underlying connection is not a
// net.Conn, it returns nil.
func (c *Conn) RemoteAddr() net.Addr {
	if nc, ok := c.rwc.(net.Conn); ok {
		return nc.RemoteAddr()
	}
	return nil
}

// SetDeadline satisfies net.Conn. If the underlying connection is not a
// net.Conn, it is a no-op.
func (c *Conn) SetDeadline(t time.Time) error {
	if nc, ok := c.rwc.(net.Conn); ok {
		return nc.SetDeadline(t)
	}
	return nil
}

// SetReadDeadline satisfies net.Conn. If the underlying connection is not a
// net.Conn, it is a no-op.
func (c *Conn) SetReadDeadline(t time.Time) error {
	if nc, ok := c.rwc.(net.Conn); ok {
		return nc.SetReadDeadline(t)
	}
	return nil
}

// SetWriteDeadline satisfies net.Conn. If the underlying connection is not a
// net.Conn, it is a no-op.
func (c *Conn) SetWriteDeadline(t time.Time) error {
	if nc, ok := c.rwc.(net.Conn); ok {
		return nc.SetWriteDeadline(t)
	}
	return nil
}
