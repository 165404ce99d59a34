// Copyright 2014 The Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package xmpp implements the Extensible Messaging and Presence Protocol as
// defined in RFC 6120 and RFC 6121, providing session negotiation, stream
// feature composition, and stanza I/O against any io.ReadWriter.
//
// A session is created with NewClientSession or NewServerSession, passing
// the StreamFeatures to negotiate (StartTLS, SASL, BindResource, and so on).
// Applications that need finer control over negotiation, such as attempting
// stream resumption before falling back to a fresh handshake, can build
// their own Negotiator and call NegotiateSession directly; see the client
// package for a supervisor that does exactly that across reconnects.
//
// Once a session is established, Session.Serve dispatches incoming top
// level stanzas to a Handler, and Session.Send/SendIQ/SendElement encode
// outgoing ones.
package xmpp
