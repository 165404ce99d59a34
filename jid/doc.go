// Copyright 2014 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package jid implements the XMPP address format called the Jabber
// Identifier (JID) as defined in RFC 7622.
//
// A JID is made up of three parts: the localpart, the domainpart, and the
// resourcepart. The localpart and resourcepart are optional; a JID that
// contains only a domainpart is a "domain JID". A JID without a resourcepart
// is called a "bare JID", one with all three parts is a "full JID".
//
// All JID values returned by this package are in their canonicalized form:
// the domainpart has been passed through IDNA, the localpart through the
// PRECIS UsernameCaseMapped profile, and the resourcepart through the PRECIS
// OpaqueString profile. This gives two JIDs obtained from different,
// non-canonical input strings the best chance of comparing equal if they
// refer to the same entity.
package jid
