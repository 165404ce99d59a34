// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"encoding/xml"

	"go.stanzaclient.dev/xmpp/internal/ns"
)

// Namespaces used to distinguish client-to-server stanzas from
// server-to-server stanzas.
const (
	NSClient = ns.Client
	NSServer = ns.Server
)

// Is tests whether name is a valid stanza based on name and space.
func Is(name xml.Name) bool {
	return (name.Local == "iq" || name.Local == "message" || name.Local == "presence") &&
		(name.Space == ns.Client || name.Space == ns.Server)
}
