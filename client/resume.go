// Copyright 2024 The Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package client

import (
	"context"
	"encoding/xml"
	"io"

	"go.stanzaclient.dev/xmpp"
	intstream "go.stanzaclient.dev/xmpp/internal/stream"
	"go.stanzaclient.dev/xmpp/jid"
	"go.stanzaclient.dev/xmpp/sm"
	"go.stanzaclient.dev/xmpp/stream"
)

// resumeNegotiator builds an xmpp.Negotiator that opens a bare stream (no
// SASL, no resource binding) and immediately attempts to resume the stream
// management session recorded in st, skipping full re-authentication
// entirely on success. It is used by Client.connect as the first thing tried
// on every reconnect after the first.
func resumeNegotiator(lang string, origin jid.JID, st *sm.State) xmpp.Negotiator {
	return func(ctx context.Context, session *xmpp.Session, data interface{}) (xmpp.SessionState, io.ReadWriter, interface{}, error) {
		domain := origin.Domain()
		if _, err := intstream.Send(session.Conn(), false, intstream.DefaultVersion, lang, domain.String(), origin.String(), ""); err != nil {
			return 0, nil, nil, err
		}
		if _, err := intstream.Expect(ctx, session, false); err != nil {
			return 0, nil, nil, err
		}
		if err := skipFeatures(session); err != nil {
			return 0, nil, nil, err
		}
		if err := sm.ResumeStream(session, st); err != nil {
			return 0, nil, nil, err
		}
		return xmpp.Secure | xmpp.Authn | xmpp.Bind | xmpp.SM | xmpp.Ready, nil, false, nil
	}
}

// skipFeatures reads and discards the <stream:features/> element every
// server sends immediately after opening a stream, since a resumption
// attempt bypasses ordinary feature negotiation entirely.
func skipFeatures(session *xmpp.Session) error {
	tok, err := session.Token()
	if err != nil {
		return err
	}
	start, ok := tok.(xml.StartElement)
	if !ok || start.Name.Local != "features" {
		return stream.BadFormat
	}
	depth := 1
	for depth > 0 {
		tok, err := session.Token()
		if err != nil {
			return err
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return nil
}
