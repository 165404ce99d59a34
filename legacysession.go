// Copyright 2024 The Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpp

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"

	"mellium.im/xmlstream"
	"go.stanzaclient.dev/xmpp/internal/attr"
	"go.stanzaclient.dev/xmpp/stanza"
	"go.stanzaclient.dev/xmpp/stream"
)

// NSLegacySession is the RFC 3921 session establishment namespace. Modern
// servers do not advertise it (resource binding alone is sufficient per RFC
// 6120), but a handful of older deployments still require this extra IQ
// round trip after bind before stanzas may be exchanged.
const NSLegacySession = "urn:ietf:params:xml:ns:xmpp-session"

const legacySessionIQFmt = `<iq id='%s' type='set'><session xmlns='urn:ietf:params:xml:ns:xmpp-session'/></iq>`

// LegacySession is a stream feature that performs RFC 3921 session
// establishment when a server advertises it. It has no effect (and is never
// selected) against a server that only implements RFC 6120 binding.
func LegacySession() StreamFeature {
	return StreamFeature{
		Name:       xml.Name{Space: NSLegacySession, Local: "session"},
		Necessary:  Bind,
		Prohibited: Ready,
		List: func(ctx context.Context, e xmlstream.TokenWriter, start xml.StartElement) (bool, error) {
			if err := e.EncodeToken(start); err != nil {
				return false, err
			}
			return false, e.EncodeToken(start.End())
		},
		Parse: func(ctx context.Context, r xml.TokenReader, start *xml.StartElement) (bool, interface{}, error) {
			return false, nil, xmlstream.Skip(r)
		},
		Negotiate: func(ctx context.Context, session *Session, data interface{}) (mask SessionState, rw io.ReadWriter, err error) {
			reqID := attr.RandomID()
			if _, err = fmt.Fprintf(session, legacySessionIQFmt, reqID); err != nil {
				return mask, nil, err
			}
			tok, err := session.Token()
			if err != nil {
				return mask, nil, err
			}
			start, ok := tok.(xml.StartElement)
			if !ok || start.Name != (xml.Name{Space: NSClient, Local: "iq"}) {
				return mask, nil, stream.BadFormat
			}
			resp := stanza.IQ{}
			if err = xml.NewTokenDecoder(session).DecodeElement(&resp, &start); err != nil {
				return mask, nil, err
			}
			switch {
			case resp.ID != reqID:
				return mask, nil, stream.UndefinedCondition
			case resp.Type == stanza.ErrorIQ:
				return mask, nil, fmt.Errorf("xmpp: legacy session establishment failed")
			default:
				return Ready, nil, nil
			}
		},
	}
}
