// Copyright 2020 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"encoding/xml"
	"io"

	"mellium.im/xmlstream"
	"go.stanzaclient.dev/xmpp/internal/attr"
	"go.stanzaclient.dev/xmpp/jid"
)

// NSSID is the namespace used by stanza and origin IDs.
const NSSID = "urn:xmpp:sid:0"

// AddOriginID inserts an origin-id child into the first iq, message, or
// presence element read from r, but only if that element is in the provided
// namespace. If the first token is not a matching stanza start element, r is
// returned unmodified.
func AddOriginID(r xml.TokenReader, ns string) xml.TokenReader {
	return newIDInjector(r, ns, func() xml.TokenReader {
		return xmlstream.Wrap(nil, xml.StartElement{
			Name: xml.Name{Space: NSSID, Local: "origin-id"},
			Attr: []xml.Attr{
				{Name: xml.Name{Local: "id"}, Value: attr.RandomID()},
			},
		})
	})
}

// AddID returns a transformer that inserts a stanza-id child, attributed to
// by, into the first iq, message, or presence element read from its input,
// but only if that element is in the provided namespace.
func AddID(by jid.JID, ns string) func(xml.TokenReader) xml.TokenReader {
	return func(r xml.TokenReader) xml.TokenReader {
		return newIDInjector(r, ns, func() xml.TokenReader {
			return xmlstream.Wrap(nil, xml.StartElement{
				Name: xml.Name{Space: NSSID, Local: "stanza-id"},
				Attr: []xml.Attr{
					{Name: xml.Name{Local: "id"}, Value: attr.RandomID()},
					{Name: xml.Name{Local: "by"}, Value: by.String()},
				},
			})
		})
	}
}

// idInjector inspects only the very first token from r. If it describes an
// iq, message, or presence stanza in ns, the reader produced by newChild is
// spliced in immediately after it as the new first child. In every other
// case r is passed through unmodified.
type idInjector struct {
	r        xml.TokenReader
	ns       string
	newChild func() xml.TokenReader

	checked bool
	child   xml.TokenReader
}

func newIDInjector(r xml.TokenReader, ns string, newChild func() xml.TokenReader) *idInjector {
	return &idInjector{r: r, ns: ns, newChild: newChild}
}

func isSIDTarget(name xml.Name) bool {
	switch name.Local {
	case "iq", "message", "presence":
		return true
	}
	return false
}

func (inj *idInjector) Token() (xml.Token, error) {
	if !inj.checked {
		inj.checked = true
		tok, err := inj.r.Token()
		if err != nil {
			return tok, err
		}
		if start, ok := tok.(xml.StartElement); ok && isSIDTarget(start.Name) && start.Name.Space == inj.ns {
			inj.child = inj.newChild()
		}
		return tok, nil
	}
	if inj.child != nil {
		tok, err := inj.child.Token()
		if err == io.EOF {
			inj.child = nil
			return inj.r.Token()
		}
		return tok, err
	}
	return inj.r.Token()
}
