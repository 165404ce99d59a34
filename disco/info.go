// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package disco

import (
	"encoding/xml"

	"mellium.im/xmlstream"
	"go.stanzaclient.dev/xmpp/disco/info"
	"go.stanzaclient.dev/xmpp/form"
	"go.stanzaclient.dev/xmpp/xso"
)

// extraDescriptor captures every attribute and child of an extension
// element disco#info does not otherwise recognize, so that vendor and
// future-XEP payloads riding alongside identities, features, and forms are
// not silently discarded.
var extraDescriptor = xso.Descriptor{
	UnknownAttrPolicy:  xso.Preserve,
	UnknownChildPolicy: xso.Preserve,
	Capturing:          true,
}

// InfoQuery is the payload of a query for a node's identities and features.
type InfoQuery struct {
	XMLName xml.Name `xml:"http://jabber.org/protocol/disco#info query"`
	Node    string   `xml:"node,attr,omitempty"`
}

// TokenReader implements xmlstream.Marshaler.
func (q InfoQuery) TokenReader() xml.TokenReader {
	start := xml.StartElement{Name: xml.Name{Space: NSInfo, Local: "query"}}
	if q.Node != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "node"}, Value: q.Node})
	}
	return xmlstream.Wrap(nil, start)
}

// WriteXML implements xmlstream.WriterTo.
func (q InfoQuery) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, q.TokenReader())
}

// Info is the response to a disco#info query: the identities and features
// advertised by a node, plus any extended service information embedded as
// one or more XEP-0004 data forms (XEP-0128).
type Info struct {
	Node     string
	Identity []info.Identity
	Features []info.Feature
	Form     []form.Data

	// Extra holds any child elements that are not an identity, a feature,
	// or a data form, decoded generically so vendor extensions are not
	// lost on a decode/re-encode round trip through the parts of this
	// struct that are understood.
	Extra []xso.Element
}

// UnmarshalXML implements xml.Unmarshaler.
func (fi *Info) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, a := range start.Attr {
		if a.Name.Local == "node" {
			fi.Node = a.Value
		}
	}
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			return nil
		case xml.StartElement:
			switch {
			case t.Name.Local == "identity":
				var ident info.Identity
				if err := d.DecodeElement(&ident, &t); err != nil {
					return err
				}
				fi.Identity = append(fi.Identity, ident)
			case t.Name.Local == "feature":
				var feat info.Feature
				if err := d.DecodeElement(&feat, &t); err != nil {
					return err
				}
				fi.Features = append(fi.Features, feat)
			case t.Name.Space == form.NS && t.Name.Local == "x":
				var data form.Data
				if err := data.UnmarshalXML(d, t); err != nil {
					return err
				}
				fi.Form = append(fi.Form, data)
			default:
				el, err := xso.Decode(d, t, extraDescriptor)
				if err != nil {
					return err
				}
				fi.Extra = append(fi.Extra, el)
			}
		}
	}
}

// TokenReader implements xmlstream.Marshaler.
func (fi Info) TokenReader() xml.TokenReader {
	start := xml.StartElement{Name: xml.Name{Space: NSInfo, Local: "query"}}
	if fi.Node != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "node"}, Value: fi.Node})
	}
	var children []xml.TokenReader
	for _, ident := range fi.Identity {
		children = append(children, ident.TokenReader())
	}
	for _, feat := range fi.Features {
		children = append(children, feat.TokenReader())
	}
	for _, f := range fi.Form {
		children = append(children, f.TokenReader())
	}
	for _, el := range fi.Extra {
		attrs := make([]xml.Attr, 0, len(el.Attrs))
		for name, value := range el.Attrs {
			attrs = append(attrs, xml.Attr{Name: name, Value: value})
		}
		children = append(children, xmlstream.Wrap(nil, xml.StartElement{Name: el.Name, Attr: attrs}))
	}
	return xmlstream.Wrap(xmlstream.MultiReader(children...), start)
}

// WriteXML implements xmlstream.WriterTo.
func (fi Info) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, fi.TokenReader())
}

// MarshalXML implements xml.Marshaler.
func (fi Info) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := fi.WriteXML(e)
	return err
}
