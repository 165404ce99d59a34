// Copyright 2024 The Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package sm implements XEP-0198: Stream Management, the acknowledged
// delivery and stream resumption extension to XMPP.
package sm

import (
	"encoding/xml"

	"mellium.im/xmlstream"
	"go.stanzaclient.dev/xmpp/xso"
)

// NS is the stream management namespace.
const NS = "urn:xmpp:sm:3"

// streamNS is the namespace RFC 6120 stream errors, and by extension the
// <failed/> condition elements XEP-0198 reuses from it, live in.
const streamNS = "urn:ietf:params:xml:ns:xmpp-streams"

// streamConditions lists every stream error condition a server might report
// as the cause of a Failed enable or resumption attempt.
var streamConditions = []string{
	"bad-format", "bad-namespace-prefix", "conflict", "connection-timeout",
	"host-gone", "host-unknown", "improper-addressing", "internal-server-error",
	"invalid-from", "invalid-namespace", "invalid-xml", "not-authorized",
	"not-well-formed", "policy-violation", "remote-connection-failed", "reset",
	"resource-constraint", "restricted-xml", "see-other-host", "system-shutdown",
	"undefined-condition", "unsupported-encoding", "unsupported-feature",
	"unsupported-stanza-type", "unsupported-version",
}

func conditionChildren() []xso.ChildDescriptor {
	cds := make([]xso.ChildDescriptor, len(streamConditions))
	for i, name := range streamConditions {
		cds[i] = xso.ChildDescriptor{Name: xml.Name{Space: streamNS, Local: name}, Kind: xso.ChildTag}
	}
	return cds
}

// Enable is sent by a client to request that the server begin acknowledged
// delivery on the current stream.
type Enable struct {
	Resume bool
	Max    uint32
}

// TokenReader implements xmlstream.Marshaler.
func (e Enable) TokenReader() xml.TokenReader {
	start := xml.StartElement{Name: xml.Name{Space: NS, Local: "enable"}}
	if e.Resume {
		v, _ := xso.Bool.Format(true)
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "resume"}, Value: v})
	}
	if e.Max > 0 {
		v, _ := xso.Int.Format(e.Max)
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "max"}, Value: v})
	}
	return xmlstream.Wrap(nil, start)
}

// WriteXML implements xmlstream.WriterTo.
func (e Enable) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, e.TokenReader())
}

// MarshalXML implements xml.Marshaler.
func (e Enable) MarshalXML(enc *xml.Encoder, _ xml.StartElement) error {
	_, err := e.WriteXML(enc)
	return err
}

// Enabled is the server's affirmative response to Enable.
type Enabled struct {
	ID       string
	Location string
	Resume   bool
	Max      uint32
}

var enabledDescriptor = xso.Descriptor{
	Attrs: []xso.AttrDescriptor{
		{Name: xml.Name{Local: "id"}},
		{Name: xml.Name{Local: "location"}},
		{Name: xml.Name{Local: "resume"}, Type: xso.Bool},
		{Name: xml.Name{Local: "max"}, Type: xso.Int},
	},
	UnknownAttrPolicy:  xso.Drop,
	UnknownChildPolicy: xso.Drop,
}

// UnmarshalXML implements xml.Unmarshaler.
func (e *Enabled) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	el, err := xso.Decode(d, start, enabledDescriptor)
	if err != nil {
		return err
	}
	e.ID = el.Attrs[xml.Name{Local: "id"}]
	e.Location = el.Attrs[xml.Name{Local: "location"}]
	if v, ok := el.TypedAttrs[xml.Name{Local: "resume"}]; ok {
		e.Resume = v.(bool)
	}
	if v, ok := el.TypedAttrs[xml.Name{Local: "max"}]; ok {
		e.Max = uint32(v.(int64))
	}
	return nil
}

// Failed is sent by the server when it declines to enable, or is unable to
// resume, a stream management session.
type Failed struct {
	H         uint32
	HSet      bool
	Condition xml.Name
}

var failedDescriptor = xso.Descriptor{
	Attrs: []xso.AttrDescriptor{
		{Name: xml.Name{Local: "h"}, Type: xso.Int},
	},
	Children:           conditionChildren(),
	UnknownAttrPolicy:  xso.Drop,
	UnknownChildPolicy: xso.Drop,
}

// UnmarshalXML implements xml.Unmarshaler.
func (f *Failed) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	el, err := xso.Decode(d, start, failedDescriptor)
	if err != nil {
		return err
	}
	if v, ok := el.TypedAttrs[xml.Name{Local: "h"}]; ok {
		f.H = uint32(v.(int64))
		f.HSet = true
	}
	if local, ok := el.Tags[start.Name]; ok {
		f.Condition = xml.Name{Space: streamNS, Local: local}
	}
	return nil
}

// Resume is sent by a client after reconnecting to attempt to resume a
// previous stream management session instead of performing full
// authentication and binding again.
type Resume struct {
	H      uint32
	PrevID string
}

// TokenReader implements xmlstream.Marshaler.
func (r Resume) TokenReader() xml.TokenReader {
	h, _ := xso.Int.Format(r.H)
	return xmlstream.Wrap(nil, xml.StartElement{
		Name: xml.Name{Space: NS, Local: "resume"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "h"}, Value: h},
			{Name: xml.Name{Local: "previd"}, Value: r.PrevID},
		},
	})
}

// WriteXML implements xmlstream.WriterTo.
func (r Resume) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, r.TokenReader())
}

// MarshalXML implements xml.Marshaler.
func (r Resume) MarshalXML(enc *xml.Encoder, _ xml.StartElement) error {
	_, err := r.WriteXML(enc)
	return err
}

// Resumed is the server's affirmative response to Resume.
type Resumed struct {
	H      uint32
	PrevID string
}

var resumedDescriptor = xso.Descriptor{
	Attrs: []xso.AttrDescriptor{
		{Name: xml.Name{Local: "h"}, Type: xso.Int, Required: true},
		{Name: xml.Name{Local: "previd"}},
	},
	UnknownAttrPolicy:  xso.Drop,
	UnknownChildPolicy: xso.Drop,
}

// UnmarshalXML implements xml.Unmarshaler.
func (r *Resumed) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	el, err := xso.Decode(d, start, resumedDescriptor)
	if err != nil {
		return err
	}
	if v, ok := el.TypedAttrs[xml.Name{Local: "h"}]; ok {
		r.H = uint32(v.(int64))
	}
	r.PrevID = el.Attrs[xml.Name{Local: "previd"}]
	return nil
}

// Request is the <r/> element, sent by either party to ask the other to
// report how many stanzas it has received so far.
type Request struct{}

// TokenReader implements xmlstream.Marshaler.
func (Request) TokenReader() xml.TokenReader {
	return xmlstream.Wrap(nil, xml.StartElement{Name: xml.Name{Space: NS, Local: "r"}})
}

// WriteXML implements xmlstream.WriterTo.
func (r Request) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, r.TokenReader())
}

// MarshalXML implements xml.Marshaler.
func (r Request) MarshalXML(enc *xml.Encoder, _ xml.StartElement) error {
	_, err := r.WriteXML(enc)
	return err
}

// Ack is the <a/> element sent in reply to a Request (or spontaneously),
// reporting the number of stanzas received so far on the stream.
type Ack struct {
	H uint32
}

var ackDescriptor = xso.Descriptor{
	Attrs: []xso.AttrDescriptor{
		{Name: xml.Name{Local: "h"}, Type: xso.Int, Required: true},
	},
	UnknownAttrPolicy:  xso.Drop,
	UnknownChildPolicy: xso.Drop,
}

// TokenReader implements xmlstream.Marshaler.
func (a Ack) TokenReader() xml.TokenReader {
	h, _ := xso.Int.Format(a.H)
	return xmlstream.Wrap(nil, xml.StartElement{
		Name: xml.Name{Space: NS, Local: "a"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "h"}, Value: h}},
	})
}

// WriteXML implements xmlstream.WriterTo.
func (a Ack) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, a.TokenReader())
}

// MarshalXML implements xml.Marshaler.
func (a Ack) MarshalXML(enc *xml.Encoder, _ xml.StartElement) error {
	_, err := a.WriteXML(enc)
	return err
}

// UnmarshalXML implements xml.Unmarshaler.
func (a *Ack) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	el, err := xso.Decode(d, start, ackDescriptor)
	if err != nil {
		return err
	}
	if v, ok := el.TypedAttrs[xml.Name{Local: "h"}]; ok {
		a.H = uint32(v.(int64))
	}
	return nil
}
