// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"encoding/xml"

	"mellium.im/xmlstream"
	"go.stanzaclient.dev/xmpp/internal/ns"
	"go.stanzaclient.dev/xmpp/jid"
	"go.stanzaclient.dev/xmpp/xso"
)

// Presence is an XMPP stanza that is used as an indication that an entity is
// available for communication. It is used to set a status message, broadcast
// availability, and advertise entity capabilities. It can be directed
// (one-to-one), or used as a broadcast mechanism (one-to-many).
type Presence struct {
	XMLName xml.Name     `xml:"presence"`
	ID      string       `xml:"id,attr"`
	To      jid.JID      `xml:"to,attr"`
	From    jid.JID      `xml:"from,attr"`
	Lang    string       `xml:"http://www.w3.org/XML/1998/namespace lang,attr,omitempty"`
	Type    PresenceType `xml:"type,attr,omitempty"`

	// Show is the availability sub-state advertised alongside presence,
	// one of ShowAway, ShowChat, ShowDND, or ShowXA, or ShowNone if no
	// <show/> element is present (plain availability).
	Show ShowState

	// Priority sets the relative priority of this resource for receiving
	// stanzas addressed to the bare JID. It defaults to 0, the value
	// implied by an absent <priority/> element.
	Priority int8

	// Status holds this presence's human-readable status text, keyed by
	// xml:lang.
	Status xso.LangMap
}

// ShowState is the value of a presence stanza's <show/> child.
type ShowState string

// A list of valid show states.
const (
	// ShowNone is the zero value, meaning no <show/> element is present
	// and the entity is simply available.
	ShowNone ShowState = ""

	// ShowAway indicates that the entity is temporarily away.
	ShowAway ShowState = "away"

	// ShowChat indicates that the entity is actively interested in
	// chatting.
	ShowChat ShowState = "chat"

	// ShowDND indicates that the entity is busy and should not be
	// disturbed.
	ShowDND ShowState = "dnd"

	// ShowXA indicates that the entity has been away for an extended
	// period.
	ShowXA ShowState = "xa"
)

var presenceDescriptor = xso.Descriptor{
	Attrs: []xso.AttrDescriptor{
		{Name: xml.Name{Local: "id"}},
		{Name: xml.Name{Local: "to"}, Type: xso.JID},
		{Name: xml.Name{Local: "from"}, Type: xso.JID},
		{Name: xml.Name{Space: ns.XML, Local: "lang"}},
		{Name: xml.Name{Local: "type"}, Validator: xso.Choice("error", "probe", "subscribe", "subscribed", "unavailable", "unsubscribe", "unsubscribed")},
	},
	Children: []xso.ChildDescriptor{
		{Name: xml.Name{Local: "show"}, Kind: xso.ChildText, Type: xso.Enum("away", "chat", "dnd", "xa")},
		{Name: xml.Name{Local: "priority"}, Kind: xso.ChildText, Type: xso.Int},
		{Name: xml.Name{Local: "status"}, Kind: xso.ChildTextMap},
	},
	UnknownAttrPolicy:  xso.Drop,
	UnknownChildPolicy: xso.Drop,
}

// NewPresence unmarshals an XML token into a Presence.
func NewPresence(start xml.StartElement) (Presence, error) {
	v := Presence{}
	d := xml.NewTokenDecoder(xmlstream.Wrap(nil, start))
	err := d.Decode(&v)
	return v, err
}

// UnmarshalXML implements xml.Unmarshaler, decoding the id/to/from/xml:lang/
// type attributes along with the show, priority, and status children.
func (p *Presence) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	el, err := xso.Decode(d, start, presenceDescriptor)
	if err != nil {
		return err
	}
	p.XMLName = el.Name
	p.ID = el.Attrs[xml.Name{Local: "id"}]
	if v, ok := el.TypedAttrs[xml.Name{Local: "to"}]; ok {
		p.To = v.(jid.JID)
	}
	if v, ok := el.TypedAttrs[xml.Name{Local: "from"}]; ok {
		p.From = v.(jid.JID)
	}
	p.Lang = el.Attrs[xml.Name{Space: ns.XML, Local: "lang"}]
	p.Type = PresenceType(el.Attrs[xml.Name{Local: "type"}])
	if vs := el.TypedChildren[xml.Name{Local: "show"}]; len(vs) > 0 {
		p.Show = ShowState(vs[0].(string))
	}
	p.Priority = 0
	if vs := el.TypedChildren[xml.Name{Local: "priority"}]; len(vs) > 0 {
		p.Priority = int8(vs[0].(int64))
	}
	p.Status = el.TextMaps[xml.Name{Local: "status"}]
	return nil
}

// StartElement converts the Presence into an XML token.
func (p Presence) StartElement() xml.StartElement {
	// Keep whatever namespace we're already using but make sure the localname is
	// "presence".
	name := p.XMLName
	name.Local = "presence"

	attr := make([]xml.Attr, 0, 5)
	if p.Type != "" {
		attr = append(attr, xml.Attr{Name: xml.Name{Local: "type"}, Value: string(p.Type)})
	}
	if !p.To.Equal(jid.JID{}) {
		attr = append(attr, xml.Attr{Name: xml.Name{Local: "to"}, Value: p.To.String()})
	}
	if !p.From.Equal(jid.JID{}) {
		attr = append(attr, xml.Attr{Name: xml.Name{Local: "from"}, Value: p.From.String()})
	}
	if p.Lang != "" {
		attr = append(attr, xml.Attr{Name: xml.Name{Space: ns.XML, Local: "lang"}, Value: p.Lang})
	}
	if p.ID != "" {
		attr = append(attr, xml.Attr{Name: xml.Name{Local: "id"}, Value: p.ID})
	}

	return xml.StartElement{
		Name: name,
		Attr: attr,
	}
}

// children returns the token streams for payload (if any) followed by the
// show, priority, and status children encoded from their respective fields.
func (p Presence) children(payload xml.TokenReader) []xml.TokenReader {
	children := make([]xml.TokenReader, 0, 4)
	if payload != nil {
		children = append(children, payload)
	}
	if p.Show != ShowNone {
		children = append(children, xso.EncodeChildText(xml.Name{Local: "show"}, string(p.Show)))
	}
	if p.Priority != 0 {
		n, _ := xso.Int.Format(int64(p.Priority))
		children = append(children, xso.EncodeChildText(xml.Name{Local: "priority"}, n))
	}
	if len(p.Status) > 0 {
		children = append(children, xso.EncodeChildTextMap(xml.Name{Local: "status"}, p.Status))
	}
	return children
}

// Wrap wraps the payload, followed by any show, priority, and status set on
// p, in the stanza.
//
// If to is the zero value for jid.JID, no to attribute is set on the resulting
// presence.
func (p Presence) Wrap(payload xml.TokenReader) xml.TokenReader {
	return xmlstream.Wrap(xmlstream.MultiReader(p.children(payload)...), p.StartElement())
}

// WriteXML implements xmlstream.WriterTo.
func (p Presence) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, p.Wrap(nil))
}

// MarshalXML implements xml.Marshaler.
func (p Presence) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := p.WriteXML(e)
	return err
}

// PresenceType is the type of a presence stanza.
// It should normally be one of the constants defined in this package.
type PresenceType string

const (
	// AvailablePresence is a special case that signals that the entity is
	// available for communication.
	AvailablePresence PresenceType = ""

	// ErrorPresence indicates that an error has occurred regarding processing of
	// a previously sent presence stanza; if the presence stanza is of type
	// "error", it MUST include an <error/> child element
	ErrorPresence PresenceType = "error"

	// ProbePresence is a request for an entity's current presence. It should
	// generally only be generated and sent by servers on behalf of a user.
	ProbePresence PresenceType = "probe"

	// SubscribePresence is sent when the sender wishes to subscribe to the
	// recipient's presence.
	SubscribePresence PresenceType = "subscribe"

	// SubscribedPresence indicates that the sender has allowed the recipient to
	// receive future presence broadcasts.
	SubscribedPresence PresenceType = "subscribed"

	// UnavailablePresence indicates that the sender is no longer available for
	// communication.
	UnavailablePresence PresenceType = "unavailable"

	// UnsubscribePresence indicates that the sender is unsubscribing from the
	// receiver's presence.
	UnsubscribePresence PresenceType = "unsubscribe"

	// UnsubscribedPresence indicates that the subscription request has been
	// denied, or a previously granted subscription has been revoked.
	UnsubscribedPresence PresenceType = "unsubscribed"
)
