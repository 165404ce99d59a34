// Copyright 2015 The Mellium Contributors.
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

// Message is an XMPP stanza that is used for pushing information to another
// entity, most commonly used to represent chat messages.
type Message struct {
	XMLName xml.Name    `xml:"message"`
	ID      string      `xml:"id,attr"`
	To      jid.JID     `xml:"to,attr"`
	From    jid.JID     `xml:"from,attr"`
	Lang    string      `xml:"http://www.w3.org/XML/1998/namespace lang,attr,omitempty"`
	Type    MessageType `xml:"type,attr,omitempty"`

	// Thread identifies the conversation this message belongs to, so that
	// several one-to-one messages can be grouped even if they are not
	// otherwise correlated.
	Thread string

	// Subject holds this message's subject text, keyed by xml:lang.
	Subject xso.LangMap

	// Body holds this message's body text, keyed by xml:lang.
	Body xso.LangMap
}

var messageDescriptor = xso.Descriptor{
	Attrs: []xso.AttrDescriptor{
		{Name: xml.Name{Local: "id"}},
		{Name: xml.Name{Local: "to"}, Type: xso.JID},
		{Name: xml.Name{Local: "from"}, Type: xso.JID},
		{Name: xml.Name{Space: ns.XML, Local: "lang"}},
		{Name: xml.Name{Local: "type"}, Validator: xso.Choice("normal", "chat", "groupchat", "headline", "error")},
	},
	Children: []xso.ChildDescriptor{
		{Name: xml.Name{Local: "thread"}, Kind: xso.ChildText},
		{Name: xml.Name{Local: "subject"}, Kind: xso.ChildTextMap},
		{Name: xml.Name{Local: "body"}, Kind: xso.ChildTextMap},
	},
	UnknownAttrPolicy:  xso.Drop,
	UnknownChildPolicy: xso.Drop,
}

// NewMessage unmarshals an XML token into a Message.
func NewMessage(start xml.StartElement) (Message, error) {
	v := Message{}
	d := xml.NewTokenDecoder(xmlstream.Wrap(nil, start))
	err := d.Decode(&v)
	return v, err
}

// UnmarshalXML implements xml.Unmarshaler, decoding the id/to/from/xml:lang/
// type attributes along with the thread, subject, and body children.
func (m *Message) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	el, err := xso.Decode(d, start, messageDescriptor)
	if err != nil {
		return err
	}
	m.XMLName = el.Name
	m.ID = el.Attrs[xml.Name{Local: "id"}]
	if v, ok := el.TypedAttrs[xml.Name{Local: "to"}]; ok {
		m.To = v.(jid.JID)
	}
	if v, ok := el.TypedAttrs[xml.Name{Local: "from"}]; ok {
		m.From = v.(jid.JID)
	}
	m.Lang = el.Attrs[xml.Name{Space: ns.XML, Local: "lang"}]
	m.Type = MessageType(el.Attrs[xml.Name{Local: "type"}])
	if texts := el.Children[xml.Name{Local: "thread"}]; len(texts) > 0 {
		m.Thread = texts[0]
	}
	m.Subject = el.TextMaps[xml.Name{Local: "subject"}]
	m.Body = el.TextMaps[xml.Name{Local: "body"}]
	return nil
}

// StartElement converts the Message into an XML token.
func (m Message) StartElement() xml.StartElement {
	name := m.XMLName
	name.Local = "message"

	attr := make([]xml.Attr, 0, 5)
	if m.Type != "" {
		attr = append(attr, xml.Attr{Name: xml.Name{Local: "type"}, Value: string(m.Type)})
	}
	if !m.To.Equal(jid.JID{}) {
		attr = append(attr, xml.Attr{Name: xml.Name{Local: "to"}, Value: m.To.String()})
	}
	if !m.From.Equal(jid.JID{}) {
		attr = append(attr, xml.Attr{Name: xml.Name{Local: "from"}, Value: m.From.String()})
	}
	if m.Lang != "" {
		attr = append(attr, xml.Attr{Name: xml.Name{Space: ns.XML, Local: "lang"}, Value: m.Lang})
	}
	if m.ID != "" {
		attr = append(attr, xml.Attr{Name: xml.Name{Local: "id"}, Value: m.ID})
	}

	return xml.StartElement{
		Name: name,
		Attr: attr,
	}
}

// children returns the token streams for payload (if any) followed by the
// thread, subject, and body children encoded from their respective fields.
func (m Message) children(payload xml.TokenReader) []xml.TokenReader {
	children := make([]xml.TokenReader, 0, 4)
	if payload != nil {
		children = append(children, payload)
	}
	if m.Thread != "" {
		children = append(children, xso.EncodeChildText(xml.Name{Local: "thread"}, m.Thread))
	}
	if len(m.Subject) > 0 {
		children = append(children, xso.EncodeChildTextMap(xml.Name{Local: "subject"}, m.Subject))
	}
	if len(m.Body) > 0 {
		children = append(children, xso.EncodeChildTextMap(xml.Name{Local: "body"}, m.Body))
	}
	return children
}

// Wrap wraps the payload, followed by any thread, subject, and body set on
// m, in the stanza.
//
// If to is the zero value for jid.JID, no to attribute is set on the
// resulting message.
func (m Message) Wrap(payload xml.TokenReader) xml.TokenReader {
	return xmlstream.Wrap(xmlstream.MultiReader(m.children(payload)...), m.StartElement())
}

// WriteXML implements xmlstream.WriterTo.
func (m Message) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, m.Wrap(nil))
}

// MarshalXML implements xml.Marshaler.
func (m Message) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := m.WriteXML(e)
	return err
}

// MessageType is the type of a message stanza.
// It should normally be one of the constants defined in this package.
type MessageType string

const (
	// NormalMessage is a standalone message that is sent outside the context
	// of a one-to-one conversation or groupchat, and to which it is
	// expected that the recipient will reply.
	NormalMessage MessageType = "normal"

	// ChatMessage is used in the context of a one-to-one chat session.
	ChatMessage MessageType = "chat"

	// GroupChatMessage is used in the context of a multi-user chat
	// environment.
	GroupChatMessage MessageType = "groupchat"

	// HeadlineMessage provides an alert, a notice, or other transient
	// information to which no reply is expected.
	HeadlineMessage MessageType = "headline"

	// ErrorMessage indicates that an error has occurred regarding
	// processing of a previously sent message stanza.
	ErrorMessage MessageType = "error"
)
