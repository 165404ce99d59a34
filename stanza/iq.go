// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause license that can be
// found in the LICENSE file.

package stanza

import (
	"encoding/xml"
	"errors"
	"strconv"
	"strings"

	"mellium.im/xmlstream"
	"go.stanzaclient.dev/xmpp/internal/attr"
	"go.stanzaclient.dev/xmpp/internal/ns"
	"go.stanzaclient.dev/xmpp/jid"
)

// IQ ("Information Query") is used as a general request response mechanism.
// IQ's are one-to-one, provide get and set semantics, and always require a
// response in the form of a result or an error.
type IQ struct {
	XMLName xml.Name `xml:"iq"`
	ID      string   `xml:"id,attr"`
	Inner   string   `xml:",innerxml"`
	To      *jid.JID `xml:"to,attr"`
	From    *jid.JID `xml:"from,attr"`
	Lang    string   `xml:"http://www.w3.org/XML/1998/namespace lang,attr,omitempty"`
	Type    iqType   `xml:"type,attr"`
}

// StartElement converts the IQ into an XML token, always including a type
// attribute since one is mandatory on every IQ.
func (iq IQ) StartElement() xml.StartElement {
	name := iq.XMLName
	name.Local = "iq"

	elAttr := make([]xml.Attr, 0, 5)
	if typAttr, err := iq.Type.MarshalXMLAttr(xml.Name{Local: "type"}); err == nil {
		elAttr = append(elAttr, typAttr)
	}
	if iq.To != nil {
		elAttr = append(elAttr, xml.Attr{Name: xml.Name{Local: "to"}, Value: iq.To.String()})
	}
	if iq.From != nil {
		elAttr = append(elAttr, xml.Attr{Name: xml.Name{Local: "from"}, Value: iq.From.String()})
	}
	if iq.Lang != "" {
		elAttr = append(elAttr, xml.Attr{Name: xml.Name{Space: ns.XML, Local: "lang"}, Value: iq.Lang})
	}
	if iq.ID != "" {
		elAttr = append(elAttr, xml.Attr{Name: xml.Name{Local: "id"}, Value: iq.ID})
	}

	return xml.StartElement{
		Name: name,
		Attr: elAttr,
	}
}

// Wrap wraps the payload in a stanza.
func (iq IQ) Wrap(payload xml.TokenReader) xml.TokenReader {
	return xmlstream.Wrap(payload, iq.StartElement())
}

// UnmarshalIQError checks whether start describes an error IQ and, if so,
// decodes its error payload from r and returns it as the error. If the IQ is
// not of type "error" it returns the zero value and a nil error.
func UnmarshalIQError(r xml.TokenReader, start xml.StartElement) (Error, error) {
	if attr.Get(start.Attr, "type") != "error" {
		return Error{}, nil
	}
	e := Error{}
	if err := xml.NewTokenDecoder(r).DecodeElement(&e, &start); err != nil {
		return Error{}, err
	}
	return e, e
}

type iqType int

const (
	// GetIQ is used to query another entity for information.
	GetIQ iqType = iota

	// SetIQ is used to provide data to another entity, set new values, and
	// replace existing values.
	SetIQ

	// ResultIQ is sent in response to a successful get or set IQ.
	ResultIQ

	// ErrorIQ is sent to report that an error occurred during the delivery or
	// processing of a get or set IQ.
	ErrorIQ
)

func (t iqType) String() string {
	switch t {
	case GetIQ:
		return "GetIQ"
	case SetIQ:
		return "SetIQ"
	case ResultIQ:
		return "ResultIQ"
	case ErrorIQ:
		return "ErrorIQ"
	default:
		return "iqType(" + strconv.Itoa(int(t)) + ")"
	}
}

func (t iqType) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	s := t.String()
	return xml.Attr{Name: name, Value: strings.ToLower(s[:len(s)-2])}, nil
}

func (t *iqType) UnmarshalXMLAttr(attr xml.Attr) error {
	switch attr.Value {
	case "get":
		*t = GetIQ
	case "set":
		*t = SetIQ
	case "result":
		*t = ResultIQ
	case "error":
		*t = ErrorIQ
	default:
		// TODO: This should be a stanza error with the bad-request condition.
		return errors.New("bad-request")
	}
	return nil
}
