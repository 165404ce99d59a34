// Copyright 2024 The Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package form implements XEP-0004 data forms, including decoding of
// arbitrary forms received from a peer (for example the extended service
// discovery information embedded in a disco#info reply) as well as
// constructing and sending forms of our own.
package form

import (
	"encoding/xml"

	"mellium.im/xmlstream"
	"go.stanzaclient.dev/xmpp/xso"
)

// NS is the data forms namespace.
const NS = "jabber:x:data"

// field is one <field/> of a form, decoded generically: the caller does not
// need to know the field type ahead of time to read its value back out.
type field struct {
	Var      string
	Type     string
	Values   []string
	Required bool
	Options  map[string][]string
}

var fieldDescriptor = xso.Descriptor{
	Attrs: []xso.AttrDescriptor{
		{Name: xml.Name{Local: "var"}, Required: true},
		{Name: xml.Name{Local: "type"}},
		{Name: xml.Name{Local: "label"}},
	},
	Children: []xso.ChildDescriptor{
		{Name: xml.Name{Local: "value"}, Kind: xso.ChildList},
		{Name: xml.Name{Local: "desc"}},
		{Name: xml.Name{Local: "required"}, Kind: xso.ChildFlag},
		{Name: xml.Name{Local: "option"}, Kind: xso.ChildValueMap, KeyAttr: xml.Name{Local: "label"}},
	},
	UnknownAttrPolicy:  xso.Drop,
	UnknownChildPolicy: xso.Drop,
}

func decodeField(r xml.TokenReader, start xml.StartElement) (field, error) {
	el, err := xso.Decode(r, start, fieldDescriptor)
	if err != nil {
		return field{}, err
	}
	return field{
		Var:      el.Attrs[xml.Name{Local: "var"}],
		Type:     el.Attrs[xml.Name{Local: "type"}],
		Values:   el.Children[xml.Name{Local: "value"}],
		Required: el.Flags[xml.Name{Local: "required"}],
		Options:  el.ValueMaps[xml.Name{Local: "option"}],
	}, nil
}

// Data is a single data form, the payload of a <x xmlns="jabber:x:data"/>
// element. A form is usually one of several embedded in a larger stanza (a
// disco#info reply, a MUC configuration request, an ad-hoc command); Data
// only concerns itself with decoding and re-encoding the form itself.
type Data struct {
	Type         string
	Title        string
	Instructions string
	fields       []field
}

// GetString returns the first value of the field named v, and whether a
// field with that name was present at all.
func (d Data) GetString(v string) (string, bool) {
	for _, f := range d.fields {
		if f.Var == v {
			if len(f.Values) == 0 {
				return "", true
			}
			return f.Values[0], true
		}
	}
	return "", false
}

// GetStrings returns every value of the field named v, and whether a field
// with that name was present at all.
func (d Data) GetStrings(v string) ([]string, bool) {
	for _, f := range d.fields {
		if f.Var == v {
			return f.Values, true
		}
	}
	return nil, false
}

// IsRequired reports whether the field named v is present and carries a
// bare <required/> child.
func (d Data) IsRequired(v string) bool {
	for _, f := range d.fields {
		if f.Var == v {
			return f.Required
		}
	}
	return false
}

// Options returns the label-to-values map decoded from the field named v's
// <option/> children, and whether that field was present at all.
func (d Data) Options(v string) (map[string][]string, bool) {
	for _, f := range d.fields {
		if f.Var == v {
			return f.Options, true
		}
	}
	return nil, false
}

// UnmarshalXML implements xml.Unmarshaler. Fields of unrecognized types are
// still captured; a data form is a bag of var/value pairs first and a set of
// typed widgets second.
func (d *Data) UnmarshalXML(dec *xml.Decoder, start xml.StartElement) error {
	for _, a := range start.Attr {
		if a.Name.Local == "type" {
			d.Type = a.Value
		}
	}
	for {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			return nil
		case xml.StartElement:
			switch t.Name.Local {
			case "field":
				f, err := decodeField(dec, t)
				if err != nil {
					return err
				}
				d.fields = append(d.fields, f)
			case "title":
				var title struct {
					Text string `xml:",chardata"`
				}
				if err := dec.DecodeElement(&title, &t); err != nil {
					return err
				}
				d.Title = title.Text
			case "instructions":
				var instr struct {
					Text string `xml:",chardata"`
				}
				if err := dec.DecodeElement(&instr, &t); err != nil {
					return err
				}
				d.Instructions = instr.Text
			default:
				if err := dec.Skip(); err != nil {
					return err
				}
			}
		}
	}
}

// TokenReader implements xmlstream.Marshaler.
func (d Data) TokenReader() xml.TokenReader {
	start := xml.StartElement{
		Name: xml.Name{Space: NS, Local: "x"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "type"}, Value: d.Type}},
	}
	var children []xml.TokenReader
	if d.Title != "" {
		children = append(children, xmlstream.Wrap(
			xmlstream.Token(xml.CharData(d.Title)),
			xml.StartElement{Name: xml.Name{Local: "title"}},
		))
	}
	if d.Instructions != "" {
		children = append(children, xmlstream.Wrap(
			xmlstream.Token(xml.CharData(d.Instructions)),
			xml.StartElement{Name: xml.Name{Local: "instructions"}},
		))
	}
	for _, f := range d.fields {
		fstart := xml.StartElement{
			Name: xml.Name{Local: "field"},
			Attr: []xml.Attr{{Name: xml.Name{Local: "var"}, Value: f.Var}},
		}
		if f.Type != "" {
			fstart.Attr = append(fstart.Attr, xml.Attr{Name: xml.Name{Local: "type"}, Value: f.Type})
		}
		var values []xml.TokenReader
		for _, v := range f.Values {
			values = append(values, xmlstream.Wrap(
				xmlstream.Token(xml.CharData(v)),
				xml.StartElement{Name: xml.Name{Local: "value"}},
			))
		}
		children = append(children, xmlstream.Wrap(xmlstream.MultiReader(values...), fstart))
	}
	return xmlstream.Wrap(xmlstream.MultiReader(children...), start)
}

// WriteXML implements xmlstream.WriterTo.
func (d Data) WriteXML(w xmlstream.TokenWriter) (int, error) {
	return xmlstream.Copy(w, d.TokenReader())
}

// MarshalXML implements xml.Marshaler.
func (d Data) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	_, err := d.WriteXML(e)
	return err
}
