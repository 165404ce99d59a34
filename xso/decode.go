// Copyright 2024 The Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xso

import (
	"encoding/xml"
	"errors"
	"fmt"

	"mellium.im/xmlstream"
	"go.stanzaclient.dev/xmpp/internal/ns"
)

// ErrUnknown is returned by Decode when an attribute or child element is
// encountered that the Descriptor does not know about and whose policy is
// Fail.
var ErrUnknown = errors.New("xso: unknown attribute or child element")

// Element is the result of decoding a stream against a Descriptor.
type Element struct {
	Name xml.Name

	// Attrs holds every attribute that matched an AttrDescriptor, plus any
	// unknown attributes kept under the Preserve policy.
	Attrs map[xml.Name]string

	// TypedAttrs holds the coerced value of every attribute whose
	// AttrDescriptor set a Type, keyed the same way as Attrs.
	TypedAttrs map[xml.Name]interface{}

	// Children holds, for each child name decoded with Kind ChildText or
	// ChildList (or preserved as unknown), the character data of every
	// matching occurrence in document order.
	Children map[xml.Name][]string

	// TypedChildren mirrors Children for child names whose ChildDescriptor
	// set a Type.
	TypedChildren map[xml.Name][]interface{}

	// TextMaps holds, for each child name decoded with Kind ChildTextMap,
	// the per-language text collected across every occurrence.
	TextMaps map[xml.Name]LangMap

	// ValueMaps holds, for each child name decoded with Kind ChildValueMap,
	// the values collected for each distinct KeyAttr value.
	ValueMaps map[xml.Name]map[string][]string

	// Flags holds, for each child name decoded with Kind ChildFlag, whether
	// that child was present.
	Flags map[xml.Name]bool

	// Tags holds, for each child name decoded with Kind ChildTag, the local
	// name of whichever candidate child was actually found.
	Tags map[xml.Name]string

	// Collected holds, for each child name decoded with Kind Collector, the
	// nested Elements captured for children that matched no other
	// descriptor entry.
	Collected map[xml.Name][]Element

	// Unknown lists the raw token streams of unknown children kept because
	// Descriptor.Capturing was set with UnknownChildPolicy Preserve.
	Unknown []xml.TokenReader
}

func newElement(name xml.Name) Element {
	return Element{
		Name:          name,
		Attrs:         make(map[xml.Name]string),
		TypedAttrs:    make(map[xml.Name]interface{}),
		Children:      make(map[xml.Name][]string),
		TypedChildren: make(map[xml.Name][]interface{}),
		TextMaps:      make(map[xml.Name]LangMap),
		ValueMaps:     make(map[xml.Name]map[string][]string),
		Flags:         make(map[xml.Name]bool),
		Tags:          make(map[xml.Name]string),
		Collected:     make(map[xml.Name][]Element),
	}
}

// Decode reads start (already consumed from r) and the remainder of its
// element from r, validating and classifying attributes and children
// according to desc.
func Decode(r xml.TokenReader, start xml.StartElement, desc Descriptor) (Element, error) {
	el := newElement(start.Name)

	if err := decodeAttrs(&el, start, desc); err != nil {
		return el, err
	}

	for {
		tok, err := r.Token()
		if err != nil {
			return el, err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			return el, nil
		case xml.StartElement:
			if err := decodeChild(r, &el, start, t, desc); err != nil {
				return el, err
			}
		}
	}
}

func decodeAttrs(el *Element, start xml.StartElement, desc Descriptor) error {
	for _, a := range start.Attr {
		ad, known := desc.attr(a.Name)
		if !known {
			switch desc.UnknownAttrPolicy {
			case Fail:
				return fmt.Errorf("%w: attribute %s on <%s>", ErrUnknown, a.Name.Local, start.Name.Local)
			case Drop:
				continue
			case Preserve:
				el.Attrs[a.Name] = a.Value
				continue
			}
		}
		if ad.Validator != nil {
			if err := ad.Validator.Validate(a.Value); err != nil {
				return fmt.Errorf("xso: attribute %s: %w", a.Name.Local, err)
			}
		}
		el.Attrs[a.Name] = a.Value
		if ad.Type != nil {
			v, err := ad.Type.Parse(a.Value)
			if err != nil {
				return fmt.Errorf("xso: attribute %s: %w", a.Name.Local, err)
			}
			el.TypedAttrs[a.Name] = v
		}
	}
	for _, ad := range desc.Attrs {
		if ad.Required {
			if _, ok := el.Attrs[ad.Name]; !ok {
				return fmt.Errorf("xso: missing required attribute %s on <%s>", ad.Name.Local, start.Name.Local)
			}
		}
	}
	return nil
}

func decodeChild(r xml.TokenReader, el *Element, start, t xml.StartElement, desc Descriptor) error {
	cd, known := desc.child(t.Name)
	if !known {
		switch desc.UnknownChildPolicy {
		case Fail:
			return fmt.Errorf("%w: child <%s> of <%s>", ErrUnknown, t.Name.Local, start.Name.Local)
		case Drop:
			return xmlstream.Skip(r)
		case Preserve:
			if desc.Capturing {
				el.Unknown = append(el.Unknown, xmlstream.Wrap(nil, t))
			}
			data, err := decodeCharData(r, t)
			if err != nil {
				return err
			}
			el.Children[t.Name] = append(el.Children[t.Name], data)
			return nil
		}
		return nil
	}

	switch cd.effectiveKind() {
	case ChildTextMap:
		lang := attrValue(t, xml.Name{Space: ns.XML, Local: "lang"})
		data, err := decodeCharData(r, t)
		if err != nil {
			return err
		}
		m := el.TextMaps[t.Name]
		if m == nil {
			m = make(LangMap)
			el.TextMaps[t.Name] = m
		}
		m[lang] = data
		return nil
	case ChildValueMap:
		key := attrValue(t, cd.KeyAttr)
		data, err := decodeCharData(r, t)
		if err != nil {
			return err
		}
		m := el.ValueMaps[t.Name]
		if m == nil {
			m = make(map[string][]string)
			el.ValueMaps[t.Name] = m
		}
		m[key] = append(m[key], data)
		return nil
	case ChildFlag:
		el.Flags[t.Name] = true
		return xmlstream.Skip(r)
	case ChildTag:
		el.Tags[start.Name] = t.Name.Local
		return xmlstream.Skip(r)
	case Collector:
		var nested Element
		var err error
		if cd.Elem != nil {
			nested, err = Decode(r, t, *cd.Elem)
		} else {
			var data string
			data, err = decodeCharData(r, t)
			nested = newElement(t.Name)
			for _, a := range t.Attr {
				nested.Attrs[a.Name] = a.Value
			}
			if data != "" {
				nested.Children[t.Name] = []string{data}
			}
		}
		if err != nil {
			return err
		}
		el.Collected[t.Name] = append(el.Collected[t.Name], nested)
		return nil
	case ChildList:
		data, err := decodeCharData(r, t)
		if err != nil {
			return err
		}
		el.Children[t.Name] = append(el.Children[t.Name], data)
		if cd.Type != nil {
			v, err := cd.Type.Parse(data)
			if err != nil {
				return fmt.Errorf("xso: child %s: %w", t.Name.Local, err)
			}
			el.TypedChildren[t.Name] = append(el.TypedChildren[t.Name], v)
		}
		return nil
	default: // ChildText
		if _, seen := el.Children[t.Name]; seen {
			return xmlstream.Skip(r)
		}
		data, err := decodeCharData(r, t)
		if err != nil {
			return err
		}
		el.Children[t.Name] = []string{data}
		if cd.Type != nil {
			v, err := cd.Type.Parse(data)
			if err != nil {
				return fmt.Errorf("xso: child %s: %w", t.Name.Local, err)
			}
			el.TypedChildren[t.Name] = []interface{}{v}
		}
		return nil
	}
}

func attrValue(start xml.StartElement, name xml.Name) string {
	for _, a := range start.Attr {
		if a.Name == name || (name.Space == "" && a.Name.Local == name.Local) {
			return a.Value
		}
	}
	return ""
}

// decodeCharData reads and discards tokens until the matching end element
// for start, concatenating any character data seen along the way.
func decodeCharData(r xml.TokenReader, start xml.StartElement) (string, error) {
	var data string
	depth := 1
	for depth > 0 {
		tok, err := r.Token()
		if err != nil {
			return data, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			data += string(t)
		}
	}
	return data, nil
}
