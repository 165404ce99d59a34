// Copyright 2024 The Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xso

import (
	"encoding/xml"
	"sort"

	"mellium.im/xmlstream"
	"go.stanzaclient.dev/xmpp/internal/ns"
)

// EncodeChildText returns a token stream for a single child element named
// name whose only content is value's character data. It is the encoding
// counterpart of a ChildText-kind ChildDescriptor.
func EncodeChildText(name xml.Name, value string) xml.TokenReader {
	return xmlstream.Wrap(xmlstream.Token(xml.CharData(value)), xml.StartElement{Name: name})
}

// EncodeChildTextMap returns a token stream with one child element named
// name per entry of m, each carrying its key as an xml:lang attribute
// (omitted for the "" key) and its value as character data. Entries are
// emitted in a stable, sorted-by-language order so re-encoding the same map
// twice produces identical output.
func EncodeChildTextMap(name xml.Name, m LangMap) xml.TokenReader {
	if len(m) == 0 {
		return xmlstream.MultiReader()
	}
	langs := make([]string, 0, len(m))
	for lang := range m {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	readers := make([]xml.TokenReader, 0, len(langs))
	for _, lang := range langs {
		start := xml.StartElement{Name: name}
		if lang != "" {
			start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Space: ns.XML, Local: "lang"}, Value: lang})
		}
		readers = append(readers, xmlstream.Wrap(xmlstream.Token(xml.CharData(m[lang])), start))
	}
	return xmlstream.MultiReader(readers...)
}

// EncodeChildFlag returns a token stream for a bare, empty child element
// named name if present is true, or nothing at all otherwise. It is the
// encoding counterpart of a ChildFlag-kind ChildDescriptor.
func EncodeChildFlag(name xml.Name, present bool) xml.TokenReader {
	if !present {
		return xmlstream.MultiReader()
	}
	return xmlstream.Wrap(nil, xml.StartElement{Name: name})
}
