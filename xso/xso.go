// Copyright 2024 The Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package xso implements a small declarative schema layer on top of
// encoding/xml and mellium.im/xmlstream for decoding extension payloads
// whose exact shape is not known ahead of time: unrecognized attributes and
// child elements, XEP-style payload registries, reusable field validators,
// and the handful of recurring child-element shapes XMPP stanzas use over
// and over (a single optional child, a repeated list of children, a set of
// per-language texts, a value keyed by an attribute, a bare presence flag,
// and a grab-bag of anything left over).
//
// It does not replace the hand-written (Un)MarshalXML methods on the core
// stanza types in package stanza for their fixed attributes, which are a
// small, performance-sensitive set known entirely at compile time. It
// exists for the many XMPP extensions (service discovery features, ad-hoc
// command notes, MUC configuration forms, stream management
// acknowledgements) and stanza sub-elements (message bodies and subjects,
// presence status text) whose child elements come from a registry of
// payload classes, or a set of language variants, decided at runtime.
package xso

import "encoding/xml"

// Policy controls how a Descriptor handles an attribute or child element it
// was not told about ahead of time.
type Policy int

const (
	// Fail causes decoding to stop and return ErrUnknown.
	Fail Policy = iota

	// Drop silently discards the unknown attribute or child.
	Drop

	// Preserve keeps the unknown attribute or child so that it is
	// available on the decoded Element after decoding completes.
	Preserve
)

// String implements fmt.Stringer.
func (p Policy) String() string {
	switch p {
	case Fail:
		return "fail"
	case Drop:
		return "drop"
	case Preserve:
		return "preserve"
	default:
		return "policy(?)"
	}
}

// Kind selects the decoding and encoding strategy a ChildDescriptor uses.
// The names and behaviors mirror aioxmpp's xso descriptor classes
// (ChildText, ChildTextMap, ChildValueMap, ChildFlag, ChildTag, Collector).
type Kind int

const (
	// ChildText decodes the first matching child element's character data,
	// optionally coerced through Type. Multiple occurrences after the
	// first are skipped. This is the default zero value.
	ChildText Kind = iota

	// ChildList decodes every matching child element's character data, in
	// document order, optionally coerced through Type.
	ChildList

	// ChildTextMap decodes every matching child element into a LangMap,
	// keyed by the child's xml:lang attribute (or "" if absent). This is
	// how a stanza represents the same piece of text in multiple
	// languages, for example a message body or a presence status.
	ChildTextMap

	// ChildValueMap decodes every matching child element into a multimap
	// keyed by the attribute named by KeyAttr, preserving document order
	// within each key's slice of values.
	ChildValueMap

	// ChildFlag records whether the child element is present at all; its
	// content, if any, is discarded. Used for boolean markers such as a
	// bare <required/> element inside a data form field.
	ChildFlag

	// ChildTag treats the local name of the first encountered child
	// (drawn from Children) as the decoded value itself, discarding its
	// content. Used for elements whose child acts as an enum tag, such as
	// a stream management failure condition.
	ChildTag

	// Collector captures every child that does not match another
	// descriptor entry (regardless of UnknownChildPolicy) as a nested
	// Element, in document order, without interpreting it further.
	Collector
)

// LangMap maps an xml:lang value (the empty string for unmarked text) to
// the text found in that language, per RFC 6121's convention for the
// <body/>, <subject/>, and <status/> children of message and presence
// stanzas.
type LangMap map[string]string

// Get returns the text for lang, falling back to the "" (unmarked) entry,
// and reports whether either was present.
func (m LangMap) Get(lang string) (string, bool) {
	if v, ok := m[lang]; ok {
		return v, true
	}
	v, ok := m[""]
	return v, ok
}

// AttrDescriptor describes one expected attribute of an element. If Type is
// non-nil, the attribute's value is parsed with it and made available
// through Element.TypedAttrs in addition to the raw string in Element.Attrs.
type AttrDescriptor struct {
	Name      xml.Name
	Required  bool
	Validator Validator
	Type      Type
}

// ChildDescriptor describes one expected child element of an element and
// how it should be decoded, per Kind. Multi is a deprecated alias for
// Kind: ChildList; it is honored when Kind is left at its zero value for
// backward compatibility with descriptors written before Kind existed.
type ChildDescriptor struct {
	Name xml.Name
	Kind Kind

	// Multi is equivalent to setting Kind to ChildList. It exists so that
	// descriptors written against the original (kind-less) ChildDescriptor
	// keep working unmodified.
	Multi bool

	// Type coerces the decoded character data for ChildText and ChildList
	// kinds. Ignored by the other kinds.
	Type Type

	// KeyAttr names the attribute used as the map key for ChildValueMap.
	KeyAttr xml.Name

	// Elem, for Collector, describes how to decode each captured child.
	// A nil Elem captures children with only their own attributes and
	// character data, not their descendants.
	Elem *Descriptor
}

func (c ChildDescriptor) effectiveKind() Kind {
	if c.Kind == ChildText && c.Multi {
		return ChildList
	}
	return c.Kind
}

// Descriptor is a declarative schema for a single XML element: which
// attributes and children are expected, what to do with attributes and
// children that are not, and whether unknown children should be captured
// as raw token streams (Capturing) or merely counted and dropped/failed.
type Descriptor struct {
	Name xml.Name

	Attrs    []AttrDescriptor
	Children []ChildDescriptor

	UnknownAttrPolicy  Policy
	UnknownChildPolicy Policy

	// Capturing, when true and UnknownChildPolicy is Preserve, retains the
	// full token stream (start through matching end) of every unknown
	// child instead of only recording that it occurred.
	Capturing bool
}

func (d Descriptor) attr(name xml.Name) (AttrDescriptor, bool) {
	for _, a := range d.Attrs {
		if a.Name == name || (a.Name.Space == "" && a.Name.Local == name.Local) {
			return a, true
		}
	}
	return AttrDescriptor{}, false
}

func (d Descriptor) child(name xml.Name) (ChildDescriptor, bool) {
	for _, c := range d.Children {
		if c.Name == name {
			return c, true
		}
	}
	return ChildDescriptor{}, false
}

// ChildTextMapDescriptor returns a ChildDescriptor of Kind ChildTextMap for
// the child element name.
func ChildTextMapDescriptor(name xml.Name) ChildDescriptor {
	return ChildDescriptor{Name: name, Kind: ChildTextMap}
}
