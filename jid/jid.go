// Copyright 2014 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package jid

import (
	"bytes"
	"encoding/xml"
	"errors"
	"net"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
	"golang.org/x/text/secure/precis"
)

// JID represents an XMPP address (Jabber ID) comprising a localpart,
// domainpart, and resourcepart, all of which are optional except the
// domainpart. JID is a value type: the zero value is not a valid JID, and
// JIDs should be compared with Equal, never with ==, because two
// JIDs that are canonically equal may still differ in their original,
// pre-canonicalization spelling if constructed by hand instead of through
// Parse or New.
type JID struct {
	localpart    string
	domainpart   string
	resourcepart string
}

// Parse constructs a new JID from the given string representation.
func Parse(s string) (JID, error) {
	localpart, domainpart, resourcepart, err := SplitString(s)
	if err != nil {
		return JID{}, err
	}
	return New(localpart, domainpart, resourcepart)
}

// MustParse is like Parse but panics if the JID cannot be parsed.
// It simplifies safe initialization of JIDs from known-good constant
// strings.
func MustParse(s string) JID {
	j, err := Parse(s)
	if err != nil {
		if strconv.CanBackquote(s) {
			s = "`" + s + "`"
		} else {
			s = strconv.Quote(s)
		}
		panic(`jid: Parse(` + s + `): ` + err.Error())
	}
	return j
}

// New constructs a new JID from the given localpart, domainpart, and
// resourcepart, canonicalizing each part along the way.
func New(localpart, domainpart, resourcepart string) (JID, error) {
	// Ensure that parts are valid UTF-8 (and short circuit the rest of the
	// process if they're not). We'll check the domainpart after performing
	// the IDNA ToUnicode operation.
	if !utf8.ValidString(localpart) || !utf8.ValidString(resourcepart) {
		return JID{}, errors.New("jid: contains invalid UTF-8")
	}

	// RFC 7622 §3.2.1. Preparation: convert A-labels to U-labels before the
	// domainpart is used in any slot.
	domainpart, err := idna.ToUnicode(domainpart)
	if err != nil {
		return JID{}, err
	}
	if !utf8.ValidString(domainpart) {
		return JID{}, errors.New("jid: domainpart contains invalid UTF-8")
	}
	// Case-map the domainpart so that JIDs differing only in domain case compare
	// equal.
	domainpart = strings.ToLower(domainpart)

	if localpart != "" {
		localpart, err = precis.UsernameCaseMapped.String(localpart)
		if err != nil {
			return JID{}, err
		}
	}
	if resourcepart != "" {
		resourcepart, err = precis.OpaqueString.String(resourcepart)
		if err != nil {
			return JID{}, err
		}
	}

	if err := commonChecks(localpart, domainpart, resourcepart); err != nil {
		return JID{}, err
	}

	return JID{
		localpart:    localpart,
		domainpart:   domainpart,
		resourcepart: resourcepart,
	}, nil
}

// WithResource returns a copy of j with a new resourcepart. Passing an empty
// string returns the bare JID.
func (j JID) WithResource(resourcepart string) (JID, error) {
	if resourcepart == "" {
		return j.Bare(), nil
	}
	if !utf8.ValidString(resourcepart) {
		return JID{}, errors.New("jid: contains invalid UTF-8")
	}
	resourcepart, err := precis.OpaqueString.String(resourcepart)
	if err != nil {
		return JID{}, err
	}
	if err := commonChecks(j.localpart, j.domainpart, resourcepart); err != nil {
		return JID{}, err
	}
	return JID{localpart: j.localpart, domainpart: j.domainpart, resourcepart: resourcepart}, nil
}

// Bare returns a copy of the JID without a resourcepart. This is sometimes
// called a "bare JID".
func (j JID) Bare() JID {
	return JID{localpart: j.localpart, domainpart: j.domainpart}
}

// Domain returns a copy of the JID without a resourcepart or localpart.
func (j JID) Domain() JID {
	return JID{domainpart: j.domainpart}
}

// Localpart gets the localpart of a JID (e.g. "username").
func (j JID) Localpart() string { return j.localpart }

// Domainpart gets the domainpart of a JID (e.g. "example.net").
func (j JID) Domainpart() string { return j.domainpart }

// Resourcepart gets the resourcepart of a JID.
func (j JID) Resourcepart() string { return j.resourcepart }

// IsZero reports whether j is the zero value (no domainpart, hence no valid
// JID at all).
func (j JID) IsZero() bool { return j.domainpart == "" && j.localpart == "" && j.resourcepart == "" }

// IsBare reports whether j has no resourcepart.
func (j JID) IsBare() bool { return j.resourcepart == "" }

// IsFull reports whether j has a resourcepart.
func (j JID) IsFull() bool { return j.resourcepart != "" }

// Network satisfies the net.Addr interface by returning the name of the
// network ("xmpp").
func (JID) Network() string { return "xmpp" }

// String converts a JID to its string representation.
func (j JID) String() string {
	var b strings.Builder
	if j.localpart != "" {
		b.WriteString(j.localpart)
		b.WriteByte('@')
	}
	b.WriteString(j.domainpart)
	if j.resourcepart != "" {
		b.WriteByte('/')
		b.WriteString(j.resourcepart)
	}
	return b.String()
}

// Equal performs a canonical-form comparison with the given JID.
func (j JID) Equal(j2 JID) bool {
	return j.localpart == j2.localpart &&
		j.domainpart == j2.domainpart &&
		j.resourcepart == j2.resourcepart
}

// EqualBare reports whether the bare forms of j and j2 are equal.
func (j JID) EqualBare(j2 JID) bool {
	return j.Bare().Equal(j2.Bare())
}

// MarshalXML satisfies the xml.Marshaler interface and marshals the JID as
// XML chardata.
func (j JID) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.EncodeToken(xml.CharData(j.String())); err != nil {
		return err
	}
	if err := e.EncodeToken(start.End()); err != nil {
		return err
	}
	return e.Flush()
}

// UnmarshalXML satisfies the xml.Unmarshaler interface and unmarshals the JID
// from the element's chardata.
func (j *JID) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	data := struct {
		CharData string `xml:",chardata"`
	}{}
	if err := d.DecodeElement(&data, &start); err != nil {
		return err
	}
	if data.CharData == "" {
		*j = JID{}
		return nil
	}
	parsed, err := Parse(data.CharData)
	if err != nil {
		return err
	}
	*j = parsed
	return nil
}

// MarshalXMLAttr satisfies the xml.MarshalerAttr interface and marshals the
// JID as an XML attribute.
func (j JID) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	if j.IsZero() {
		return xml.Attr{}, nil
	}
	return xml.Attr{Name: name, Value: j.String()}, nil
}

// UnmarshalXMLAttr satisfies the xml.UnmarshalerAttr interface and unmarshals
// an XML attribute into a valid JID (or returns an error).
func (j *JID) UnmarshalXMLAttr(attr xml.Attr) error {
	if attr.Value == "" {
		*j = JID{}
		return nil
	}
	parsed, err := Parse(attr.Value)
	if err != nil {
		return err
	}
	*j = parsed
	return nil
}

// SplitString splits out the localpart, domainpart, and resourcepart from a
// string representation of a JID. The parts are not guaranteed to be valid,
// and each part must be 1023 bytes or less.
func SplitString(s string) (localpart, domainpart, resourcepart string, err error) {
	// RFC 7622 §3.1. Implementation Note: match the separator characters
	// '@' and '/' before applying any transformation algorithm that might
	// decompose certain Unicode code points to the separator characters.
	sep := strings.Index(s, "/")
	if sep == -1 {
		resourcepart = ""
	} else {
		if sep == len(s)-1 {
			return "", "", "", errors.New("jid: resourcepart must be larger than 0 bytes")
		}
		resourcepart = s[sep+1:]
		s = s[:sep]
	}

	sep = strings.Index(s, "@")
	switch sep {
	case -1:
		localpart = ""
		domainpart = s
	case 0:
		return "", "", "", errors.New("jid: localpart must be larger than 0 bytes")
	default:
		domainpart = s[sep+1:]
		localpart = s[:sep]
	}

	// Trailing dots on domainparts are ignored for routing, comparison, and
	// IRI construction purposes, so strip them before canonicalization.
	domainpart = strings.TrimSuffix(domainpart, ".")

	return localpart, domainpart, resourcepart, nil
}

func checkIP6String(domainpart string) error {
	if l := len(domainpart); l > 2 && strings.HasPrefix(domainpart, "[") && strings.HasSuffix(domainpart, "]") {
		if ip := net.ParseIP(domainpart[1 : l-1]); ip == nil || ip.To4() != nil {
			return errors.New("jid: domainpart is not a valid IPv6 address")
		}
	}
	return nil
}

func commonChecks(localpart, domainpart, resourcepart string) error {
	if l := len(localpart); l > 1023 {
		return errors.New("jid: localpart must be smaller than 1024 bytes")
	}
	// RFC 7622 §3.3.1 forbids these characters in localparts even though
	// the PRECIS UsernameCaseMapped profile allows them.
	if strings.ContainsAny(localpart, `"&'/:<>@`) {
		return errors.New("jid: localpart contains forbidden characters")
	}
	if l := len(resourcepart); l > 1023 {
		return errors.New("jid: resourcepart must be smaller than 1024 bytes")
	}
	if l := len(domainpart); l < 1 || l > 1023 {
		return errors.New("jid: domainpart must be between 1 and 1023 bytes")
	}
	if bytes.ContainsRune([]byte(domainpart), 0) {
		return errors.New("jid: domainpart contains a null byte")
	}
	return checkIP6String(domainpart)
}
