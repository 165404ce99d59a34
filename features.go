// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause license that can be
// found in the LICENSE file.

package xmpp

import (
	"context"
	"encoding/xml"
	"errors"

	"mellium.im/xmlstream"
	"go.stanzaclient.dev/xmpp/internal/ns"
	"go.stanzaclient.dev/xmpp/stream"
	"io"
)

// errFeaturesOutOfOrder is returned when a required feature is advertised
// after another feature that must be negotiated first, or when the server
// advertises a features list this negotiator does not know how to satisfy.
var errFeaturesOutOfOrder = errors.New("xmpp: features advertised out of order")

// A StreamFeature represents a feature that may be selected during stream
// negotiation. Features should be stateless and usable from multiple
// goroutines unless otherwise specified.
type StreamFeature struct {
	// The XML name of the feature in the <stream:features/> list. If a start
	// element with this name is seen while the connection is reading the
	// features list, it will trigger this StreamFeature's Parse function as a
	// callback.
	Name xml.Name

	// Bits that are required before this feature is advertised. For instance,
	// if this feature should only be advertised after the user is
	// authenticated we might set this to Authn.
	Necessary SessionState

	// Bits that must be off for this feature to be advertised. For instance,
	// if this feature should only be advertised before the connection is
	// authenticated (eg. because the feature performs authentication itself),
	// we might set this to Authn.
	Prohibited SessionState

	// List is used to send the feature in a features list for server
	// connections.
	List func(ctx context.Context, e xmlstream.TokenWriter, start xml.StartElement) (req bool, err error)

	// Parse is used to parse the feature that begins with the given XML start
	// element (which will have a Name matching this feature's Name). It
	// returns whether the feature is required, and any data that will be
	// needed if the feature is selected for negotiation.
	Parse func(ctx context.Context, r xml.TokenReader, start *xml.StartElement) (req bool, data interface{}, err error)

	// Negotiate takes over the session temporarily while negotiating the
	// feature. The "mask" SessionState represents the state bits that should
	// be flipped after negotiation is complete. If a non-nil io.ReadWriter is
	// returned, the session's underlying transport is replaced with it and the
	// stream is restarted (eg. after STARTTLS or compression).
	Negotiate func(ctx context.Context, session *Session, data interface{}) (mask SessionState, rw io.ReadWriter, err error)
}

type sfData struct {
	req     bool
	data    interface{}
	feature StreamFeature
}

// negotiateFeatures reads a <stream:features/> list from s and negotiates
// the first supported required feature (or, if none are required, the first
// supported feature). It is grounded on the same required/prohibited bitmask
// scheme the teacher's feature negotiation loop used, adapted to operate
// against a *Session instead of a raw connection.
func negotiateFeatures(ctx context.Context, s *Session, features []StreamFeature) (mask SessionState, rw io.ReadWriter, err error) {
	byName := make(map[xml.Name]StreamFeature, len(features))
	for _, f := range features {
		byName[f.Name] = f
	}

	tok, err := s.in.d.Token()
	if err != nil {
		return mask, nil, err
	}
	start, ok := tok.(xml.StartElement)
	if !ok {
		return mask, nil, stream.BadFormat
	}
	switch {
	case start.Name.Local != "features":
		return mask, nil, stream.InvalidXML
	case start.Name.Space != ns.Stream:
		return mask, nil, stream.BadNamespacePrefix
	}

	cache := make(map[xml.Name]sfData)
	var order []xml.Name
	var total int
	var anyRequired bool

parsefeatures:
	for {
		t, err := s.in.d.Token()
		if err != nil {
			return mask, nil, err
		}
		switch tok := t.(type) {
		case xml.StartElement:
			total++
			feature, known := byName[tok.Name]
			if known && (s.state&feature.Necessary) == feature.Necessary && (s.state&feature.Prohibited) == 0 {
				req, data, err := feature.Parse(ctx, s.in.d, &tok)
				if err != nil {
					return mask, nil, err
				}
				if _, seen := cache[tok.Name]; !seen {
					order = append(order, tok.Name)
				}
				cache[tok.Name] = sfData{req: req, data: data, feature: feature}
				if req {
					anyRequired = true
				}
				continue parsefeatures
			}
			if sk, ok := s.in.d.(interface{ Skip() error }); ok {
				if err := sk.Skip(); err != nil {
					return mask, nil, err
				}
			}
		case xml.EndElement:
			if tok.Name.Local == "features" && tok.Name.Space == ns.Stream {
				break parsefeatures
			}
			return mask, nil, stream.InvalidXML
		default:
			return mask, nil, stream.RestrictedXML
		}
	}

	if total == 0 || len(cache) == 0 {
		if anyRequired {
			return mask, nil, errFeaturesOutOfOrder
		}
		return Ready, nil, nil
	}

	var chosen sfData
	for _, name := range order {
		v := cache[name]
		if !anyRequired || v.req {
			chosen = v
			break
		}
	}

	mask, rw, err = chosen.feature.Negotiate(ctx, s, chosen.data)
	if err != nil {
		return mask, nil, err
	}
	return mask, rw, nil
}
