// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpp

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sync"

	"mellium.im/xmlstream"
	"go.stanzaclient.dev/xmpp/internal/attr"
	"go.stanzaclient.dev/xmpp/internal/marshal"
	"go.stanzaclient.dev/xmpp/jid"
)

// ErrNotStart is returned when the first token read from a stream that is
// about to be sent is not a start element.
var ErrNotStart = errors.New("xmpp: expected a start element")

// Send transmits the first element read from r, along with the rest of the
// stream, and does not wait for a response. The returned token reports how
// the stanza's send eventually resolves; see StanzaState.
//
// Send is safe for concurrent use by multiple goroutines.
func (s *Session) Send(ctx context.Context, r xml.TokenReader) (*Stanza, error) {
	first, err := r.Token()
	if err != nil {
		return nil, err
	}
	start, ok := first.(xml.StartElement)
	if !ok {
		return nil, ErrNotStart
	}
	return s.SendElement(ctx, xmlstream.Inner(r), start)
}

// SendElement transmits start, then payload, then the corresponding end
// element, flushing the stream when finished. The returned token starts in
// StanzaActive and, once the write finishes, moves to StanzaSent (on a
// stream-management-enabled session, where it awaits an eventual
// StanzaAcked) or StanzaSentWithoutSM (a terminal state, on any other
// session); a write or context error instead moves it to StanzaFailed or
// StanzaAborted.
//
// If start describes an iq, message, or presence stanza with no namespace,
// the session's default stanza namespace is filled in. If such a stanza also
// has no id attribute, a random one is generated and assigned.
//
// SendElement is safe for concurrent use by multiple goroutines.
func (s *Session) SendElement(ctx context.Context, payload xml.TokenReader, start xml.StartElement) (*Stanza, error) {
	tok := NewStanza()
	select {
	case <-ctx.Done():
		tok.SetState(StanzaAborted, ctx.Err())
		return tok, ctx.Err()
	default:
	}
	start = s.prepareStanza(start)
	full := s.trackStanza(xmlstream.Wrap(payload, start), tok)
	if _, err := xmlstream.Copy(s, full); err != nil {
		tok.SetState(StanzaFailed, err)
		return tok, err
	}
	if err := s.Flush(); err != nil {
		tok.SetState(StanzaFailed, err)
		return tok, err
	}
	tok.SetState(StanzaDeliveredToServer, nil)
	if s.State()&SM == SM {
		tok.SetState(StanzaSent, nil)
	} else {
		tok.SetState(StanzaSentWithoutSM, nil)
	}
	return tok, nil
}

// prepareStanza fills in a default namespace and a random id for stanzas
// that are missing them. Non-stanza elements are returned unmodified.
func (s *Session) prepareStanza(start xml.StartElement) xml.StartElement {
	if !isIQEmptySpace(start.Name) && !isMessageEmptySpace(start.Name) && !isPresenceEmptySpace(start.Name) {
		return start
	}
	if start.Name.Space == "" {
		if s.State()&Received == Received {
			start.Name.Space = NSServer
		} else {
			start.Name.Space = NSClient
		}
	}
	idIdx, _, id, _ := getIDTyp(start.Attr)
	if id != "" {
		return start
	}
	newAttr := xml.Attr{Name: xml.Name{Local: "id"}, Value: attr.RandomID()}
	if idIdx == -1 {
		start.Attr = append(start.Attr, newAttr)
	} else {
		start.Attr[idIdx] = newAttr
	}
	return start
}

// Encode marshals v and transmits it over the session. For more information
// about the returned token see SendElement.
//
// Encode is safe for concurrent use by multiple goroutines.
func (s *Session) Encode(ctx context.Context, v interface{}) (*Stanza, error) {
	r, err := marshal.TokenReader(v)
	if err != nil {
		return nil, err
	}
	return s.Send(ctx, r)
}

// EncodeElement marshals payload and transmits it wrapped in start. For more
// information about the returned token see SendElement.
//
// EncodeElement is safe for concurrent use by multiple goroutines.
func (s *Session) EncodeElement(ctx context.Context, payload interface{}, start xml.StartElement) (*Stanza, error) {
	r, err := marshal.TokenReader(payload)
	if err != nil {
		return nil, err
	}
	return s.SendElement(ctx, r, start)
}

func errNotStartElement(tok xml.Token) error {
	return fmt.Errorf("xmpp: expected a start element, got %T", tok)
}

func isIQEmptySpace(name xml.Name) bool {
	return name.Local == "iq" && (name.Space == "" || name.Space == NSClient || name.Space == NSServer)
}

// getIDTyp scans a stanza's attributes for its "id" and "type" attributes,
// returning the index of the id attribute (or -1 if none is present) along
// with the values of both attributes.
func getIDTyp(attrs []xml.Attr) (idIdx, typIdx int, id, typ string) {
	idIdx, typIdx = -1, -1
	for i, a := range attrs {
		switch a.Name.Local {
		case "id":
			idIdx = i
			id = a.Value
		case "type":
			typIdx = i
			typ = a.Value
		}
	}
	return idIdx, typIdx, id, typ
}

// pendingKey identifies a correlated request/response pair. Keying on the id
// alone is not sufficient: two concurrently pending requests addressed to
// different peers can draw the same random id, and without the peer address
// in the key a response from one peer could be delivered to the waiter for
// the other.
type pendingKey struct {
	id   string
	peer jid.JID
}

// peerAddr parses the value of the attribute named local (typically "to" on
// an outbound stanza or "from" on an inbound one) as a JID, returning the
// zero JID if the attribute is absent or malformed.
func peerAddr(attrs []xml.Attr, local string) jid.JID {
	for _, a := range attrs {
		if a.Name.Local == local {
			j, err := jid.Parse(a.Value)
			if err == nil {
				return j
			}
			break
		}
	}
	return jid.JID{}
}

// pendingID reports whether start is a stanza that could be a correlated
// response (an iq, message, or presence with an id attribute) and returns
// the key under which its waiter would be registered, using the stanza's
// from address as the peer half of the key.
func pendingID(start *xml.StartElement) (pendingKey, bool) {
	if !isIQEmptySpace(start.Name) && !isMessageEmptySpace(start.Name) && !isPresenceEmptySpace(start.Name) {
		return pendingKey{}, false
	}
	_, _, id, _ := getIDTyp(start.Attr)
	if id == "" {
		return pendingKey{}, false
	}
	return pendingKey{id: id, peer: peerAddr(start.Attr, "from")}, true
}

// streamElement adapts a Session and a token reader scoped to the current
// top-level stream element into the full xmlstream.TokenReadEncoder method
// set required by Handler.
type streamElement struct {
	xmlstream.TokenReader
	s *Session
}

func (e *streamElement) EncodeToken(t xml.Token) error { return e.s.EncodeToken(t) }
func (e *streamElement) Flush() error                  { return e.s.Flush() }

func (e *streamElement) Decode(v interface{}) error {
	tok, err := e.Token()
	if err != nil {
		return err
	}
	start, ok := tok.(xml.StartElement)
	if !ok {
		return errNotStartElement(tok)
	}
	return e.DecodeElement(v, &start)
}

func (e *streamElement) DecodeElement(v interface{}, start *xml.StartElement) error {
	return xml.NewTokenDecoder(e).DecodeElement(v, start)
}

func (e *streamElement) Encode(v interface{}) error {
	r, err := marshal.TokenReader(v)
	if err != nil {
		return err
	}
	_, err = xmlstream.Copy(e, r)
	return err
}

func (e *streamElement) EncodeElement(v interface{}, start xml.StartElement) error {
	r, err := marshal.TokenReader(v)
	if err != nil {
		return err
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if _, err := xmlstream.Copy(e, r); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

// waiter correlates an outbound stanza carrying an id with the inbound
// response that will eventually carry the same id.
type waiter struct {
	resp    chan *xml.StartElement
	release chan struct{}
	once    sync.Once
}

func (w *waiter) deliver(start *xml.StartElement) {
	w.resp <- start
}

// unblock signals the input-handling goroutine that the caller is done
// reading the response and normal stanza dispatch may resume.
func (w *waiter) unblock() {
	w.once.Do(func() {
		close(w.release)
	})
}

// sendResp sends the stanza described by payload and start, registers a
// waiter under the id/peer key, and blocks until either a matching response
// arrives on the input stream or ctx is canceled. It returns both the send
// token for the outbound request and, once one arrives, the response reader.
//
// The peer is the JID in start's to attribute (the zero JID if absent); a
// response is only delivered to this waiter if it carries a matching from
// address, so two concurrently pending requests to different peers cannot
// cross-deliver even if they happen to draw the same random id.
//
// While the returned xmlstream.TokenReadCloser has not been closed, the
// session's input-handling goroutine is blocked so that no other inbound
// stanza is dispatched out of order; see handleInputStream.
func (s *Session) sendResp(ctx context.Context, id string, payload xml.TokenReader, start xml.StartElement) (*Stanza, xmlstream.TokenReadCloser, error) {
	key := pendingKey{id: id, peer: peerAddr(start.Attr, "to")}
	w := &waiter{
		resp:    make(chan *xml.StartElement, 1),
		release: make(chan struct{}),
	}
	s.pending.Lock()
	s.pending.m[key] = w
	s.pending.Unlock()

	tok, err := s.SendElement(ctx, payload, start)
	if err != nil {
		s.pending.Lock()
		delete(s.pending.m, key)
		s.pending.Unlock()
		return tok, nil, err
	}

	select {
	case <-ctx.Done():
		s.pending.Lock()
		delete(s.pending.m, key)
		s.pending.Unlock()
		return tok, nil, ctx.Err()
	case respStart := <-w.resp:
		return tok, &responseReader{s: s, w: w, start: respStart}, nil
	}
}

// responseReader streams the tokens of a correlated response, then unblocks
// the input-handling goroutine when it is closed.
type responseReader struct {
	s       *Session
	w       *waiter
	start   *xml.StartElement
	sent    bool
	depth   int
	closed  bool
	discard bool
}

// Token returns the tokens of the matched response element, ending with its
// matching end element.
func (r *responseReader) Token() (xml.Token, error) {
	if r.discard {
		return nil, io.EOF
	}
	if !r.sent {
		r.sent = true
		r.depth = 1
		return *r.start, nil
	}
	tok, err := r.s.Token()
	if err != nil {
		return nil, err
	}
	switch tok.(type) {
	case xml.StartElement:
		r.depth++
	case xml.EndElement:
		r.depth--
		if r.depth == 0 {
			r.discard = true
		}
	}
	return tok, nil
}

// Close discards any unread tokens of the response and releases the
// input-handling goroutine.
func (r *responseReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	for !r.discard {
		if _, err := r.Token(); err != nil {
			break
		}
	}
	r.w.unblock()
	return nil
}
