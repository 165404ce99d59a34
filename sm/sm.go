// Copyright 2024 The Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package sm

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"mellium.im/xmlstream"
	"go.stanzaclient.dev/xmpp"
	"go.stanzaclient.dev/xmpp/stream"
)

// ErrNotResumable is returned by Resume when the State has no resumption ID,
// either because stream management was never enabled or the server did not
// grant resumption.
var ErrNotResumable = errors.New("sm: session is not resumable")

// ErrResumeFailed is returned by Resume when the server rejects the
// resumption attempt with a <failed/> element.
var ErrResumeFailed = errors.New("sm: stream resumption failed")

const (
	// DefaultSoftTimeout is how long a State waits for stream traffic before
	// sending an unsolicited ack request to check that the connection is
	// still alive.
	DefaultSoftTimeout = 30 * time.Second

	// DefaultHardTimeout is how long a State waits for an ack response to a
	// liveness request before considering the connection dead.
	DefaultHardTimeout = 15 * time.Second
)

type unackedStanza struct {
	seq uint32
	xml []byte
	tok *xmpp.Stanza
}

// State is a stream management session: the outbound unacked-stanza queue,
// the inbound/outbound stanza counters, and the resumption metadata handed
// back by the server in an Enabled response. The zero value is unusable;
// construct one with NewState.
type State struct {
	mu sync.Mutex

	enabled   bool
	resumable bool
	id        string
	location  string
	max       uint32

	outbound uint32
	acked    uint32
	inbound  uint32

	unacked []unackedStanza

	ackSignal chan struct{}

	// SoftTimeout and HardTimeout control the liveness timers started by
	// RunLiveness. They default to DefaultSoftTimeout and DefaultHardTimeout.
	SoftTimeout time.Duration
	HardTimeout time.Duration
}

// NewState returns a State with the default liveness timeouts.
func NewState() *State {
	return &State{
		ackSignal:   make(chan struct{}, 1),
		SoftTimeout: DefaultSoftTimeout,
		HardTimeout: DefaultHardTimeout,
	}
}

// Enabled reports whether the server accepted stream management on the
// current stream.
func (st *State) Enabled() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.enabled
}

// ResumptionID returns the ID a resumed stream should quote back to the
// server, and whether the server offered resumption at all.
func (st *State) ResumptionID() (string, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.id, st.resumable
}

// Location is the alternate connection endpoint (if any) the server
// suggested we use for stream resumption.
func (st *State) Location() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.location
}

// Pending reports the number of outbound stanzas still waiting to be
// acknowledged by the peer.
func (st *State) Pending() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.unacked)
}

func (st *State) applyEnabled(e Enabled) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.enabled = true
	st.resumable = e.Resume
	st.id = e.ID
	st.location = e.Location
	st.max = e.Max
	st.outbound, st.inbound, st.acked = 0, 0, 0
	st.unacked = nil
}

func (st *State) reset() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.enabled = false
	st.resumable = false
}

// enqueue records a fully-serialized outbound stanza, and the token tracking
// its send, in the unacked queue. It is a no-op if stream management has not
// been enabled. tok may be nil if the write was not made through a tracked
// Session send method.
func (st *State) enqueue(b []byte, tok *xmpp.Stanza) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.enabled {
		return
	}
	st.outbound++
	cp := make([]byte, len(b))
	copy(cp, b)
	st.unacked = append(st.unacked, unackedStanza{seq: st.outbound, xml: cp, tok: tok})
}

// Acknowledge drops every outbound stanza with a sequence number at or below
// h from the unacked queue, moving its token to StanzaAcked, and records h
// as the highest sequence number the peer has confirmed receiving.
func (st *State) Acknowledge(h uint32) {
	st.mu.Lock()
	i := 0
	for ; i < len(st.unacked); i++ {
		if st.unacked[i].seq > h {
			break
		}
		if st.unacked[i].tok != nil {
			st.unacked[i].tok.SetState(xmpp.StanzaAcked, nil)
		}
	}
	st.unacked = st.unacked[i:]
	st.acked = h
	st.mu.Unlock()

	select {
	case st.ackSignal <- struct{}{}:
	default:
	}
}

// dropUnacked moves every stanza still in the unacked queue to
// StanzaDropped and empties the queue. It is called when a resumption
// attempt fails, since the server has explicitly told us it does not have
// the stream state needed to ever acknowledge them.
func (st *State) dropUnacked() {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, u := range st.unacked {
		if u.tok != nil {
			u.tok.SetState(xmpp.StanzaDropped, nil)
		}
	}
	st.unacked = nil
}

// markUnackedDisconnected moves every stanza still in the unacked queue to
// StanzaDisconnected. Unlike dropUnacked this is not necessarily final: a
// later successful resumption can still move these tokens on to
// StanzaAcked, and a failed one moves them on to StanzaDropped.
func (st *State) markUnackedDisconnected() {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, u := range st.unacked {
		if u.tok != nil {
			u.tok.SetState(xmpp.StanzaDisconnected, nil)
		}
	}
}

// Unacked returns a token reader for each stanza still waiting on an
// acknowledgement, in the order they were originally sent, so that a client
// supervisor can replay them after a successful Resume.
func (st *State) Unacked() []xml.TokenReader {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]xml.TokenReader, 0, len(st.unacked))
	for _, u := range st.unacked {
		out = append(out, xml.NewDecoder(bytes.NewReader(u.xml)))
	}
	return out
}

func (st *State) markReceived() uint32 {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.inbound++
	return st.inbound
}

// outboundTracker wraps an outbound token reader (the fully-serialized
// stanza passed to Session.SendElement) so that a copy can be captured into
// the unacked queue, alongside the send token that reports its
// acknowledgement, exactly as it was written to the wire.
type outboundTracker struct {
	st  *State
	tok *xmpp.Stanza
	r   xml.TokenReader
	buf bytes.Buffer
	enc *xml.Encoder
}

// Track wraps r so that State records a copy of the stanza it reads through,
// and the token that tracks its send, in its unacked queue once the stanza
// has been fully read (and therefore fully written by whatever is copying
// from r). It satisfies the signature expected by Session.SetTracker.
func (st *State) Track(r xml.TokenReader, tok *xmpp.Stanza) xml.TokenReader {
	t := &outboundTracker{st: st, tok: tok, r: r}
	t.enc = xml.NewEncoder(&t.buf)
	return t
}

func (t *outboundTracker) Token() (xml.Token, error) {
	tok, err := t.r.Token()
	if err != nil {
		if err == io.EOF {
			if flushErr := t.enc.Flush(); flushErr == nil {
				t.st.enqueue(t.buf.Bytes(), t.tok)
			}
		}
		return tok, err
	}
	_ = t.enc.EncodeToken(tok)
	return tok, nil
}

// Handler wraps inner so that stream management's own <r/> and <a/> elements
// are handled transparently (an incoming <r/> is answered with the current
// inbound count, an incoming <a/> updates the unacked queue) and every other
// top-level element increments the inbound stanza counter before being
// passed through to inner.
func (st *State) Handler(inner xmpp.Handler) xmpp.Handler {
	return xmpp.HandlerFunc(func(t xmlstream.TokenReadEncoder, start *xml.StartElement) error {
		if start.Name.Space == NS {
			switch start.Name.Local {
			case "r":
				if err := xmlstream.Skip(t); err != nil {
					return err
				}
				st.mu.Lock()
				h := st.inbound
				st.mu.Unlock()
				if _, err := xmlstream.Copy(t, Ack{H: h}.TokenReader()); err != nil {
					return err
				}
				return t.Flush()
			case "a":
				var ack Ack
				if err := xml.NewTokenDecoder(t).DecodeElement(&ack, start); err != nil {
					return err
				}
				st.Acknowledge(ack.H)
				return nil
			}
		}
		st.markReceived()
		if inner == nil {
			return xmlstream.Skip(t)
		}
		return inner.HandleXMPP(t, start)
	})
}

func marshalToString(m xmlstream.WriterTo) (string, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	if _, err := m.WriteXML(enc); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// StreamFeature offers XEP-0198 stream management as a stream feature. It
// requests resumption from the server (resume=true) whenever st has not
// already been enabled; the mask it returns sets xmpp.SM once the server
// accepts.
func StreamFeature(st *State) xmpp.StreamFeature {
	return xmpp.StreamFeature{
		Name:       xml.Name{Space: NS, Local: "sm"},
		Necessary:  xmpp.Bind,
		Prohibited: xmpp.SM,
		List: func(ctx context.Context, e xmlstream.TokenWriter, start xml.StartElement) (bool, error) {
			if err := e.EncodeToken(start); err != nil {
				return false, err
			}
			return false, e.EncodeToken(start.End())
		},
		Parse: func(ctx context.Context, r xml.TokenReader, start *xml.StartElement) (bool, interface{}, error) {
			return false, nil, xmlstream.Skip(r)
		},
		Negotiate: func(ctx context.Context, session *xmpp.Session, data interface{}) (mask xmpp.SessionState, rw io.ReadWriter, err error) {
			payload, err := marshalToString(Enable{Resume: true})
			if err != nil {
				return mask, nil, err
			}
			if _, err = fmt.Fprintf(session, "%s", payload); err != nil {
				return mask, nil, err
			}
			tok, err := session.Token()
			if err != nil {
				return mask, nil, err
			}
			start, ok := tok.(xml.StartElement)
			if !ok {
				return mask, nil, stream.BadFormat
			}
			switch start.Name {
			case xml.Name{Space: NS, Local: "enabled"}:
				var enabled Enabled
				if err = xml.NewTokenDecoder(session).DecodeElement(&enabled, &start); err != nil {
					return mask, nil, err
				}
				st.applyEnabled(enabled)
				session.SetTracker(st.Track)
				return xmpp.SM, nil, nil
			case xml.Name{Space: NS, Local: "failed"}:
				var failed Failed
				_ = xml.NewTokenDecoder(session).DecodeElement(&failed, &start)
				return 0, nil, nil
			default:
				return mask, nil, stream.BadFormat
			}
		},
	}
}

// ResumeStream attempts to resume the stream management session described
// by st on a freshly-opened (but not yet feature-negotiated) session. It
// should be called by a client supervisor immediately after opening a new
// stream to a server that previously granted resumption, before falling
// back to full authentication.
func ResumeStream(session *xmpp.Session, st *State) error {
	id, ok := st.ResumptionID()
	if !ok {
		return ErrNotResumable
	}
	st.mu.Lock()
	h := st.inbound
	st.mu.Unlock()

	payload, err := marshalToString(Resume{H: h, PrevID: id})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(session, "%s", payload); err != nil {
		return err
	}
	tok, err := session.Token()
	if err != nil {
		return err
	}
	start, ok2 := tok.(xml.StartElement)
	if !ok2 {
		return stream.BadFormat
	}
	switch start.Name {
	case xml.Name{Space: NS, Local: "resumed"}:
		var resumed Resumed
		if err := xml.NewTokenDecoder(session).DecodeElement(&resumed, &start); err != nil {
			return err
		}
		st.Acknowledge(resumed.H)
		session.SetTracker(st.Track)
		return nil
	case xml.Name{Space: NS, Local: "failed"}:
		var failed Failed
		_ = xml.NewTokenDecoder(session).DecodeElement(&failed, &start)
		st.dropUnacked()
		st.reset()
		return ErrResumeFailed
	default:
		return stream.BadFormat
	}
}

// RunLiveness starts the soft/hard liveness timers described by st's
// SoftTimeout and HardTimeout: after SoftTimeout elapses with no
// acknowledgement, a <r/> is sent; if no <a/> arrives within HardTimeout of
// that, dead is called. It returns a function that stops the timers. w is
// normally the *xmpp.Session itself.
func (st *State) RunLiveness(ctx context.Context, w io.Writer, dead func()) (stop func()) {
	done := make(chan struct{})
	go func() {
		soft := time.NewTimer(st.SoftTimeout)
		defer soft.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-st.ackSignal:
				if !soft.Stop() {
					<-soft.C
				}
				soft.Reset(st.SoftTimeout)
			case <-soft.C:
				if _, err := fmt.Fprint(w, `<r xmlns='`+NS+`'/>`); err != nil {
					st.markUnackedDisconnected()
					dead()
					return
				}
				hard := time.NewTimer(st.HardTimeout)
				select {
				case <-done:
					hard.Stop()
					return
				case <-ctx.Done():
					hard.Stop()
					return
				case <-st.ackSignal:
					hard.Stop()
					soft.Reset(st.SoftTimeout)
				case <-hard.C:
					st.markUnackedDisconnected()
					dead()
					return
				}
			}
		}
	}()
	return func() { close(done) }
}
