// Copyright 2024 The Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xmpp

import (
	"context"
	"sync"
)

// StanzaState describes how far a stanza handed to Send, SendElement,
// SendIQ, SendMessage, or SendPresence actually got: written to the wire,
// acknowledged by the peer, or lost somewhere along the way.
type StanzaState int

const (
	// StanzaActive is a token's initial state: the send has been accepted
	// but nothing has been written to the connection yet.
	StanzaActive StanzaState = iota

	// StanzaDeliveredToServer indicates the stanza's bytes were fully
	// written and flushed to the underlying connection. It is a transient
	// state on the way to StanzaSent or StanzaSentWithoutSM.
	StanzaDeliveredToServer

	// StanzaSentWithoutSM is a terminal state reached when a stanza is
	// delivered to the server on a stream that does not have stream
	// management enabled, so no further confirmation will ever arrive.
	StanzaSentWithoutSM

	// StanzaSent indicates the stanza was delivered to the server on a
	// stream-management-enabled stream and is now sitting in the unacked
	// queue, waiting for the peer to acknowledge it.
	StanzaSent

	// StanzaAcked is a terminal state: the peer has acknowledged receiving
	// the stanza.
	StanzaAcked

	// StanzaFailed is a terminal state reached when writing the stanza
	// returned an error, or the caller's context was canceled before the
	// stanza reached the wire.
	StanzaFailed

	// StanzaDropped is a terminal state reached when whatever was tracking
	// the stanza for acknowledgement gave up on it (for example, a failed
	// stream resumption whose unacked queue is discarded) before the peer
	// acknowledged it.
	StanzaDropped

	// StanzaDisconnected indicates the connection was lost while the
	// stanza was StanzaSent and still unacknowledged. It is not terminal:
	// a later successful resumption can still carry the token to
	// StanzaAcked, and an abandoned session can carry it to StanzaDropped.
	StanzaDisconnected

	// StanzaAborted is a terminal state reached when the caller's context
	// was already canceled before the stanza could be written at all.
	StanzaAborted
)

// String implements fmt.Stringer.
func (s StanzaState) String() string {
	switch s {
	case StanzaActive:
		return "active"
	case StanzaDeliveredToServer:
		return "delivered-to-server"
	case StanzaSentWithoutSM:
		return "sent-without-sm"
	case StanzaSent:
		return "sent"
	case StanzaAcked:
		return "acked"
	case StanzaFailed:
		return "failed"
	case StanzaDropped:
		return "dropped"
	case StanzaDisconnected:
		return "disconnected"
	case StanzaAborted:
		return "aborted"
	default:
		return "stanza(?)"
	}
}

// terminal reports whether s is a state a token can never transition out of.
// StanzaDisconnected is deliberately not terminal: a stream management
// resumption can still resolve it to StanzaAcked or StanzaDropped.
func (s StanzaState) terminal() bool {
	switch s {
	case StanzaAcked, StanzaSentWithoutSM, StanzaFailed, StanzaDropped, StanzaAborted:
		return true
	}
	return false
}

// Stanza is a handle returned by a Session's send methods that lets a caller
// observe a stanza's fate after the call that sent it has already returned.
// The zero value is not usable; tokens are created by NewStanza.
type Stanza struct {
	mu      sync.Mutex
	state   StanzaState
	err     error
	waiters []chan struct{}
}

// NewStanza returns a token in the StanzaActive state. It is exported so
// that code tracking stanzas on a session's behalf, such as a stream
// management layer, can create tokens and drive their state independent of
// the Session methods that hand them out.
func NewStanza() *Stanza {
	return &Stanza{}
}

// SetState transitions t to state, recording err as the associated reason if
// non-nil. Once t reaches a terminal state further calls are no-ops: a
// stanza cannot un-fail or un-acknowledge itself.
func (t *Stanza) SetState(state StanzaState, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.terminal() {
		return
	}
	t.state = state
	if err != nil {
		t.err = err
	}
	for _, w := range t.waiters {
		close(w)
	}
	t.waiters = nil
}

// State returns t's current state and, if it carries one, the error
// associated with reaching it.
func (t *Stanza) State() (StanzaState, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state, t.err
}

// Wait blocks until t reaches a terminal state or ctx is canceled, whichever
// comes first, and returns the state observed at that point.
func (t *Stanza) Wait(ctx context.Context) (StanzaState, error) {
	for {
		t.mu.Lock()
		state, err := t.state, t.err
		if state.terminal() {
			t.mu.Unlock()
			return state, err
		}
		ch := make(chan struct{})
		t.waiters = append(t.waiters, ch)
		t.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			state, err = t.State()
			return state, err
		}
	}
}
