// Copyright 2024 The Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package dial

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// ErrPinMismatch is returned when a peer's certificate does not match any
// digest in a PinStore.
var ErrPinMismatch = errors.New("dial: certificate did not match any pinned digest")

// PinType selects what part of a certificate a PinStore's digests are
// computed over.
type PinType int

const (
	// PinPublicKey pins a certificate's subject public key, so that a
	// server can rotate an expiring certificate without invalidating
	// existing pins as long as the key itself is reused. This is the
	// default.
	PinPublicKey PinType = iota

	// PinCert pins the entire DER-encoded certificate, invalidating the
	// pin the moment the certificate is reissued even with the same key.
	PinCert
)

// Digest computes the pin digest for cert using PinPublicKey: a
// hex-encoded BLAKE2b-256 hash of its DER-encoded subject public key.
func Digest(cert *x509.Certificate) string {
	return DigestType(PinPublicKey, cert)
}

// DigestType is like Digest but computes the digest according to typ.
func DigestType(typ PinType, cert *x509.Certificate) string {
	var sum [32]byte
	switch typ {
	case PinCert:
		sum = blake2b.Sum256(cert.Raw)
	default:
		sum = blake2b.Sum256(cert.RawSubjectPublicKeyInfo)
	}
	return hex.EncodeToString(sum[:])
}

// A PinStore holds a set of certificate pin digests (see Digest) used to
// authenticate a TLS peer independently of (or in addition to) the normal
// certificate authority chain. The zero value is an empty store pinned by
// public key. A PinStore is safe for concurrent use.
type PinStore struct {
	mu   sync.RWMutex
	typ  PinType
	pins map[string]struct{}
}

// NewPinStore returns a PinStore pinned to the given certificates by public
// key. It pins its arguments immediately, so to pin by whole certificate
// instead, create the store without arguments and call SetType(PinCert)
// before adding certificates.
func NewPinStore(certs ...*x509.Certificate) *PinStore {
	p := &PinStore{pins: make(map[string]struct{}, len(certs))}
	for _, cert := range certs {
		p.Add(cert)
	}
	return p
}

// Type reports the PinType new pins are computed with.
func (p *PinStore) Type() PinType {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.typ
}

// SetType changes the PinType used by future calls to Add. It does not
// recompute digests already stored.
func (p *PinStore) SetType(typ PinType) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.typ = typ
}

// Add pins cert using the store's configured PinType.
func (p *PinStore) Add(cert *x509.Certificate) {
	p.AddDigest(DigestType(p.Type(), cert))
}

// AddDigest pins a digest previously computed with Digest, for example one
// read back from persistent storage between runs.
func (p *PinStore) AddDigest(digest string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pins == nil {
		p.pins = make(map[string]struct{})
	}
	p.pins[digest] = struct{}{}
}

// Remove unpins a previously pinned certificate.
func (p *PinStore) Remove(cert *x509.Certificate) {
	digest := DigestType(p.Type(), cert)
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pins, digest)
}

// Len reports the number of pinned digests.
func (p *PinStore) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.pins)
}

func (p *PinStore) contains(digest string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.pins[digest]
	return ok
}

// Verify has the signature required by tls.Config.VerifyPeerCertificate. It
// accepts the handshake if the empty store has never been pinned, or if any
// certificate presented by the peer matches a pinned digest.
func (p *PinStore) Verify(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	if p.Len() == 0 {
		return nil
	}
	typ := p.Type()
	for _, raw := range rawCerts {
		cert, err := x509.ParseCertificate(raw)
		if err != nil {
			continue
		}
		if p.contains(DigestType(typ, cert)) {
			return nil
		}
	}
	return ErrPinMismatch
}

// withPinning returns a shallow copy of cfg with pins layered onto whatever
// VerifyPeerCertificate hook (if any) cfg already carries; both must pass.
func withPinning(cfg *tls.Config, pins *PinStore) *tls.Config {
	out := cfg.Clone()
	prev := out.VerifyPeerCertificate
	out.VerifyPeerCertificate = func(rawCerts [][]byte, chains [][]*x509.Certificate) error {
		if prev != nil {
			if err := prev(rawCerts, chains); err != nil {
				return err
			}
		}
		return pins.Verify(rawCerts, chains)
	}
	return out
}
