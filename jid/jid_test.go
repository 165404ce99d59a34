// Copyright 2014 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package jid_test

import (
	"encoding/xml"
	"testing"

	"go.stanzaclient.dev/xmpp/jid"
)

var splitTests = []struct {
	in       string
	local    string
	domain   string
	resource string
	err      bool
}{
	{"example.net", "", "example.net", "", false},
	{"alice@example.net", "alice", "example.net", "", false},
	{"alice@example.net/resource", "alice", "example.net", "resource", false},
	{"example.net/resource", "", "example.net", "resource", false},
	{"example.net.", "", "example.net", "", false},
	{"@example.net", "", "", "", true},
	{"example.net/", "", "", "", true},
}

func TestSplitString(t *testing.T) {
	for _, tc := range splitTests {
		local, domain, resource, err := jid.SplitString(tc.in)
		if tc.err {
			if err == nil {
				t.Errorf("SplitString(%q): expected error, got nil", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("SplitString(%q): unexpected error: %v", tc.in, err)
		}
		if local != tc.local || domain != tc.domain || resource != tc.resource {
			t.Errorf("SplitString(%q) = (%q, %q, %q), want (%q, %q, %q)",
				tc.in, local, domain, resource, tc.local, tc.domain, tc.resource)
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, s := range []string{
		"alice@example.net",
		"alice@example.net/resource",
		"example.net",
		"example.net/resource",
	} {
		j, err := jid.Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q): %v", s, err)
		}
		if got := j.String(); got != s {
			t.Errorf("Parse(%q).String() = %q, want %q", s, got, s)
		}
	}
}

func TestBareAndDomain(t *testing.T) {
	j := jid.MustParse("alice@example.net/phone")
	if !j.Bare().Equal(jid.MustParse("alice@example.net")) {
		t.Errorf("Bare() = %v, want alice@example.net", j.Bare())
	}
	if !j.Domain().Equal(jid.MustParse("example.net")) {
		t.Errorf("Domain() = %v, want example.net", j.Domain())
	}
	if !j.IsFull() || j.Bare().IsFull() {
		t.Error("IsFull() inconsistent with resourcepart presence")
	}
}

func TestEqualIgnoresCase(t *testing.T) {
	a := jid.MustParse("Alice@Example.net")
	b := jid.MustParse("alice@example.net")
	if !a.Equal(b) {
		t.Errorf("expected canonicalized JIDs to compare equal: %v != %v", a, b)
	}
}

func TestWithResource(t *testing.T) {
	bare := jid.MustParse("alice@example.net")
	full, err := bare.WithResource("phone")
	if err != nil {
		t.Fatalf("WithResource: %v", err)
	}
	if full.Resourcepart() != "phone" {
		t.Errorf("Resourcepart() = %q, want phone", full.Resourcepart())
	}
	back, err := full.WithResource("")
	if err != nil {
		t.Fatalf("WithResource(\"\"): %v", err)
	}
	if !back.Equal(bare) {
		t.Errorf("WithResource(\"\") = %v, want bare JID %v", back, bare)
	}
}

func TestInvalidLocalpart(t *testing.T) {
	if _, err := jid.New(`alice@`, "example.net", ""); err == nil {
		t.Error("expected error for localpart containing '@'")
	}
}

func TestMarshalXMLAttr(t *testing.T) {
	j := jid.MustParse("alice@example.net/res")
	attr, err := j.MarshalXMLAttr(xml.Name{Local: "to"})
	if err != nil {
		t.Fatalf("MarshalXMLAttr: %v", err)
	}
	if attr.Value != "alice@example.net/res" {
		t.Errorf("MarshalXMLAttr value = %q", attr.Value)
	}
	var got jid.JID
	if err := got.UnmarshalXMLAttr(attr); err != nil {
		t.Fatalf("UnmarshalXMLAttr: %v", err)
	}
	if !got.Equal(j) {
		t.Errorf("round trip = %v, want %v", got, j)
	}
}

func TestEscapeUnescape(t *testing.T) {
	const raw = `juliet@capulet.com/foo bar`
	escaped := jid.Escape(raw)
	if escaped == raw {
		t.Fatal("expected escaping to change the string")
	}
	if got := jid.Unescape(escaped); got != raw {
		t.Errorf("Unescape(Escape(%q)) = %q", raw, got)
	}
}
