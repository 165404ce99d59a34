// Copyright 2024 The Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xso

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"go.stanzaclient.dev/xmpp/jid"
)

// Type parses the character data of an attribute or a text-valued element
// into a Go value, and formats a Go value back into character data. It is
// the coercion layer that lets a Descriptor field carry a typed value
// (an int, a bool, a time.Time, a jid.JID) instead of a bare string.
type Type interface {
	Parse(s string) (interface{}, error)
	Format(v interface{}) (string, error)
}

type intType struct{}

func (intType) Parse(s string) (interface{}, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("xso: %q is not an integer: %w", s, err)
	}
	return n, nil
}

func (intType) Format(v interface{}) (string, error) {
	switch n := v.(type) {
	case int:
		return strconv.Itoa(n), nil
	case int32:
		return strconv.FormatInt(int64(n), 10), nil
	case int64:
		return strconv.FormatInt(n, 10), nil
	case uint:
		return strconv.FormatUint(uint64(n), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(n), 10), nil
	case uint64:
		return strconv.FormatUint(n, 10), nil
	default:
		return "", fmt.Errorf("xso: cannot format %T as an integer", v)
	}
}

// Int parses and formats base-10 integers.
var Int Type = intType{}

type boolType struct{}

func (boolType) Parse(s string) (interface{}, error) {
	switch s {
	case "true", "1":
		return true, nil
	case "false", "0", "":
		return false, nil
	}
	return nil, fmt.Errorf("xso: %q is not a valid boolean", s)
}

func (boolType) Format(v interface{}) (string, error) {
	b, ok := v.(bool)
	if !ok {
		return "", fmt.Errorf("xso: cannot format %T as a boolean", v)
	}
	if b {
		return "true", nil
	}
	return "false", nil
}

// Bool parses and formats XML schema booleans ("true"/"false"/"1"/"0").
var Bool Type = boolType{}

// enumType restricts a value to one of a fixed set of strings, the Go
// analog of aioxmpp's RestrictToSet validator.
type enumType struct {
	values map[string]bool
}

// Enum returns a Type that only accepts the given values.
func Enum(values ...string) Type {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return enumType{values: m}
}

func (e enumType) Parse(s string) (interface{}, error) {
	if !e.values[s] {
		return nil, fmt.Errorf("xso: %q is not one of the allowed values", s)
	}
	return s, nil
}

func (e enumType) Format(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok || !e.values[s] {
		return "", fmt.Errorf("xso: %v is not one of the allowed values", v)
	}
	return s, nil
}

type base64Type struct{}

func (base64Type) Parse(s string) (interface{}, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("xso: invalid base64 data: %w", err)
	}
	return b, nil
}

func (base64Type) Format(v interface{}) (string, error) {
	b, ok := v.([]byte)
	if !ok {
		return "", fmt.Errorf("xso: cannot format %T as base64", v)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// Base64 parses and formats standard base64-encoded binary data.
var Base64 Type = base64Type{}

type dateTimeType struct{}

func (dateTimeType) Parse(s string) (interface{}, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("xso: %q is not an ISO 8601 timestamp: %w", s, err)
	}
	return t, nil
}

func (dateTimeType) Format(v interface{}) (string, error) {
	t, ok := v.(time.Time)
	if !ok {
		return "", fmt.Errorf("xso: cannot format %T as a timestamp", v)
	}
	return t.UTC().Format(time.RFC3339), nil
}

// DateTime parses and formats XEP-0082 (ISO 8601) timestamps.
var DateTime Type = dateTimeType{}

type jidType struct{}

func (jidType) Parse(s string) (interface{}, error) {
	return jid.Parse(s)
}

func (jidType) Format(v interface{}) (string, error) {
	j, ok := v.(jid.JID)
	if !ok {
		return "", fmt.Errorf("xso: cannot format %T as a JID", v)
	}
	return j.String(), nil
}

// JID parses and formats bare and full JIDs.
var JID Type = jidType{}

type langType struct{}

func (langType) Parse(s string) (interface{}, error) {
	if !validLangTag(s) {
		return nil, fmt.Errorf("xso: %q is not a valid language tag", s)
	}
	return s, nil
}

func (langType) Format(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok || !validLangTag(s) {
		return "", fmt.Errorf("xso: %v is not a valid language tag", v)
	}
	return s, nil
}

// Lang parses and formats RFC 5646 language tags such as those found in
// xml:lang attributes ("en", "en-US", "sr-Latn").
var Lang Type = langType{}

// validLangTag reports whether s is a syntactically plausible RFC 5646
// language tag: one or more alphanumeric subtags separated by hyphens.
func validLangTag(s string) bool {
	if s == "" {
		return false
	}
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '-' {
			if i == start {
				return false
			}
			for _, c := range s[start:i] {
				if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
					return false
				}
			}
			start = i + 1
		}
	}
	return true
}
