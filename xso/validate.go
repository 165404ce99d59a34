// Copyright 2024 The Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package xso

import (
	"fmt"
	"regexp"
	"strconv"
)

// A Validator checks an attribute or character-data value decoded as a
// string and returns an error describing why it is invalid, or nil.
type Validator interface {
	Validate(v string) error
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(string) error

// Validate calls f(v).
func (f ValidatorFunc) Validate(v string) error { return f(v) }

// NonEmpty rejects the empty string.
func NonEmpty() Validator {
	return ValidatorFunc(func(v string) error {
		if v == "" {
			return fmt.Errorf("xso: value must not be empty")
		}
		return nil
	})
}

// Choice accepts only one of the provided values.
func Choice(values ...string) Validator {
	return ValidatorFunc(func(v string) error {
		for _, want := range values {
			if v == want {
				return nil
			}
		}
		return fmt.Errorf("xso: %q is not one of %v", v, values)
	})
}

// Regex accepts only values matching expr.
func Regex(expr string) Validator {
	re := regexp.MustCompile(expr)
	return ValidatorFunc(func(v string) error {
		if !re.MatchString(v) {
			return fmt.Errorf("xso: %q does not match %s", v, expr)
		}
		return nil
	})
}

// Range accepts only base-10 integers n such that min <= n <= max.
func Range(min, max int64) Validator {
	return ValidatorFunc(func(v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("xso: %q is not an integer: %w", v, err)
		}
		if n < min || n > max {
			return fmt.Errorf("xso: %d is not in range [%d, %d]", n, min, max)
		}
		return nil
	})
}

// And accepts a value only if every validator in vs accepts it.
func And(vs ...Validator) Validator {
	return ValidatorFunc(func(v string) error {
		for _, validator := range vs {
			if err := validator.Validate(v); err != nil {
				return err
			}
		}
		return nil
	})
}
