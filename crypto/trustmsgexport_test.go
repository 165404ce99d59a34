// Copyright 2023 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package crypto

// ErrTrustElement is exported only during testing for use by the _test package.
var ErrTrustElement = errTrustElement
