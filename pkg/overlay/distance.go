// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package overlay

import (
	"errors"
	"math/big"
	"math/bits"
)

var ErrDifferentLength = errors.New("addresses have different length")

// LogDistance returns the logarithmic XOR distance between x and y.
//
// It is the bit width of the identifiers minus the number of leading zero
// bits of x^y, so it ranges from 0 (x equals y) to the bit width (the most
// significant bit differs). The function is symmetric. Addresses of
// different length are compared as if the shorter one was right padded
// with zero bytes.
func LogDistance(x, y Address) int {
	xb, yb := x.b, y.b
	n := len(xb)
	if len(yb) > n {
		n = len(yb)
	}

	lz := 0
	for i := 0; i < n; i++ {
		var xv, yv byte
		if i < len(xb) {
			xv = xb[i]
		}
		if i < len(yb) {
			yv = yb[i]
		}
		oxo := xv ^ yv
		if oxo == 0 {
			lz += 8
			continue
		}
		lz += bits.LeadingZeros8(oxo)
		break
	}
	return n*8 - lz
}

// Distance returns the distance between address x and address y as a
// (comparable) big integer using the XOR metric.
func Distance(x, y []byte) (*big.Int, error) {
	if len(x) != len(y) {
		return nil, ErrDifferentLength
	}
	c := make([]byte, len(x))
	for i, addr := range x {
		c[i] = addr ^ y[i]
	}
	val := big.NewInt(0)
	val.SetBytes(c)
	return val, nil
}

// DistanceCmp compares x and y to a in terms of the XOR metric.
//
// It returns:
//
//	 1 if x is closer to a than y
//	 0 if x and y are the same distance from a
//	-1 if y is closer to a than x
func DistanceCmp(a, x, y []byte) (int, error) {
	if len(a) != len(x) || len(a) != len(y) {
		return 0, ErrDifferentLength
	}
	for i := range a {
		dx := x[i] ^ a[i]
		dy := y[i] ^ a[i]
		if dx == dy {
			continue
		} else if dx < dy {
			return 1, nil
		}
		return -1, nil
	}
	return 0, nil
}
