// Copyright 2023 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package overlay

import (
	"math/rand"
	"testing"
)

// RandAddress generates a random address.
func RandAddress(tb testing.TB) Address {
	tb.Helper()

	b := make([]byte, AddressSize)
	if _, err := rand.Read(b); err != nil {
		tb.Fatal(err)
	}
	return NewAddress(b)
}

// RandAddressAt generates a random address at log distance dist from self.
func RandAddressAt(tb testing.TB, self Address, dist int) Address {
	tb.Helper()

	addr := make([]byte, len(self.Bytes()))
	copy(addr, self.Bytes())
	if dist <= 0 {
		return NewAddress(addr)
	}
	if dist > len(addr)*8 {
		tb.Fatalf("distance %d out of range", dist)
	}

	p := len(addr)*8 - dist
	pos, bit := p/8, uint(p%8)
	keep := byte(0xff) << (8 - bit)
	flip := byte(1) << (7 - bit)
	randbyte := byte(rand.Intn(256))
	addr[pos] = (addr[pos] & keep) | (^addr[pos] & flip) | (randbyte &^ (keep | flip))

	for i := pos + 1; i < len(addr); i++ {
		addr[i] = byte(rand.Intn(256))
	}

	a := NewAddress(addr)
	if got := LogDistance(self, a); got != dist {
		tb.Fatalf("generated address at distance %d, want %d", got, dist)
	}
	return a
}

// RandAddresses generates slice with a random address.
func RandAddresses(tb testing.TB, count int) []Address {
	tb.Helper()

	result := make([]Address, count)
	for i := 0; i < count; i++ {
		result[i] = RandAddress(tb)
	}
	return result
}
