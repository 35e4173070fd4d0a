// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jsonhttp

import (
	"encoding/json"
	"net/http"

	"resenje.org/web"
)

// errBodyTooLarge is the message of the unexported error returned by
// http.MaxBytesReader.
const errBodyTooLarge = "http: request body too large"

var methodNotAllowedBody = func() string {
	b, _ := json.Marshal(StatusResponse{
		Message: http.StatusText(http.StatusMethodNotAllowed),
		Code:    http.StatusMethodNotAllowed,
	})
	return string(b)
}()

// MethodHandler routes requests by their method and answers other methods
// with a JSON Method Not Allowed response.
type MethodHandler map[string]http.Handler

func (h MethodHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	web.HandleMethods(h, methodNotAllowedBody, DefaultContentTypeHeader, w, r)
}

func NotFoundHandler(w http.ResponseWriter, _ *http.Request) {
	NotFound(w, nil)
}

// NewMaxBodyBytesHandler rejects requests that announce a body longer than
// limit and caps the body of the others. Handlers report a body that turned
// out too long with HandleBodyReadError.
func NewMaxBodyBytesHandler(limit int64) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				RequestEntityTooLarge(w, nil)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			h.ServeHTTP(w, r)
		})
	}
}

// HandleBodyReadError responds with Request Entity Too Large if err comes
// from a capped body. It reports whether a response was written.
func HandleBodyReadError(err error, w http.ResponseWriter) (responded bool) {
	if err == nil || err.Error() != errBodyTooLarge {
		return false
	}
	RequestEntityTooLarge(w, nil)
	return true
}
