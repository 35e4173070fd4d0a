// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package jsonhttptest issues requests against JSON HTTP handlers in tests
// and checks the responses.
package jsonhttptest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/ethersphere/portal/pkg/jsonhttp"
	"github.com/google/go-cmp/cmp"
)

// Request sends the request and checks the response status code. The
// response body is then checked or captured according to the options.
func Request(t *testing.T, client *http.Client, method, url string, responseCode int, opts ...Option) http.Header {
	t.Helper()

	o := new(options)
	for _, opt := range opts {
		if err := opt.apply(o); err != nil {
			t.Fatal(err)
		}
	}

	req, err := http.NewRequest(method, url, o.requestBody)
	if err != nil {
		t.Fatal(err)
	}
	req.Header = o.requestHeaders
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != responseCode {
		t.Errorf("got response status %s, want %v %s", resp.Status, responseCode, http.StatusText(responseCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}

	switch {
	case o.expectedJSONResponse != nil:
		if v := resp.Header.Get("Content-Type"); v != jsonhttp.DefaultContentTypeHeader {
			t.Errorf("got content type %q, want %q", v, jsonhttp.DefaultContentTypeHeader)
		}
		if diff := cmp.Diff(normalize(t, o.expectedJSONResponse), decode(t, body)); diff != "" {
			t.Errorf("json response mismatch (-want +got):\n%s", diff)
		}
	case o.unmarshalResponse != nil:
		if err := json.Unmarshal(body, o.unmarshalResponse); err != nil {
			t.Fatalf("json decode response %q: %v", body, err)
		}
	case o.responseBody != nil:
		*o.responseBody = body
	}
	return resp.Header
}

// normalize returns the generic JSON form of v, as it would be decoded from
// a response.
func normalize(t *testing.T, v interface{}) interface{} {
	t.Helper()

	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return decode(t, b)
}

func decode(t *testing.T, b []byte) (v interface{}) {
	t.Helper()

	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("json decode %q: %v", b, err)
	}
	return v
}

func WithRequestBody(body io.Reader) Option {
	return optionFunc(func(o *options) error {
		o.requestBody = body
		return nil
	})
}

func WithJSONRequestBody(r interface{}) Option {
	return optionFunc(func(o *options) error {
		b, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("json encode request body: %w", err)
		}
		o.requestBody = bytes.NewReader(b)
		return nil
	})
}

func WithRequestHeader(key, value string) Option {
	return optionFunc(func(o *options) error {
		if o.requestHeaders == nil {
			o.requestHeaders = make(http.Header)
		}
		o.requestHeaders.Add(key, value)
		return nil
	})
}

// WithExpectedJSONResponse compares the decoded response body with the JSON
// form of response.
func WithExpectedJSONResponse(response interface{}) Option {
	return optionFunc(func(o *options) error {
		o.expectedJSONResponse = response
		return nil
	})
}

// WithUnmarshalResponse decodes the response body into response, which must
// be a pointer.
func WithUnmarshalResponse(response interface{}) Option {
	return optionFunc(func(o *options) error {
		o.unmarshalResponse = response
		return nil
	})
}

// WithResponseBody stores the raw response body in b.
func WithResponseBody(b *[]byte) Option {
	return optionFunc(func(o *options) error {
		o.responseBody = b
		return nil
	})
}

type options struct {
	requestBody          io.Reader
	requestHeaders       http.Header
	expectedJSONResponse interface{}
	unmarshalResponse    interface{}
	responseBody         *[]byte
}

type Option interface {
	apply(*options) error
}
type optionFunc func(*options) error

func (f optionFunc) apply(r *options) error { return f(r) }
