// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package debugapi

import (
	"expvar"
	"net/http"
	"net/http/pprof"

	"github.com/ethersphere/portal/pkg/jsonhttp"
	"github.com/ethersphere/portal/pkg/logging/httpaccess"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"resenje.org/web"
)

const radiusMaxRequestSize = 1024

// newBasicRouter constructs only the routes that do not depend on the routing
// table:
// - /health
// - pprof
// - vars
// - metrics
func (s *Service) newBasicRouter() *mux.Router {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(jsonhttp.NotFoundHandler)

	router.Path("/metrics").Handler(web.ChainHandlers(
		httpaccess.SetAccessLogLevelHandler(0), // suppress access log messages
		web.FinalHandler(promhttp.InstrumentMetricHandler(
			s.metricsRegistry,
			promhttp.HandlerFor(s.metricsRegistry, promhttp.HandlerOpts{}),
		)),
	))

	router.Handle("/debug/pprof", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := r.URL
		u.Path += "/"
		http.Redirect(w, r, u.String(), http.StatusPermanentRedirect)
	}))
	router.Handle("/debug/pprof/cmdline", http.HandlerFunc(pprof.Cmdline))
	router.Handle("/debug/pprof/profile", http.HandlerFunc(pprof.Profile))
	router.Handle("/debug/pprof/symbol", http.HandlerFunc(pprof.Symbol))
	router.Handle("/debug/pprof/trace", http.HandlerFunc(pprof.Trace))
	router.PathPrefix("/debug/pprof/").Handler(http.HandlerFunc(pprof.Index))

	router.Handle("/debug/vars", expvar.Handler())

	router.Handle("/health", web.ChainHandlers(
		httpaccess.SetAccessLogLevelHandler(0), // suppress access log messages
		web.FinalHandlerFunc(statusHandler),
	))

	return router
}

// newRouter constructs the complete set of routes after the routing table is
// injected and exposes /readiness to signal that the Debug API is fully
// active.
func (s *Service) newRouter() *mux.Router {
	router := s.newBasicRouter()

	router.Handle("/readiness", web.ChainHandlers(
		httpaccess.SetAccessLogLevelHandler(0), // suppress access log messages
		web.FinalHandlerFunc(statusHandler),
	))

	router.Handle("/addresses", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.addressesHandler),
	})
	router.Handle("/topology", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.topologyHandler),
	})
	router.Handle("/maintenance", jsonhttp.MethodHandler{
		"POST": http.HandlerFunc(s.maintenanceHandler),
	})

	router.Handle("/peers/{address}", jsonhttp.MethodHandler{
		"GET":    http.HandlerFunc(s.peerHandler),
		"DELETE": http.HandlerFunc(s.peerRemoveHandler),
	})
	router.Handle("/buckets/{distance}/live", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.liveNodesHandler),
	})
	router.Handle("/closest/{address}", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.closestNodesHandler),
	})

	router.Handle("/radius/{address}", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.radiusHandler),
		"PUT": web.ChainHandlers(
			jsonhttp.NewMaxBodyBytesHandler(radiusMaxRequestSize),
			web.FinalHandlerFunc(s.radiusUpdateHandler),
		),
		"DELETE": http.HandlerFunc(s.radiusRemoveHandler),
	})
	router.Handle("/content/{key}/peers", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.contentPeersHandler),
	})

	return router
}

// setRouter sets the base Debug API handler with common middlewares.
func (s *Service) setRouter(router http.Handler) {
	h := http.NewServeMux()
	h.Handle("/", web.ChainHandlers(
		httpaccess.NewHTTPAccessLogHandler(s.logger, logrus.InfoLevel, "debug api access"),
		handlers.CompressHandler,
		func(h http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if o := r.Header.Get("Origin"); o != "" && s.checkOrigin(o) {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
					w.Header().Set("Access-Control-Allow-Origin", o)
					w.Header().Set("Access-Control-Allow-Headers", "Origin, Accept, Content-Type, X-Requested-With, Access-Control-Request-Headers, Access-Control-Request-Method")
					w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS, POST, PUT, DELETE")
					w.Header().Set("Access-Control-Max-Age", "3600")
				}
				h.ServeHTTP(w, r)
			})
		},
		web.NoCacheHeadersHandler,
		web.FinalHandler(router),
	))

	s.handlerMu.Lock()
	defer s.handlerMu.Unlock()

	s.handler = h
}

// checkOrigin reports whether the origin is allowed. An empty list allows
// every origin.
func (s *Service) checkOrigin(origin string) bool {
	if len(s.corsAllowedOrigins) == 0 {
		return true
	}
	for _, o := range s.corsAllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
