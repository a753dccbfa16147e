// Package httpapi serves the verifier over HTTP/JSON:
//
//	POST /v1/verify          {"uri": "...", "publicKey": "..."}
//	POST /v1/decode          {"uri": "...", "publicKey": "..."}
//	GET  /v1/keys/{keyId}    keyId may contain "/"
//	POST /v1/hash            {"fields": ["..."]}
//	GET  /healthz
//
// Errors are model.CodedError bodies with a matching status code.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	slogcontext "github.com/veqryn/slog-context"

	"xdao.co/cred/model"
)

// MaxRequestBytes caps request bodies.
const MaxRequestBytes = 64 << 10

const requestIDHeader = "X-Request-Id"

type Server struct {
	Service model.Service
	Logger  *slog.Logger
	// AllowedOrigins enables CORS for browser verifiers. Empty disables it.
	AllowedOrigins []string
	// AccessLog receives Apache combined log lines when set.
	AccessLog io.Writer
}

// Handler returns the routed and wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.withRequestLogger)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/verify", s.verify).Methods(http.MethodPost, http.MethodOptions)
	v1.HandleFunc("/decode", s.decode).Methods(http.MethodPost, http.MethodOptions)
	v1.HandleFunc("/keys/{keyId:.+}", s.resolveKey).Methods(http.MethodGet, http.MethodOptions)
	v1.HandleFunc("/hash", s.hash).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		jsonResponse(w, map[string]string{"status": "ok"}, http.StatusOK)
	}).Methods(http.MethodGet)

	var h http.Handler = r
	if len(s.AllowedOrigins) > 0 {
		h = handlers.CORS(
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost}),
			handlers.AllowedHeaders([]string{"content-type"}),
			handlers.AllowedOrigins(s.AllowedOrigins),
			handlers.ExposedHeaders([]string{requestIDHeader}),
		)(h)
	}
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(false))(h)
	if s.AccessLog != nil {
		h = handlers.CombinedLoggingHandler(s.AccessLog, h)
	}
	return h
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// withRequestLogger tags the request with an id and puts a logger carrying
// it into the context.
func (s *Server) withRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		logger := s.logger().With(slog.String("request_id", id))
		ctx := slogcontext.NewCtx(r.Context(), logger)
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		logger.DebugContext(ctx, "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("elapsed", time.Since(start)))
	})
}

func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	var req model.VerifyRequest
	if err := decodeBody(w, r, &req); err != nil {
		errorResponse(w, r, err)
		return
	}
	resp, err := s.Service.Verify(r.Context(), req)
	if err != nil {
		errorResponse(w, r, err)
		return
	}
	jsonResponse(w, resp, http.StatusOK)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) {
	var req model.VerifyRequest
	if err := decodeBody(w, r, &req); err != nil {
		errorResponse(w, r, err)
		return
	}
	resp, err := s.Service.Decode(r.Context(), req)
	if err != nil {
		errorResponse(w, r, err)
		return
	}
	jsonResponse(w, resp, http.StatusOK)
}

func (s *Server) resolveKey(w http.ResponseWriter, r *http.Request) {
	resp, err := s.Service.ResolveKey(r.Context(), mux.Vars(r)["keyId"])
	if err != nil {
		errorResponse(w, r, err)
		return
	}
	jsonResponse(w, resp, http.StatusOK)
}

func (s *Server) hash(w http.ResponseWriter, r *http.Request) {
	var req model.HashRequest
	if err := decodeBody(w, r, &req); err != nil {
		errorResponse(w, r, err)
		return
	}
	resp, err := s.Service.Hash(req)
	if err != nil {
		errorResponse(w, r, err)
		return
	}
	jsonResponse(w, resp, http.StatusOK)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return model.NewError(model.ErrInvalidRequest, "no request body")
	}
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return model.NewError(model.ErrInvalidRequest, "empty request body")
		}
		return model.NewError(model.ErrInvalidRequest, "invalid JSON: "+err.Error())
	}
	return nil
}

func jsonResponse(w http.ResponseWriter, v any, status int) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "error creating JSON response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	ce := model.FromError(err)
	status := ce.Code.HTTPStatus()
	level := slog.LevelInfo
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slogcontext.FromCtx(r.Context()).Log(r.Context(), level, "request failed",
		slog.String("code", string(ce.Code)), slog.String("rule_id", ce.RuleID), slog.String("error", ce.Message))
	jsonResponse(w, ce, status)
}
