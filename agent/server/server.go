// Package server exposes the waiter over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	waiterx "github.com/tanpawarit/chative-waiter/agent/agents/waiter"
	"github.com/tanpawarit/chative-waiter/agent/order"
)

const maxBodyBytes = 1 << 20

// MessageHandler answers one user message in a session.
type MessageHandler interface {
	HandleMessage(ctx context.Context, sessionID string, text string) (string, error)
}

type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Text      string `json:"text"`
}

type ChatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Server struct {
	waiter MessageHandler
	ledger *order.Ledger
	tracer trace.Tracer
	router *mux.Router
}

func New(waiter MessageHandler, ledger *order.Ledger) (*Server, error) {
	if waiter == nil {
		return nil, errors.New("message handler is required")
	}
	if ledger == nil {
		return nil, errors.New("ledger is required")
	}

	s := &Server{
		waiter: waiter,
		ledger: ledger,
		tracer: otel.Tracer("github.com/tanpawarit/chative-waiter/agent/server"),
	}

	r := mux.NewRouter()
	r.Use(s.traceMiddleware)
	r.HandleFunc("/healthz", s.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/chat", s.chatHandler).Methods(http.MethodPost)
	r.HandleFunc("/order", s.orderHandler).Methods(http.MethodGet)
	r.HandleFunc("/order/total", s.totalHandler).Methods(http.MethodGet)
	s.router = r

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		ctx, span := s.tracer.Start(r.Context(), r.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
			))
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.status_code", rec.status))
		if rec.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(rec.status))
		}
		log.Debug().
			Str("method", r.Method).
			Str("route", route).
			Int("status", rec.status).
			Dur("latency", time.Since(start)).
			Msg("http request")
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	reply, err := s.waiter.HandleMessage(r.Context(), sessionID, req.Text)
	if err != nil {
		status := statusFor(err)
		trace.SpanFromContext(r.Context()).RecordError(err)
		log.Error().Err(err).Str("session_id", sessionID).Int("status", status).Msg("chat turn failed")
		writeJSON(w, status, errorResponse{Error: publicMessage(err)})
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{SessionID: sessionID, Reply: reply})
}

func (s *Server) orderHandler(w http.ResponseWriter, r *http.Request) {
	res, err := s.ledger.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("list order failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "storage error"})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) totalHandler(w http.ResponseWriter, r *http.Request) {
	res, err := s.ledger.Total(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("order total failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "storage error"})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, waiterx.ErrInvalidMessage), errors.Is(err, waiterx.ErrInvalidSession):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func publicMessage(err error) string {
	switch {
	case errors.Is(err, waiterx.ErrInvalidMessage):
		return waiterx.ErrInvalidMessage.Error()
	case errors.Is(err, waiterx.ErrInvalidSession):
		return waiterx.ErrInvalidSession.Error()
	}
	var serr *order.StorageError
	if errors.As(err, &serr) {
		return "storage error"
	}
	return "internal error"
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("write response failed")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
