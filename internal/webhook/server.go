package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"callspool/internal/config"
	"callspool/internal/fetcher"
	"callspool/internal/logging"
)

const (
	eventURLValidation      = "endpoint.url_validation"
	eventRecordingCompleted = "recording.completed"

	maxBodyBytes = 1 << 20
)

// Server receives the provider's push events: the endpoint-validation
// handshake and recording-completed notifications.
type Server struct {
	bind    string
	secret  string
	fetcher *fetcher.Fetcher
	logger  *slog.Logger

	listener net.Listener
	server   *http.Server
}

// NewServer builds the webhook server. Returns nil when no bind address is
// configured.
func NewServer(cfg *config.Config, f *fetcher.Fetcher, logger *slog.Logger) *Server {
	bind := strings.TrimSpace(cfg.Webhook.Bind)
	if bind == "" {
		return nil
	}

	srv := &Server{
		bind:    bind,
		secret:  cfg.Webhook.Secret,
		fetcher: f,
		logger:  logging.NewComponentLogger(logger, "webhook"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", srv.handleEvent)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Start begins listening and shuts the server down when ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("webhook listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("webhook server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("webhook listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down outside of context cancellation.
func (s *Server) Stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Handler exposes the event handler for tests and embedding.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.handleEvent)
	return mux
}

type inboundEvent struct {
	Event   string `json:"event"`
	Payload struct {
		PlainToken  string `json:"plainToken"`
		ID          string `json:"id"`
		DownloadURL string `json:"downloadUrl"`
		StartTime   string `json:"startTime"`
	} `json:"payload"`
}

type handshakeResponse struct {
	PlainToken     string `json:"plainToken"`
	EncryptedToken string `json:"encryptedToken"`
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "read body")
		return
	}
	var event inboundEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.writeError(w, http.StatusBadRequest, "decode event")
		return
	}

	switch event.Event {
	case eventURLValidation:
		s.handleHandshake(w, event)
	case eventRecordingCompleted:
		s.handleRecordingCompleted(r.Context(), w, event)
	default:
		s.logger.Warn("unknown webhook event", logging.String(logging.FieldEventType, event.Event))
		s.writeError(w, http.StatusBadRequest, "unknown event")
	}
}

func (s *Server) handleHandshake(w http.ResponseWriter, event inboundEvent) {
	token := event.Payload.PlainToken
	if token == "" {
		s.writeError(w, http.StatusBadRequest, "missing plain token")
		return
	}
	s.logger.Info("handshake received")
	s.writeJSON(w, http.StatusOK, handshakeResponse{
		PlainToken:     token,
		EncryptedToken: SignToken(token, s.secret),
	})
}

func (s *Server) handleRecordingCompleted(ctx context.Context, w http.ResponseWriter, event inboundEvent) {
	id := strings.TrimSpace(event.Payload.ID)
	url := strings.TrimSpace(event.Payload.DownloadURL)
	if id == "" || url == "" {
		s.writeError(w, http.StatusBadRequest, "missing id or download url")
		return
	}

	startTime := time.Now().UTC()
	if raw := strings.TrimSpace(event.Payload.StartTime); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			startTime = parsed
		} else {
			s.logger.Warn("unparseable start time on recording event",
				logging.String(logging.FieldRecordID, id),
				logging.String("start_time", raw))
		}
	}

	outcome, err := s.fetcher.IngestOne(ctx, id, url, startTime)
	if err != nil {
		s.logger.Error("webhook ingestion failed",
			logging.String(logging.FieldRecordID, id),
			logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "ingestion failed")
		return
	}
	s.logger.Info("recording event handled",
		logging.String(logging.FieldRecordID, id),
		logging.String("summary", outcome.Summary()))
	s.writeJSON(w, http.StatusOK, map[string]any{
		"fetched": outcome.Fetched,
		"saved":   outcome.Saved,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// SignToken returns the hex HMAC-SHA256 digest of the handshake token under
// the shared webhook secret.
func SignToken(token, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}
