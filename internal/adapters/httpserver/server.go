// Package httpserver exposes the analysis pipeline over a small JSON API.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vams/mailrisk/internal/core"
	"github.com/vams/mailrisk/internal/parser"
)

// MaxUploadBytes bounds the size of an uploaded message.
const MaxUploadBytes = 50 << 20

// Server serves the JSON analysis endpoints.
type Server struct {
	addr    string
	service *core.AnalysisService
	parser  *parser.Parser
	logger  *zap.Logger
	httpSrv *http.Server
}

// NewServer creates a new HTTP transport.
func NewServer(addr string, service *core.AnalysisService, p *parser.Parser, logger *zap.Logger) *Server {
	return &Server{
		addr:    addr,
		service: service,
		parser:  p,
		logger:  logger,
	}
}

// Start starts the HTTP listener in a background goroutine.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 2 * time.Minute,
	}

	s.logger.Info("HTTP server starting", zap.String("address", s.addr))

	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() error {
	if s.httpSrv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(ctx)
}

// Handler returns the configured handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleIndex)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	return withCORS(mux)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "VAMS API is running",
		"version": "1.0.0",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "Email Analysis API",
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Message exceeds size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "Missing file upload")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".eml") {
		writeError(w, http.StatusBadRequest, "Only .eml files are supported")
		return
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Message exceeds size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to read upload")
		return
	}

	email, err := s.parser.Parse(raw)
	if err != nil {
		if errors.Is(err, core.ErrMalformedMessage) {
			writeError(w, http.StatusBadRequest, "Could not parse message")
			return
		}
		if errors.Is(err, core.ErrInputTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Message exceeds size limit")
			return
		}
		s.logger.Error("Unexpected parse failure", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal analysis error")
		return
	}

	verdict := s.service.Analyze(r.Context(), email)
	writeJSON(w, http.StatusOK, buildResponse(email, verdict))
}

// analyzeResponse mirrors the shape consumed by the upload page.
type analyzeResponse struct {
	Status         string           `json:"status"`
	Classification string           `json:"classification"`
	Phishing       scoreSection     `json:"phishing"`
	Spam           spamSection      `json:"spam"`
	Recommendation recommendSection `json:"recommendation"`
	Metadata       metadataSection  `json:"metadata"`
}

type scoreSection struct {
	Score    int      `json:"score"`
	Level    string   `json:"level"`
	Findings []string `json:"findings"`
}

type spamSection struct {
	Score       int      `json:"score"`
	Level       string   `json:"level"`
	Findings    []string `json:"findings"`
	Probability float64  `json:"probability"`
}

type recommendSection struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
	Level  string `json:"level"`
}

type metadataSection struct {
	Sender          string `json:"sender"`
	Subject         string `json:"subject"`
	HasAttachments  bool   `json:"has_attachments"`
	AttachmentCount int    `json:"attachment_count"`
	URLCount        int    `json:"url_count"`
}

func buildResponse(email *core.Email, v *core.Verdict) analyzeResponse {
	phishingFindings := v.PhishingFindings
	if phishingFindings == nil {
		phishingFindings = []string{}
	}
	spamFindings := v.SpamFindings
	if spamFindings == nil {
		spamFindings = []string{}
	}
	return analyzeResponse{
		Status:         "success",
		Classification: v.Classification,
		Phishing: scoreSection{
			Score:    v.PhishingScore,
			Level:    v.PhishingLevel,
			Findings: phishingFindings,
		},
		Spam: spamSection{
			Score:       v.SpamScore,
			Level:       v.SpamLevel,
			Findings:    spamFindings,
			Probability: v.SpamProbability,
		},
		Recommendation: recommendSection{
			Action: v.Recommendation.Action,
			Reason: v.Recommendation.Reason,
			Level:  v.Recommendation.Severity,
		},
		Metadata: metadataSection{
			Sender:          email.From,
			Subject:         email.Subject,
			HasAttachments:  len(email.Attachments) > 0,
			AttachmentCount: len(email.Attachments),
			URLCount:        len(email.URLs),
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"status": "error", "error": message})
}
