// Package smtpserver implements an SMTP content filter transport. It sits in
// front of an upstream MTA, scores every message, injects verdict headers and
// relays the annotated message onward. Messages classified for blocking are
// rejected at DATA time when blocking is enabled.
package smtpserver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/vams/mailrisk/internal/core"
	"github.com/vams/mailrisk/internal/parser"
)

// Verdict headers injected into relayed messages.
const (
	classHeader    = "X-VAMS-Classification"
	phishingHeader = "X-VAMS-Phishing-Score"
	spamHeader     = "X-VAMS-Spam-Score"
)

// Filter is the SMTP proxy transport.
type Filter struct {
	service      *core.AnalysisService
	parser       *parser.Parser
	logger       *zap.Logger
	listenAddr   string
	upstreamAddr string
	upstreamPort int
	blockOnRisk  bool
	server       *smtp.Server
}

// NewFilter creates a new SMTP filter transport.
func NewFilter(
	service *core.AnalysisService,
	p *parser.Parser,
	logger *zap.Logger,
	listenAddr string,
	upstreamAddr string,
	upstreamPort int,
	blockOnRisk bool,
) *Filter {
	return &Filter{
		service:      service,
		parser:       p,
		logger:       logger,
		listenAddr:   listenAddr,
		upstreamAddr: upstreamAddr,
		upstreamPort: upstreamPort,
		blockOnRisk:  blockOnRisk,
	}
}

// Start starts the SMTP listener in a background goroutine.
func (f *Filter) Start() error {
	f.server = smtp.NewServer(&backend{filter: f})
	f.server.Addr = f.listenAddr
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 50 * 1024 * 1024
	f.server.MaxRecipients = 50
	f.server.AllowInsecureAuth = true

	f.logger.Info("SMTP filter starting", zap.String("address", f.listenAddr))

	go func() {
		if err := f.server.ListenAndServe(); err != nil && err != smtp.ErrServerClosed {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the SMTP listener.
func (f *Filter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// relay sends the annotated message to the upstream MTA.
func (f *Filter) relay(sender string, recipients []string, data []byte) error {
	addr := fmt.Sprintf("%s:%d", f.upstreamAddr, f.upstreamPort)

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to upstream MTA: %w", err)
	}
	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	accepted := false
	for _, rcpt := range recipients {
		if err := c.Rcpt(rcpt, nil); err != nil {
			f.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", rcpt),
				zap.Error(err))
		} else {
			accepted = true
		}
	}
	if !accepted {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send message data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}
	return nil
}

type backend struct {
	filter *Filter
}

func (b *backend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &session{
		filter:     b.filter,
		recipients: make([]string, 0),
	}, nil
}

type session struct {
	filter     *Filter
	sender     string
	recipients []string
}

func (s *session) Reset() {
	s.sender = ""
	s.recipients = make([]string, 0)
}

func (s *session) AuthPlain(_ []byte) error {
	return smtp.ErrAuthUnsupported
}

func (s *session) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

func (s *session) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data scores the message, rejects it when policy says block, otherwise
// injects verdict headers and relays upstream.
func (s *session) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.filter.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	senderDomain := "unknown"
	if parts := strings.Split(s.sender, "@"); len(parts) == 2 {
		senderDomain = parts[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	email, err := s.filter.parser.Parse(raw)
	if err != nil {
		// Unparseable mail is relayed untouched so the filter never eats mail.
		s.filter.logger.Warn("Failed to parse message, relaying unmodified",
			zap.Error(err),
			zap.String("sender", s.sender),
			zap.String("sender_domain", senderDomain))
		return s.filter.relay(s.sender, s.recipients, raw)
	}

	verdict := s.filter.service.Analyze(ctx, email)

	if s.filter.blockOnRisk && verdict.Recommendation.Action == core.ActionBlock {
		s.filter.logger.Info("Rejecting high-risk message",
			zap.String("from", email.From),
			zap.String("sender_domain", senderDomain),
			zap.Int("phishing_score", verdict.PhishingScore),
			zap.String("classification", verdict.Classification))
		return fmt.Errorf("550 Rejected: %s (phishing score %d)",
			verdict.Classification, verdict.PhishingScore)
	}

	annotated := injectHeaders(raw, verdict)
	if err := s.filter.relay(s.sender, s.recipients, annotated); err != nil {
		s.filter.logger.Error("Failed to relay message upstream",
			zap.Error(err),
			zap.String("sender", s.sender))
		return err
	}

	s.filter.logger.Info("Processed message",
		zap.String("from", email.From),
		zap.String("sender_domain", senderDomain),
		zap.String("classification", verdict.Classification),
		zap.Int("phishing_score", verdict.PhishingScore),
		zap.Int("spam_score", verdict.SpamScore))

	return nil
}

func (s *session) Logout() error {
	return nil
}

// injectHeaders prepends the verdict headers to the raw message, leaving the
// original headers and all MIME parts untouched.
func injectHeaders(raw []byte, v *core.Verdict) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s: %s\r\n", classHeader, v.Classification)
	fmt.Fprintf(&buf, "%s: %d\r\n", phishingHeader, v.PhishingScore)
	fmt.Fprintf(&buf, "%s: %d\r\n", spamHeader, v.SpamScore)
	buf.Write(raw)
	return buf.Bytes()
}
