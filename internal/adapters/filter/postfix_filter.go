package filter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/mikey/threat-analyzer/internal/core"
)

// MessageAnalyzer is the part of the analysis service the filters need
type MessageAnalyzer interface {
	AnalyzeMessage(ctx context.Context, msg *core.Message) core.MessageResult
}

// PostfixOptions configures the Postfix content filter
type PostfixOptions struct {
	ListenAddr       string
	BlockPhishing    bool
	LabelHeader      string
	ScoreHeader      string
	ConfidenceHeader string
	ReasonsHeader    string
	PostfixAddr      string
	PostfixPort      int
	PostfixEnabled   bool
	SubjectPrefix    string
	ModifySubject    bool
	MaxMessageBytes  int64
	AnalysisTimeout  time.Duration
}

// PostfixFilter is an SMTP content filter: Postfix hands it each message,
// it stamps the verdict headers and reinjects the message
type PostfixFilter struct {
	service MessageAnalyzer
	logger  *zap.Logger
	opts    PostfixOptions
	server  *smtp.Server

	// deliver reinjects a processed message
	deliver func(sender string, recipients []string, data []byte) error
}

// NewPostfixFilter creates a new Postfix content filter
func NewPostfixFilter(service MessageAnalyzer, logger *zap.Logger, opts PostfixOptions) *PostfixFilter {
	if opts.SubjectPrefix == "" && opts.ModifySubject {
		opts.SubjectPrefix = "[**PHISHING**] "
	}
	if opts.LabelHeader == "" {
		opts.LabelHeader = "X-Threat-Label"
	}
	if opts.ScoreHeader == "" {
		opts.ScoreHeader = "X-Threat-Score"
	}
	if opts.ConfidenceHeader == "" {
		opts.ConfidenceHeader = "X-Threat-Confidence"
	}
	if opts.ReasonsHeader == "" {
		opts.ReasonsHeader = "X-Threat-Reasons"
	}
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = 30 * 1024 * 1024
	}
	if opts.AnalysisTimeout <= 0 {
		opts.AnalysisTimeout = 10 * time.Second
	}

	f := &PostfixFilter{
		service: service,
		logger:  logger,
		opts:    opts,
	}
	f.deliver = f.sendToPostfix
	return f
}

// Start starts the SMTP listener
func (f *PostfixFilter) Start() error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})

	f.server.Addr = f.opts.ListenAddr
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = f.opts.MaxMessageBytes
	f.server.MaxRecipients = 50

	ln, err := net.Listen("tcp", f.opts.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.opts.ListenAddr, err)
	}

	f.logger.Info("Postfix filter starting", zap.String("address", ln.Addr().String()))

	go func() {
		if err := f.server.Serve(ln); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop stops the SMTP listener
func (f *PostfixFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// Process analyzes a raw message and returns it with verdict headers added.
// A nil message with a non-nil error means the message must be rejected.
func (f *PostfixFilter) Process(ctx context.Context, raw []byte) ([]byte, *core.MessageResult, error) {
	msg, err := ParseMessage(raw)
	if err != nil {
		return nil, nil, &smtp.SMTPError{
			Code:         554,
			EnhancedCode: smtp.EnhancedCode{5, 6, 0},
			Message:      "Malformed message",
		}
	}

	result := f.service.AnalyzeMessage(ctx, msg)
	verdict := result.Email

	if verdict.Label == core.LabelPhishing && f.opts.BlockPhishing {
		f.logger.Info("Rejecting phishing email",
			zap.String("message_id", msg.MessageID),
			zap.Float64("score", verdict.Score),
			zap.Strings("reasons", verdict.Reasons))
		return nil, &result, &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 7, 1},
			Message:      fmt.Sprintf("Rejected as phishing (score: %.2f)", verdict.Score),
		}
	}

	header, body := splitMessage(raw)

	var out bytes.Buffer
	fmt.Fprintf(&out, "%s: %s\r\n", f.opts.LabelHeader, verdict.Label)
	fmt.Fprintf(&out, "%s: %.2f\r\n", f.opts.ScoreHeader, verdict.Score)
	fmt.Fprintf(&out, "%s: %.3f\r\n", f.opts.ConfidenceHeader, verdict.Confidence)
	fmt.Fprintf(&out, "%s: %s\r\n", f.opts.ReasonsHeader, sanitizeHeaderValue(strings.Join(verdict.Reasons, "; ")))

	if f.shouldTag(verdict.Label) && !strings.HasPrefix(msg.Subject, f.opts.SubjectPrefix) {
		header = replaceSubject(header, f.opts.SubjectPrefix+msg.Subject)
	}
	out.Write(header)
	out.Write(body)

	return out.Bytes(), &result, nil
}

func (f *PostfixFilter) shouldTag(label core.Label) bool {
	if !f.opts.ModifySubject || f.opts.SubjectPrefix == "" {
		return false
	}
	return label == core.LabelPhishing || label == core.LabelFraud
}

// sendToPostfix reinjects the processed message into Postfix
func (f *PostfixFilter) sendToPostfix(sender string, recipients []string, emailData []byte) error {
	postfixAddr := net.JoinHostPort(f.opts.PostfixAddr, fmt.Sprint(f.opts.PostfixPort))

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", postfixAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to Postfix: %w", err)
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

	recipientOK := false
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			f.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
			continue
		}
		recipientOK = true
	}
	if !recipientOK {
		return errors.New("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(emailData); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}
	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	filter *PostfixFilter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{filter: b.filter}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	filter     *PostfixFilter
	sender     string
	recipients []string
}

func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

func (s *smtpSession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.filter.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.filter.opts.AnalysisTimeout)
	defer cancel()

	processed, result, err := s.filter.Process(ctx, raw)
	if err != nil {
		return err
	}

	if !s.filter.opts.PostfixEnabled {
		s.filter.logger.Warn("Postfix forwarding disabled, message not reinjected")
	} else if err := s.filter.deliver(s.sender, s.recipients, processed); err != nil {
		s.filter.logger.Error("Failed to send email back to Postfix",
			zap.Error(err),
			zap.String("sender", s.sender))
		return &smtp.SMTPError{
			Code:         451,
			EnhancedCode: smtp.EnhancedCode{4, 3, 0},
			Message:      "Reinjection failed, try again later",
		}
	}

	s.filter.logger.Info("Processed email",
		zap.String("from", s.sender),
		zap.String("message_id", result.MessageID),
		zap.String("label", string(result.Email.Label)),
		zap.Float64("score", result.Email.Score),
		zap.Int("pdfs", len(result.PDFs)))
	return nil
}

func (s *smtpSession) Logout() error {
	return nil
}
