package core

import (
	"errors"
	"mime"
	"strings"
	"time"
)

var (
	// ErrNoStore is returned by verdict lookups when no store is configured
	ErrNoStore = errors.New("verdict store not configured")
	// ErrVerdictNotFound is returned when a verdict does not exist or has expired
	ErrVerdictNotFound = errors.New("verdict not found")
)

// Label is the discrete classification assigned to an email
type Label string

const (
	LabelLegit    Label = "legit"
	LabelSpam     Label = "spam"
	LabelPhishing Label = "phishing"
	LabelFraud    Label = "fraud"
)

// RiskTier is the discrete risk assigned to a URL
type RiskTier string

const (
	RiskLow      RiskTier = "low"
	RiskMedium   RiskTier = "medium"
	RiskHigh     RiskTier = "high"
	RiskCritical RiskTier = "critical"
)

// Kind names the pipeline that produced a verdict
type Kind string

const (
	KindEmail Kind = "email"
	KindPDF   Kind = "pdf"
	KindURL   Kind = "url"
)

// EmailHeaders carries the sender headers relevant to scoring
type EmailHeaders struct {
	From    string `json:"from,omitempty"`
	ReplyTo string `json:"reply_to,omitempty"`
}

// EmailInput is the email variant of the analysis input
type EmailInput struct {
	Subject string        `json:"subject"`
	Body    string        `json:"body"`
	URLs    []string      `json:"urls"`
	PDFText *string       `json:"pdf_text,omitempty"`
	Headers *EmailHeaders `json:"headers,omitempty"`
}

// URLInput is the URL variant of the analysis input
type URLInput struct {
	URL string `json:"url"`
}

// Attachment is a decoded MIME part handed to the service
type Attachment struct {
	FileName    string
	ContentType string
	Content     []byte
}

// IsPDF reports whether the attachment is declared or named as a PDF
func (a Attachment) IsPDF() bool {
	if mt, _, err := mime.ParseMediaType(a.ContentType); err == nil && mt == "application/pdf" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(a.FileName), ".pdf")
}

// Message is a parsed email with its attachments
type Message struct {
	EmailInput
	MessageID   string
	Attachments []Attachment
}

// EmailResult is the outcome of email classification
type EmailResult struct {
	Label            Label    `json:"label"`
	Confidence       float64  `json:"confidence"`
	Score            float64  `json:"score"`
	Reasons          []string `json:"reasons"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
	Version          string   `json:"version"`
	VerdictID        string   `json:"verdict_id,omitempty"`
}

// PdfResult is the outcome of PDF structural analysis
type PdfResult struct {
	HasLinks         bool     `json:"has_links"`
	HasJS            bool     `json:"has_js"`
	HasActions       bool     `json:"has_actions"`
	HasEmbeddedFiles bool     `json:"has_embedded_files"`
	IsEncrypted      bool     `json:"is_encrypted"`
	RiskScore        float64  `json:"risk_score"`
	Text             string   `json:"text"`
	URLs             []string `json:"urls"`
	PageCount        int      `json:"page_count"`
	Reasons          []string `json:"reasons"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
	VerdictID        string   `json:"verdict_id,omitempty"`
}

// URLResult is the outcome of URL analysis
type URLResult struct {
	URL              string   `json:"url"`
	Domain           string   `json:"domain"`
	TLD              string   `json:"tld"`
	Subdomain        string   `json:"subdomain,omitempty"`
	HasIP            bool     `json:"has_ip"`
	IsEncoded        bool     `json:"is_encoded"`
	IsShortened      bool     `json:"is_shortened"`
	KnownSafe        bool     `json:"known_safe"`
	Entropy          float64  `json:"entropy"`
	Risk             RiskTier `json:"risk"`
	Score            float64  `json:"score"`
	Reasons          []string `json:"reasons"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
	VerdictID        string   `json:"verdict_id,omitempty"`
}

// BatchResult is the outcome of a batch URL analysis
type BatchResult struct {
	Results []URLResult `json:"results"`
	Total   int         `json:"total"`
}

// MessageResult bundles the email verdict with per-attachment PDF verdicts
type MessageResult struct {
	MessageID string                `json:"message_id,omitempty"`
	Email     EmailResult           `json:"email"`
	PDFs      map[string]*PdfResult `json:"pdfs,omitempty"`
}

// Verdict is the audit record of one analysis
type Verdict struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Label       string    `json:"label"`
	Score       float64   `json:"score"`
	Reasons     []string  `json:"reasons"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the verdict is past its retention at now
func (v *Verdict) Expired(now time.Time) bool {
	return !v.ExpiresAt.IsZero() && !now.Before(v.ExpiresAt)
}
