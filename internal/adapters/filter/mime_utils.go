package filter

import (
	"bytes"
	"fmt"
	"mime"
	"strings"

	"github.com/h2non/filetype"
	"github.com/jhillyerd/enmime"

	"github.com/mikey/threat-analyzer/internal/core"
	"github.com/mikey/threat-analyzer/internal/utils"
)

// ParseMessage decodes a raw RFC 5322 message into the analysis model.
// Text and HTML bodies are concatenated; links are collected from both.
func ParseMessage(raw []byte) (*core.Message, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	body := env.Text
	if env.HTML != "" {
		if body != "" {
			body += "\n"
		}
		body += env.HTML
	}

	msg := &core.Message{
		EmailInput: core.EmailInput{
			Subject: env.GetHeader("Subject"),
			Body:    body,
			URLs:    utils.ExtractURLs(body),
		},
		MessageID: env.GetHeader("Message-ID"),
	}

	from, replyTo := env.GetHeader("From"), env.GetHeader("Reply-To")
	if from != "" || replyTo != "" {
		msg.Headers = &core.EmailHeaders{From: from, ReplyTo: replyTo}
	}

	parts := append(append([]*enmime.Part{}, env.Attachments...), env.Inlines...)
	for _, p := range parts {
		if len(p.Content) == 0 {
			continue
		}
		msg.Attachments = append(msg.Attachments, core.Attachment{
			FileName:    p.FileName,
			ContentType: sniffContentType(p.ContentType, p.Content),
			Content:     p.Content,
		})
	}
	return msg, nil
}

// sniffContentType replaces generic declared types with the detected one
func sniffContentType(declared string, content []byte) string {
	mt, _, err := mime.ParseMediaType(declared)
	if err == nil && mt != "" && mt != "application/octet-stream" {
		return declared
	}
	kind, err := filetype.Match(content)
	if err != nil || kind == filetype.Unknown {
		return declared
	}
	return kind.MIME.Value
}

// splitMessage returns the header block (including its terminating blank
// line) and the body. A message without a blank line is all header.
func splitMessage(raw []byte) (header, body []byte) {
	if i := bytes.Index(raw, []byte("\r\n\r\n")); i >= 0 {
		return raw[:i+4], raw[i+4:]
	}
	if i := bytes.Index(raw, []byte("\n\n")); i >= 0 {
		return raw[:i+2], raw[i+2:]
	}
	return raw, nil
}

// replaceSubject rewrites the Subject field (with its folded continuation
// lines) in a header block, or appends one when absent
func replaceSubject(header []byte, subject string) []byte {
	encoded := mime.QEncoding.Encode("utf-8", subject)
	line := "Subject: " + encoded + "\r\n"

	lines := strings.SplitAfter(string(header), "\n")
	var out strings.Builder
	replaced, skipping := false, false
	for _, l := range lines {
		if skipping && (strings.HasPrefix(l, " ") || strings.HasPrefix(l, "\t")) {
			continue
		}
		skipping = false
		if !replaced && len(l) >= 8 && strings.EqualFold(l[:8], "subject:") {
			out.WriteString(line)
			replaced, skipping = true, true
			continue
		}
		if !replaced && (l == "\r\n" || l == "\n") {
			out.WriteString(line)
			replaced = true
		}
		out.WriteString(l)
	}
	if !replaced {
		out.WriteString(line)
	}
	return []byte(out.String())
}

// sanitizeHeaderValue keeps a header value on one line
func sanitizeHeaderValue(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}
