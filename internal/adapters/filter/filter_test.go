package filter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/emersion/go-smtp"
	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/mikey/threat-analyzer/internal/analyzer/email"
	"github.com/mikey/threat-analyzer/internal/analyzer/pdf"
	"github.com/mikey/threat-analyzer/internal/analyzer/urlintel"
	"github.com/mikey/threat-analyzer/internal/core"
	"github.com/mikey/threat-analyzer/internal/whitelist"
)

func init() {
	color.NoColor = true
}

func newService() *core.AnalysisService {
	logger := zap.NewNop()
	return core.NewAnalysisService(
		email.NewClassifier(email.DefaultOptions()),
		pdf.NewAnalyzer(pdf.DefaultOptions()),
		urlintel.NewAnalyzer(urlintel.DefaultOptions(), whitelist.NewChecker(whitelist.DefaultTrustedDomains, logger)),
		nil, nil, nil, logger, core.ServiceOptions{},
	)
}

const phishingMessage = "From: Billing <billing@corp.example>\r\n" +
	"Reply-To: collect@elsewhere.test\r\n" +
	"To: victim@example.org\r\n" +
	"Subject: Final warning\r\n" +
	"Message-ID: <p1@corp.example>\r\n" +
	"\r\n" +
	"Reply with your details.\r\n"

const legitMessage = "From: Alice <alice@example.org>\r\n" +
	"To: bob@example.org\r\n" +
	"Subject: Lunch tomorrow?\r\n" +
	"\r\n" +
	"See you at noon.\r\n"

func multipartMessage() string {
	doc := base64.StdEncoding.EncodeToString([]byte("%PDF-1.4\n<< /S /URI /URI (http://10.0.0.7/pay) >>\n"))
	return "From: Billing <billing@corp.example>\r\n" +
		"Reply-To: billing@corp.example\r\n" +
		"Subject: =?utf-8?q?Invoice_attached?=\r\n" +
		"Message-ID: <m2@corp.example>\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/mixed; boundary=\"XYZ\"\r\n" +
		"\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Your invoice is at https://portal.example.com/inv/42\r\n" +
		"--XYZ\r\n" +
		"Content-Type: application/octet-stream\r\n" +
		"Content-Disposition: attachment; filename=\"invoice.pdf\"\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		doc + "\r\n" +
		"--XYZ--\r\n"
}

func TestParseMessage(t *testing.T) {
	msg, err := ParseMessage([]byte(multipartMessage()))
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}

	if msg.Subject != "Invoice attached" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if msg.MessageID != "<m2@corp.example>" {
		t.Errorf("MessageID = %q", msg.MessageID)
	}
	if msg.Headers == nil || !strings.Contains(msg.Headers.From, "billing@corp.example") {
		t.Errorf("Headers = %+v", msg.Headers)
	}
	if len(msg.URLs) != 1 || msg.URLs[0] != "https://portal.example.com/inv/42" {
		t.Errorf("URLs = %v", msg.URLs)
	}
	if len(msg.Attachments) != 1 {
		t.Fatalf("Attachments = %d, want 1", len(msg.Attachments))
	}
	att := msg.Attachments[0]
	if att.FileName != "invoice.pdf" || att.ContentType != "application/pdf" || !att.IsPDF() {
		t.Errorf("attachment = %s %s", att.FileName, att.ContentType)
	}
}

func TestParseMessageWithoutSenderHeaders(t *testing.T) {
	msg, err := ParseMessage([]byte("Subject: hi\r\n\r\nbody\r\n"))
	if err != nil {
		t.Fatal(err)
	}
	if msg.Headers != nil {
		t.Errorf("Headers = %+v, want nil", msg.Headers)
	}
}

func TestSplitMessage(t *testing.T) {
	h, b := splitMessage([]byte("A: 1\r\nB: 2\r\n\r\nbody"))
	if string(h) != "A: 1\r\nB: 2\r\n\r\n" || string(b) != "body" {
		t.Errorf("CRLF split = %q / %q", h, b)
	}
	h, b = splitMessage([]byte("A: 1\n\nbody"))
	if string(h) != "A: 1\n\n" || string(b) != "body" {
		t.Errorf("LF split = %q / %q", h, b)
	}
	h, b = splitMessage([]byte("A: 1"))
	if string(h) != "A: 1" || b != nil {
		t.Errorf("header-only split = %q / %q", h, b)
	}
}

func TestReplaceSubject(t *testing.T) {
	folded := "From: a@b.test\r\nSubject: first\r\n second\r\nTo: c@d.test\r\n\r\n"
	got := string(replaceSubject([]byte(folded), "[X] new"))
	want := "From: a@b.test\r\nSubject: [X] new\r\nTo: c@d.test\r\n\r\n"
	if got != want {
		t.Errorf("replaceSubject folded =\n%q\nwant\n%q", got, want)
	}

	missing := "From: a@b.test\r\n\r\n"
	got = string(replaceSubject([]byte(missing), "added"))
	if got != "From: a@b.test\r\nSubject: added\r\n\r\n" {
		t.Errorf("replaceSubject missing = %q", got)
	}

	got = string(replaceSubject([]byte("Subject: x\r\n\r\n"), "Zahlung fällig"))
	if !strings.HasPrefix(got, "Subject: =?utf-8?q?") {
		t.Errorf("non-ASCII subject not encoded: %q", got)
	}
}

func TestProcessRejectsPhishing(t *testing.T) {
	f := NewPostfixFilter(newService(), zap.NewNop(), PostfixOptions{BlockPhishing: true})

	out, result, err := f.Process(context.Background(), []byte(phishingMessage))
	if out != nil {
		t.Error("rejected message must not be returned")
	}
	var smtpErr *smtp.SMTPError
	if !errors.As(err, &smtpErr) || smtpErr.Code != 550 {
		t.Fatalf("err = %v, want 550 SMTP error", err)
	}
	if result == nil || result.Email.Label != core.LabelPhishing {
		t.Errorf("result = %+v", result)
	}
}

func TestProcessStampsHeadersAndTagsSubject(t *testing.T) {
	f := NewPostfixFilter(newService(), zap.NewNop(), PostfixOptions{ModifySubject: true})

	out, _, err := f.Process(context.Background(), []byte(phishingMessage))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	s := string(out)
	for _, want := range []string{
		"X-Threat-Label: phishing\r\n",
		"X-Threat-Score: 9.00\r\n",
		"X-Threat-Confidence: 0.600\r\n",
		"X-Threat-Reasons: Urgency language detected (1 patterns); From/Reply-To mismatch: corp.example vs elsewhere.test\r\n",
		"Subject: [**PHISHING**] Final warning\r\n",
		"\r\n\r\nReply with your details.\r\n",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
	if !strings.HasPrefix(s, "X-Threat-Label:") {
		t.Error("verdict headers must be prepended")
	}
}

func TestProcessLeavesLegitSubject(t *testing.T) {
	f := NewPostfixFilter(newService(), zap.NewNop(), PostfixOptions{ModifySubject: true, BlockPhishing: true})

	out, result, err := f.Process(context.Background(), []byte(legitMessage))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Email.Label != core.LabelLegit {
		t.Errorf("Label = %s", result.Email.Label)
	}
	if !strings.Contains(string(out), "Subject: Lunch tomorrow?\r\n") {
		t.Errorf("subject modified for legit mail:\n%s", out)
	}
	if !strings.Contains(string(out), "X-Threat-Reasons: No suspicious patterns detected\r\n") {
		t.Errorf("missing reasons header:\n%s", out)
	}
}

func TestSessionDataReinjects(t *testing.T) {
	f := NewPostfixFilter(newService(), zap.NewNop(), PostfixOptions{PostfixEnabled: true})

	var gotSender string
	var gotRcpts []string
	var gotData []byte
	f.deliver = func(sender string, recipients []string, data []byte) error {
		gotSender, gotRcpts, gotData = sender, recipients, data
		return nil
	}

	s := &smtpSession{filter: f}
	if err := s.Mail("alice@example.org", nil); err != nil {
		t.Fatal(err)
	}
	if err := s.Rcpt("bob@example.org", nil); err != nil {
		t.Fatal(err)
	}
	if err := s.Data(strings.NewReader(legitMessage)); err != nil {
		t.Fatalf("Data: %v", err)
	}

	if gotSender != "alice@example.org" || len(gotRcpts) != 1 || gotRcpts[0] != "bob@example.org" {
		t.Errorf("envelope = %q %v", gotSender, gotRcpts)
	}
	if !bytes.HasPrefix(gotData, []byte("X-Threat-Label: legit\r\n")) {
		t.Errorf("reinjected data = %q", gotData)
	}

	s.Reset()
	if s.sender != "" || s.recipients != nil {
		t.Error("Reset did not clear the envelope")
	}
}

func TestSessionDataDeliveryFailureIsTemporary(t *testing.T) {
	f := NewPostfixFilter(newService(), zap.NewNop(), PostfixOptions{PostfixEnabled: true})
	f.deliver = func(string, []string, []byte) error { return errors.New("connection refused") }

	s := &smtpSession{filter: f}
	err := s.Data(strings.NewReader(legitMessage))
	var smtpErr *smtp.SMTPError
	if !errors.As(err, &smtpErr) || smtpErr.Code != 451 {
		t.Errorf("err = %v, want 451", err)
	}
}

func TestCliProcessURL(t *testing.T) {
	var out bytes.Buffer
	cli := NewCliFilter(newService(), zap.NewNop(), &out, true, false)

	res, err := cli.ProcessURL(context.Background(), "http://192.168.1.1/login")
	if err != nil {
		t.Fatal(err)
	}
	if res.Risk != core.RiskHigh {
		t.Errorf("Risk = %s", res.Risk)
	}
	for _, want := range []string{"Risk: high (6.5/15)", "  - Uses IP address instead of domain", "IP host: true"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestCliJSONOutput(t *testing.T) {
	var out bytes.Buffer
	cli := NewCliFilter(newService(), zap.NewNop(), &out, false, true)

	if _, err := cli.ProcessEmail(context.Background(), []byte(phishingMessage)); err != nil {
		t.Fatal(err)
	}

	var decoded core.MessageResult
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if decoded.Email.Label != core.LabelPhishing || decoded.MessageID != "<p1@corp.example>" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestCliProcessPDF(t *testing.T) {
	var out bytes.Buffer
	cli := NewCliFilter(newService(), zap.NewNop(), &out, false, false)

	res, err := cli.ProcessPDF(context.Background(), []byte("not a pdf"))
	if err != nil {
		t.Fatal(err)
	}
	if res.RiskScore != 5 {
		t.Errorf("RiskScore = %v", res.RiskScore)
	}
	if !strings.Contains(out.String(), "Risk score: 5.0/20") {
		t.Errorf("output:\n%s", out.String())
	}
}
