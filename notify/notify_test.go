// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/hoa-assembly/cliparse"
	"github.com/danielhkuo/hoa-assembly/models"
)

func TestEmbeddedTonesCoverEveryKind(t *testing.T) {
	for _, kind := range models.ReminderKinds {
		tone, err := ToneFor(kind)
		if err != nil {
			t.Fatalf("ToneFor(%s) error = %v", kind, err)
		}
		if tone.Subject == "" || tone.Intro == "" {
			t.Errorf("tone for %s is incomplete: %+v", kind, tone)
		}
	}

	urgent := map[models.ReminderKind]bool{models.Reminder1Day: true, models.ReminderSameDay: true}
	for _, kind := range []models.ReminderKind{models.Reminder7Days, models.Reminder3Days, models.Reminder1Day, models.ReminderSameDay} {
		tone, _ := ToneFor(kind)
		if tone.Urgent != urgent[kind] {
			t.Errorf("tone %s urgent = %v, want %v", kind, tone.Urgent, urgent[kind])
		}
	}
}

func TestParseTones(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"unknown kind", "weekly:\n  subject: x\n", true},
		{"missing kinds", "initial:\n  subject: x\n", true},
		{"bad yaml", "initial: [", true},
		{"embedded", string(tonesYAML), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTones([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseTones() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRenderReminder(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	data := ReminderData{
		Assembly: models.Assembly{
			Title:       "Spring assembly",
			ScheduledAt: now.Add(72 * time.Hour),
			Location:    "Lobby",
		},
		AgendaTitles:    []string{"Budget", "Roof repair"},
		RecipientName:   "Ana",
		ApartmentNumber: "2B",
		Mills:           1250,
		VoteLinks:       []VoteLink{{Title: "Roof repair", URL: "http://localhost/votes/v1"}},
		Now:             now,
		Location:        time.UTC,
	}

	msg, err := RenderReminder(models.Reminder3Days, "ana@example.com", data)
	if err != nil {
		t.Fatalf("RenderReminder() error = %v", err)
	}
	if msg.To != "ana@example.com" {
		t.Errorf("To = %q", msg.To)
	}
	if !strings.HasSuffix(msg.Subject, ": Spring assembly") {
		t.Errorf("Subject = %q", msg.Subject)
	}
	for _, want := range []string{"Ana", "1,250 mills", "Roof repair", `href="http://localhost/votes/v1"`, "from now", "Lobby"} {
		if !strings.Contains(msg.HTML, want) {
			t.Errorf("HTML missing %q:\n%s", want, msg.HTML)
		}
	}

	data.VoteLinks = nil
	msg, err = RenderReminder(models.ReminderSameDay, "ana@example.com", data)
	if err != nil {
		t.Fatalf("RenderReminder() error = %v", err)
	}
	if strings.Contains(msg.HTML, "Cast your vote") {
		t.Error("HTML should not contain a vote link when voting is closed")
	}
	if !strings.Contains(msg.HTML, "<strong>") {
		t.Error("urgent reminder should use a bold headline")
	}
}

func TestRenderVoteConfirmation(t *testing.T) {
	msg, err := RenderVoteConfirmation("bo@example.com", ConfirmationData{
		AssemblyTitle:   "Spring assembly",
		ItemTitle:       "Budget",
		Choice:          models.ChoiceApprove,
		Source:          models.SourcePreVote,
		ApartmentNumber: "1A",
		Mills:           300,
	})
	if err != nil {
		t.Fatalf("RenderVoteConfirmation() error = %v", err)
	}
	if msg.Subject != "Vote recorded: Budget" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.HTML, "approve") || !strings.Contains(msg.HTML, "Dear owner") {
		t.Errorf("unexpected HTML:\n%s", msg.HTML)
	}
}

func TestMarkdownToHTML(t *testing.T) {
	html, err := MarkdownToHTML("# Minutes\n\n*Approved* unanimously.")
	if err != nil {
		t.Fatalf("MarkdownToHTML() error = %v", err)
	}
	if !strings.Contains(html, "<h1>Minutes</h1>") || !strings.Contains(html, "<em>Approved</em>") {
		t.Errorf("unexpected HTML: %s", html)
	}
}

func TestResendSender(t *testing.T) {
	var got resendRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if got.To[0] == "fail@example.com" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := &ResendSender{
		cfg:      cliparse.EmailConfig{FromEmail: "from@example.com", ResendAPIKey: "key"},
		client:   srv.Client(),
		endpoint: srv.URL,
	}

	if err := s.Send(context.Background(), Message{To: "to@example.com", Subject: "Hi", HTML: "<p>x</p>"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if auth != "Bearer key" {
		t.Errorf("Authorization = %q", auth)
	}
	if got.From != "from@example.com" || got.Subject != "Hi" {
		t.Errorf("request = %+v", got)
	}

	if err := s.Send(context.Background(), Message{To: "fail@example.com"}); err == nil {
		t.Error("Send() expected error for 4xx response")
	}
}

func TestNewSender(t *testing.T) {
	if _, ok := NewSender(cliparse.EmailConfig{}).(LogSender); !ok {
		t.Error("expected LogSender without configuration")
	}
	if _, ok := NewSender(cliparse.EmailConfig{ResendAPIKey: "k"}).(*ResendSender); !ok {
		t.Error("expected ResendSender with API key")
	}
	if _, ok := NewSender(cliparse.EmailConfig{SMTPEnabled: true, ResendAPIKey: "k"}).(*SMTPSender); !ok {
		t.Error("expected SMTPSender when SMTP is enabled")
	}
}

func TestSMTPMessage(t *testing.T) {
	tests := []struct {
		name    string
		to      string
		subject string
		want    string
	}{
		{"plain", "owner@example.com", "Reminder: Annual meeting", "Reminder: Annual meeting"},
		{"line break in subject", "owner@example.com", "Roof\r\nBcc: attacker@example.com", "Roof Bcc: attacker@example.com"},
		{"line break in recipient", "owner@example.com\nBcc: attacker@example.com", "Hi", "Hi"},
		{"non-ascii subject", "owner@example.com", "Réunion générale", "Réunion générale"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := smtpMessage("HOA <hoa@example.com>", Message{To: tt.to, Subject: tt.subject, HTML: "<p>body</p>"})

			parsed, err := mail.ReadMessage(bytes.NewReader(raw))
			if err != nil {
				t.Fatalf("ReadMessage: %v", err)
			}
			if bcc := parsed.Header.Get("Bcc"); bcc != "" {
				t.Errorf("injected Bcc header %q", bcc)
			}
			subject, err := new(mime.WordDecoder).DecodeHeader(parsed.Header.Get("Subject"))
			if err != nil {
				t.Fatalf("DecodeHeader: %v", err)
			}
			if subject != tt.want {
				t.Errorf("Subject = %q, want %q", subject, tt.want)
			}
			body, err := io.ReadAll(parsed.Body)
			if err != nil {
				t.Fatal(err)
			}
			if string(body) != "<p>body</p>" {
				t.Errorf("body = %q", body)
			}
		})
	}
}
