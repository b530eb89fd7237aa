// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package notify

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"

	"github.com/danielhkuo/hoa-assembly/models"
)

// MarkdownToHTML renders markdown to HTML.
func MarkdownToHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("notify: render markdown: %w", err)
	}
	return buf.String(), nil
}

// VoteLink points a recipient at the ballot of one agenda item.
type VoteLink struct {
	Title string
	URL   string
}

// ReminderData is everything a reminder email shows its recipient.
type ReminderData struct {
	Assembly        models.Assembly
	AgendaTitles    []string
	RecipientName   string
	ApartmentNumber string
	Mills           int64
	VoteLinks       []VoteLink // empty when voting is not open
	Now             time.Time
	Location        *time.Location
}

var funcs = template.FuncMap{
	"comma": humanize.Comma,
	"inc":   func(i int) int { return i + 1 },
	"when": func(t, now time.Time) string {
		return humanize.RelTime(t, now, "ago", "from now")
	},
	"local": func(t time.Time, loc *time.Location) string {
		if loc == nil {
			loc = time.UTC
		}
		return t.In(loc).Format("Monday 2 January 2006, 15:04 MST")
	},
}

var reminderTmpl = template.Must(template.New("reminder").Funcs(funcs).Parse(
	`{{if .Tone.Urgent}}**{{.Tone.Headline}}**{{else}}# {{.Tone.Headline}}{{end}}

Dear {{if .Data.RecipientName}}{{.Data.RecipientName}}{{else}}owner{{end}},

{{.Tone.Intro}}

- **Assembly:** {{.Data.Assembly.Title}}
- **When:** {{local .Data.Assembly.ScheduledAt .Data.Location}} ({{when .Data.Assembly.ScheduledAt .Data.Now}})
{{- if .Data.Assembly.Location}}
- **Where:** {{.Data.Assembly.Location}}
{{- end}}
{{- if .Data.Assembly.MeetingLink}}
- **Online:** {{.Data.Assembly.MeetingLink}}
{{- end}}
- **Apartment:** {{.Data.ApartmentNumber}} ({{comma .Data.Mills}} mills)
{{if .Data.AgendaTitles}}
## Agenda
{{range $i, $t := .Data.AgendaTitles}}
{{inc $i}}. {{$t}}
{{- end}}
{{end}}
{{- if .Data.VoteLinks}}
## Cast your vote
{{range .Data.VoteLinks}}
- [{{.Title}}]({{.URL}})
{{- end}}
{{end}}
{{.Tone.Closing}}
`))

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// RenderReminder builds the email of one reminder kind.
func RenderReminder(kind models.ReminderKind, to string, data ReminderData) (Message, error) {
	tone, err := ToneFor(kind)
	if err != nil {
		return Message{}, err
	}
	var md strings.Builder
	if err := reminderTmpl.Execute(&md, struct {
		Tone Tone
		Data ReminderData
	}{tone, data}); err != nil {
		return Message{}, fmt.Errorf("notify: render %s reminder: %w", kind, err)
	}
	html, err := MarkdownToHTML(md.String())
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: tone.Subject + ": " + data.Assembly.Title,
		HTML:    html,
	}, nil
}

// ConfirmationData describes a recorded ballot.
type ConfirmationData struct {
	AssemblyTitle   string
	ItemTitle       string
	Choice          string
	Source          string
	ApartmentNumber string
	Mills           int64
	RecipientName   string
}

var confirmationTmpl = template.Must(template.New("confirmation").Funcs(funcs).Parse(
	`# Your vote was recorded

Dear {{if .RecipientName}}{{.RecipientName}}{{else}}owner{{end}},

Your ballot for **{{.ItemTitle}}** in *{{.AssemblyTitle}}* has been recorded.

- **Vote:** {{.Choice}}
- **Apartment:** {{.ApartmentNumber}} ({{comma .Mills}} mills)
- **Cast as:** {{.Source}}
`))

// RenderVoteConfirmation builds the email confirming a ballot.
func RenderVoteConfirmation(to string, data ConfirmationData) (Message, error) {
	var md strings.Builder
	if err := confirmationTmpl.Execute(&md, data); err != nil {
		return Message{}, fmt.Errorf("notify: render confirmation: %w", err)
	}
	html, err := MarkdownToHTML(md.String())
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "Vote recorded: " + data.ItemTitle,
		HTML:    html,
	}, nil
}
