// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package notify renders and delivers assembly emails.

Messages are written as markdown and converted to HTML with goldmark. The
wording of each reminder kind lives in the embedded tones.yaml; the 7-day and
3-day reminders are gentle, the 1-day and same-day ones urgent.

Delivery goes through a Sender. NewSender picks SMTP when SMTP_ENABLED is set,
the Resend HTTP API when RESEND_API_KEY is present, and a logging sender
otherwise.
*/
package notify
