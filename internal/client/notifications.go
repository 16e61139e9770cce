package client

import "log"

// NotificationKind classifies user-visible notices from the sync layer.
type NotificationKind string

const (
	NoticeConnectionLost     NotificationKind = "connectionLost"
	NoticeConnectionRestored NotificationKind = "connectionRestored"
	NoticeSubmissionFailed   NotificationKind = "submissionFailed"
	NoticeServerError        NotificationKind = "serverError"
)

// Notification is a non-blocking, user-visible notice.
type Notification struct {
	Kind    NotificationKind
	Message string
}

// NotificationSink receives notices. It is injected at construction so
// UIs decide how to present them; there is no process-wide singleton.
type NotificationSink interface {
	Notify(n Notification)
}

// LogSink writes notices to the standard logger.
type LogSink struct{}

func (LogSink) Notify(n Notification) {
	log.Printf("notice [%s]: %s", n.Kind, n.Message)
}

// NopSink discards notices; useful in tests.
type NopSink struct{}

func (NopSink) Notify(Notification) {}
