package models

// NotificationKind distinguishes success and error toasts.
type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
)

// Notification is a transient message for the presentation layer.
type Notification struct {
	Message string
	Kind    NotificationKind
}

func Success(msg string) Notification {
	return Notification{Message: msg, Kind: NotificationSuccess}
}

func Failure(msg string) Notification {
	return Notification{Message: msg, Kind: NotificationError}
}
