package orchestrator

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notifier receives user feedback.
type Notifier interface {
	Notify(kind NoticeKind, message string)
}

type NotifierFunc func(kind NoticeKind, message string)

func (f NotifierFunc) Notify(kind NoticeKind, message string) { f(kind, message) }

type discardNotifier struct{}

func (discardNotifier) Notify(NoticeKind, string) {}
