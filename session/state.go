package session

import (
	"fluent/apperr"
	"fluent/audio"
)

type Phase int

const (
	Idle Phase = iota
	Recording
	Analyzing
	Ready
)

func (p Phase) String() string {
	switch p {
	case Recording:
		return "recording"
	case Analyzing:
		return "analyzing"
	case Ready:
		return "ready"
	default:
		return "idle"
	}
}

// State is a snapshot of the live session.
type State struct {
	ID       string
	Phase    Phase
	Sentence string

	// PlayingReference is independent of Phase.
	PlayingReference bool
	PlayingRecording bool

	Clip        *audio.Clip
	HasHandle   bool
	Feedback    string
	FeedbackErr apperr.Kind // set when Feedback is a placeholder
}

// AnalysisComplete reports whether feedback for the current clip is in.
func (s State) AnalysisComplete() bool {
	return s.Phase == Ready && s.Feedback != ""
}

type Level int

const (
	Info Level = iota
	Error
)

// Notification is a short user-facing message.
type Notification struct {
	Level Level
	Kind  apperr.Kind
	Title string
	Body  string
}

// Sink receives controller events in mutation order. Implementations must
// not call back into mutating Controller methods synchronously.
type Sink interface {
	StateChanged(State)
	Notify(Notification)
}

type nopSink struct{}

func (nopSink) StateChanged(State)  {}
func (nopSink) Notify(Notification) {}

func info(title, body string) Notification {
	return Notification{Level: Info, Title: title, Body: body}
}

func failure(kind apperr.Kind, title, body string) Notification {
	return Notification{Level: Error, Kind: kind, Title: title, Body: body}
}

func micFailure(err error) Notification {
	kind := apperr.KindOf(err)
	if kind == apperr.PermissionDenied {
		return failure(kind, "Microphone Error", "Please allow microphone access to record your pronunciation")
	}
	return failure(kind, "Microphone Error", "No usable microphone was found. Check the input device and try again")
}
