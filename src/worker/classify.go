package worker

import (
	"screen-translate/src/status"
	"screen-translate/src/translator"
)

// FailureKind is the user-facing outcome of a failed translation.
type FailureKind int

const (
	ServerNotStarted FailureKind = iota
	ServerStillLoading
	ServerCrashedOrUnreachable
	LocalUnavailable
	RemoteAPIError
)

func (k FailureKind) String() string {
	switch k {
	case ServerNotStarted:
		return "server-not-started"
	case ServerStillLoading:
		return "server-still-loading"
	case ServerCrashedOrUnreachable:
		return "server-crashed-or-unreachable"
	case LocalUnavailable:
		return "local-unavailable"
	default:
		return "remote-api-error"
	}
}

const (
	MsgServerNotStarted = "⚠️ LibreTranslate failed to start\n" +
		"Check libretranslate.log in app data folder"
	MsgServerStillLoading = "⏳ LibreTranslate is loading...\n" +
		"First launch may take a few minutes\n" +
		"to download language models"
	MsgServerCrashed = "⚠️ Cannot connect to LibreTranslate\n" +
		"Server may have crashed.\n" +
		"Check libretranslate.log for details"
	MsgLocalUnavailable = "⚠️ Translation Unavailable\n" +
		"Check if app installed correctly"
	remoteAPIPrefix = "⚠️ API Error:\n"
)

// Failure is a classified translation error. Error returns the text shown
// in place of a translation.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string { return FailureMessage(f.Kind, f.Err) }

func (f *Failure) Unwrap() error { return f.Err }

// Classify maps a failed call to exactly one outcome. The branch order is
// the contract: a failed local service wins over any transport detail.
func Classify(st status.Status, loopback bool, err error) FailureKind {
	connectivity := translator.IsConnectivity(err)
	switch {
	case st == status.Failed:
		return ServerNotStarted
	case loopback && connectivity && st == status.Starting:
		return ServerStillLoading
	case loopback && connectivity:
		return ServerCrashedOrUnreachable
	case loopback:
		return LocalUnavailable
	default:
		return RemoteAPIError
	}
}

// FailureMessage renders the text shown in place of a translation.
func FailureMessage(kind FailureKind, err error) string {
	switch kind {
	case ServerNotStarted:
		return MsgServerNotStarted
	case ServerStillLoading:
		return MsgServerStillLoading
	case ServerCrashedOrUnreachable:
		return MsgServerCrashed
	case LocalUnavailable:
		return MsgLocalUnavailable
	default:
		if err == nil {
			return remoteAPIPrefix + "unknown error"
		}
		return remoteAPIPrefix + err.Error()
	}
}
