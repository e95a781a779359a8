package middleware

import (
	"strconv"
	"sync"
)

// Per-session stream guard. A visitor session carries at most one live
// answer stream; a second stream opened for the same (chatbot, session)
// pair is refused instead of queued, so the widget reconnecting cleanly
// replaces nothing mid-flight.
var (
	sgMu    sync.Mutex
	streams = map[string]struct{}{}
)

func streamKey(chatbotID uint, sessionID string) string {
	return strconv.FormatUint(uint64(chatbotID), 10) + "#" + sessionID
}

// TryAcquireStream reserves the stream slot for a session. It returns a
// release func and true on success, or nil and false when a stream for
// the same session is already live.
func TryAcquireStream(chatbotID uint, sessionID string) (func(), bool) {
	key := streamKey(chatbotID, sessionID)
	sgMu.Lock()
	defer sgMu.Unlock()
	if _, busy := streams[key]; busy {
		return nil, false
	}
	streams[key] = struct{}{}
	released := false
	return func() {
		sgMu.Lock()
		defer sgMu.Unlock()
		if !released {
			released = true
			delete(streams, key)
		}
	}, true
}
