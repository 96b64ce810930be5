package resultboard

import "github.com/jpalmerr/resultboard/normalize"

// GetResults returns a copy of the items filed under (sessionID, messageID).
// The result is empty, never nil, when the key is absent.
func (s *Store) GetResults(sessionID, messageID string) []ResultItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.results[sessionID][messageID], "")
}

// GetCurrentResults returns the items of the current (session, message).
func (s *Store) GetCurrentResults() []ResultItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked("")
}

// GetResultsByType is [Store.GetResults] filtered to one type.
func (s *Store) GetResultsByType(sessionID, messageID string, t normalize.Type) []ResultItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.results[sessionID][messageID], t)
}

// GetCurrentResultsByType is [Store.GetCurrentResults] filtered to one type.
func (s *Store) GetCurrentResultsByType(t normalize.Type) []ResultItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked(t)
}

// HasData reports whether any item is filed under (sessionID, messageID).
func (s *Store) HasData(sessionID, messageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results[sessionID][messageID]) > 0
}

// HasCurrentData reports whether the current key has any item.
func (s *Store) HasCurrentData() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentSession == "" {
		return false
	}
	return len(s.results[s.currentSession][s.currentMessage]) > 0
}

func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// PendingRequestID returns the awaited request, or "" when none is pending.
func (s *Store) PendingRequestID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingRequest
}

// GetError returns the user-facing error message, or "".
func (s *Store) GetError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		return ""
	}
	return s.err.Message
}

// GetErrorInfo returns a copy of the structured error, or nil.
func (s *Store) GetErrorInfo() *ErrorInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err.clone()
}

// GetCurrentSession returns the current session ID, or "" when unset.
func (s *Store) GetCurrentSession() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentSession
}

// GetCurrentMessage returns the current message ID, or "" when unset.
func (s *Store) GetCurrentMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentMessage
}

// Snapshot returns a deep copy of the whole state, the same value that
// subscribers receive.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// CurrentView returns the current key, its status and its items.
func (s *Store) CurrentView() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		SessionID: s.currentSession,
		MessageID: s.currentMessage,
		IsLoading: s.loading,
		Error:     s.err.clone(),
		Items:     s.currentLocked(""),
	}
}

func (s *Store) currentLocked(t normalize.Type) []ResultItem {
	if s.currentSession == "" {
		return []ResultItem{}
	}
	return cloneItems(s.results[s.currentSession][s.currentMessage], t)
}

func (s *Store) snapshotLocked() State {
	return State{
		Results:          cloneResults(s.results),
		CurrentSessionID: s.currentSession,
		CurrentMessageID: s.currentMessage,
		IsLoading:        s.loading,
		PendingRequestID: s.pendingRequest,
		Error:            s.err.clone(),
	}
}

// cloneItems deep-copies items, keeping only type t unless t is empty.
func cloneItems(items []ResultItem, t normalize.Type) []ResultItem {
	out := make([]ResultItem, 0, len(items))
	for _, it := range items {
		if t != "" && it.Type != t {
			continue
		}
		out = append(out, it.clone())
	}
	return out
}

func cloneResults(in map[string]map[string][]ResultItem) map[string]map[string][]ResultItem {
	out := make(map[string]map[string][]ResultItem, len(in))
	for sid, messages := range in {
		m := make(map[string][]ResultItem, len(messages))
		for mid, items := range messages {
			m[mid] = cloneItems(items, "")
		}
		out[sid] = m
	}
	return out
}

func cloneState(st State) State {
	st.Results = cloneResults(st.Results)
	st.Error = st.Error.clone()
	return st
}

// View returns the current key of st with its status and items. The items
// share memory with st.
func (st State) View() View {
	v := View{
		SessionID: st.CurrentSessionID,
		MessageID: st.CurrentMessageID,
		IsLoading: st.IsLoading,
		Error:     st.Error,
		Items:     []ResultItem{},
	}
	if st.CurrentSessionID == "" {
		return v
	}
	if items := st.Results[st.CurrentSessionID][st.CurrentMessageID]; items != nil {
		v.Items = items
	}
	return v
}
