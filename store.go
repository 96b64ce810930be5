package resultboard

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/resultboard/normalize"
)

// Store holds analysis results scoped by session and message.
//
// Store is safe for concurrent use. Every mutation is queued and applied in
// call order by whichever caller finds the queue idle; a mutation made from
// inside a subscriber or listener is applied after the current one finishes
// its notifications. Events and state notifications are delivered outside
// the store's lock, so handlers may call back into the store.
//
// The typical lifecycle is:
//
//	store, err := resultboard.New(resultboard.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	unsubscribe := store.Subscribe(func(st resultboard.State) { render(st) })
//	defer unsubscribe()
//
//	store.SwitchSession("s1")
//	store.SetLoading(true, "r1", "m1")
//	store.UpdateResults(batch)
type Store struct {
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
	metrics *storeMetrics

	mu             sync.Mutex
	results        map[string]map[string][]ResultItem
	currentSession string
	currentMessage string
	loading        bool
	pendingRequest string
	err            *ErrorInfo

	queueMu  sync.Mutex
	queue    []op
	draining bool

	listenersMu      sync.Mutex
	subscribers      listenerSet[State]
	listeners        map[EventType]*listenerSet[Event]
	fixedSubscribers []func(State)
}

// op mutates store state with s.mu held. It returns the events to emit and
// whether subscribers should be notified.
type op func() (events []Event, changed bool)

// New creates an empty [Store].
//
// Returns an error if any option is invalid.
//
// Example:
//
//	store, err := resultboard.New(
//	    resultboard.WithLogger(logger),
//	    resultboard.WithRegisterer(prometheus.DefaultRegisterer),
//	)
func New(opts ...Option) (*Store, error) {
	cfg := &storeConfig{
		clock: time.Now,
		newID: newULID,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		logger:           logger,
		now:              cfg.clock,
		newID:            cfg.newID,
		metrics:          newStoreMetrics(cfg.registerer),
		results:          make(map[string]map[string][]ResultItem),
		listeners:        make(map[EventType]*listenerSet[Event]),
		fixedSubscribers: cfg.subscribers,
	}, nil
}

// UpdateResults queues a batch and applies queued batches in arrival order.
//
// A batch is dropped as stale when a request is pending and the batch's
// RequestID differs. A batch carrying items for another (session, message)
// makes that key current without emitting navigation events. When the
// target message is new and its session already holds other messages,
// those messages are cleared first. Items are normalized and upserted by
// ID; items that fail normalization are logged and dropped. A complete
// batch clears loading, the pending request and the error.
//
// A batch without a SessionID or MessageID targets the current one.
func (s *Store) UpdateResults(b Batch) {
	prepared, failures := s.prepareItems(b.Items, SourceRealtime)
	s.submit(func() ([]Event, bool) {
		return s.applyBatch(b, prepared, failures), true
	})
}

func (s *Store) applyBatch(b Batch, items []ResultItem, failures []itemFailure) []Event {
	log := s.logger.With("request_id", b.RequestID)

	if s.pendingRequest != "" && b.RequestID != s.pendingRequest {
		s.metrics.batches.WithLabelValues("stale").Inc()
		log.Debug("dropping stale batch",
			"pending_request_id", s.pendingRequest,
			"item_count", len(b.Items),
		)
		return nil
	}

	sessionID, messageID := b.SessionID, b.MessageID
	if sessionID == "" {
		sessionID = s.currentSession
	}
	if messageID == "" {
		messageID = s.currentMessage
	}
	if sessionID == "" {
		s.metrics.batches.WithLabelValues("stale").Inc()
		log.Warn("dropping batch without a session", "item_count", len(b.Items))
		return nil
	}
	log = log.With("session_id", sessionID, "message_id", messageID)

	if len(b.Items) > 0 && (sessionID != s.currentSession || messageID != s.currentMessage) {
		log.Debug("following batch to new key",
			"previous_session_id", s.currentSession,
			"previous_message_id", s.currentMessage,
		)
		s.currentSession = sessionID
		s.currentMessage = messageID
	}

	if len(items) > 0 {
		messages := s.results[sessionID]
		if _, known := messages[messageID]; !known && len(messages) > 0 {
			log.Debug("clearing previous messages of session", "message_count", len(messages))
			messages = nil
		}
		if messages == nil {
			messages = make(map[string][]ResultItem)
			s.results[sessionID] = messages
		}
		messages[messageID] = upsert(messages[messageID], items, sessionID, messageID)
	}

	for _, f := range failures {
		log.Warn("dropping result item", "item_id", f.id, "item_type", f.typ, "error", f.err.Error())
	}
	s.metrics.items.WithLabelValues("stored").Add(float64(len(items)))
	s.metrics.items.WithLabelValues("dropped").Add(float64(len(failures)))
	s.metrics.batches.WithLabelValues("applied").Inc()

	if b.IsComplete {
		s.loading = false
		s.pendingRequest = ""
		s.err = nil
	}

	log.Debug("batch applied",
		"stored", len(items),
		"dropped", len(failures),
		"complete", b.IsComplete,
	)
	return nil
}

// upsert replaces items with a matching ID and appends the rest.
func upsert(list []ResultItem, items []ResultItem, sessionID, messageID string) []ResultItem {
	index := make(map[string]int, len(list))
	for i, it := range list {
		index[it.ID] = i
	}
	for _, it := range items {
		it.Metadata.SessionID = sessionID
		it.Metadata.MessageID = messageID
		if i, ok := index[it.ID]; ok {
			list[i] = it
			continue
		}
		index[it.ID] = len(list)
		list = append(list, it)
	}
	return list
}

type itemFailure struct {
	index int
	id    string
	typ   string
	err   error
}

func (f itemFailure) String() string {
	if f.id != "" {
		return fmt.Sprintf("item %d (%s): %v", f.index, f.id, f.err)
	}
	return fmt.Sprintf("item %d: %v", f.index, f.err)
}

// prepareItems normalizes raw items. It touches no store state.
func (s *Store) prepareItems(raw []RawItem, source Source) ([]ResultItem, []itemFailure) {
	now := s.now()
	items := make([]ResultItem, 0, len(raw))
	var failures []itemFailure
	for i, r := range raw {
		item, err := s.prepareItem(r, source, now)
		if err != nil {
			failures = append(failures, itemFailure{index: i, id: r.ID, typ: r.Type, err: err})
			continue
		}
		items = append(items, item)
	}
	return items, failures
}

func (s *Store) prepareItem(r RawItem, source Source, now time.Time) (ResultItem, error) {
	t, ok := normalize.ParseType(r.Type)
	if !ok {
		return ResultItem{}, fmt.Errorf("unknown item type %q", r.Type)
	}
	payload, err := normalize.Normalize(t, r.Data)
	if err != nil {
		return ResultItem{}, err
	}

	item := ResultItem{
		ID:       r.ID,
		Type:     t,
		Data:     payload,
		Metadata: r.Metadata,
		Source:   source,
	}
	if item.ID == "" {
		item.ID = s.newID()
	}
	if item.Metadata.Timestamp == 0 {
		item.Metadata.Timestamp = now.UnixMilli()
	}
	if source != SourceRestored && r.Source.Valid() {
		item.Source = r.Source
	}
	return item, nil
}

// ClearResults removes one message's items, or a whole session's items
// when messageID is empty.
func (s *Store) ClearResults(sessionID, messageID string) {
	s.submit(func() ([]Event, bool) {
		if messageID == "" {
			delete(s.results, sessionID)
			return nil, true
		}
		if messages, ok := s.results[sessionID]; ok {
			delete(messages, messageID)
			if len(messages) == 0 {
				delete(s.results, sessionID)
			}
		}
		return nil, true
	})
}

// ClearAll resets the store to its initial state. Subscribers and listeners
// stay registered.
func (s *Store) ClearAll() {
	s.submit(func() ([]Event, bool) {
		s.clearLocked()
		return nil, true
	})
}

func (s *Store) clearLocked() {
	s.results = make(map[string]map[string][]ResultItem)
	s.currentSession = ""
	s.currentMessage = ""
	s.loading = false
	s.pendingRequest = ""
	s.err = nil
}

// Reset clears all state and drops every subscriber and listener registered
// after construction. It exists for test isolation.
func (s *Store) Reset() {
	s.listenersMu.Lock()
	s.subscribers = listenerSet[State]{}
	s.listeners = make(map[EventType]*listenerSet[Event])
	s.listenersMu.Unlock()

	s.ClearAll()
}

// SwitchSession makes sessionID current.
//
// Switching to the current session is a no-op. Otherwise any pending request
// is cancelled, every item of the previous session is deleted, the current
// message is unset, the error is cleared and [EventSessionSwitched] fires.
func (s *Store) SwitchSession(sessionID string) {
	s.submit(func() ([]Event, bool) {
		if sessionID == s.currentSession {
			return nil, false
		}
		prev := s.currentSession

		s.loading = false
		s.pendingRequest = ""
		if prev != "" {
			delete(s.results, prev)
		}
		s.currentSession = sessionID
		s.currentMessage = ""
		s.err = nil

		s.logger.Debug("session switched", "from", prev, "to", sessionID)
		return []Event{{
			Type:    EventSessionSwitched,
			Payload: SessionSwitched{From: prev, To: sessionID},
		}}, true
	})
}

// SelectMessage makes messageID current within the current session.
//
// Selecting the current message is a no-op. Otherwise the target message
// keeps its items, every other message of the session is deleted, any
// pending request is cancelled and [EventMessageSelected] fires.
func (s *Store) SelectMessage(messageID string) {
	s.submit(func() ([]Event, bool) {
		if messageID == s.currentMessage {
			return nil, false
		}
		prev := s.currentMessage

		if messages, ok := s.results[s.currentSession]; ok {
			for id := range messages {
				if id != messageID {
					delete(messages, id)
				}
			}
		}
		s.currentMessage = messageID
		s.loading = false
		s.pendingRequest = ""

		s.logger.Debug("message selected",
			"session_id", s.currentSession,
			"from", prev,
			"to", messageID,
		)
		return []Event{{
			Type:    EventMessageSelected,
			Payload: MessageSelected{SessionID: s.currentSession, From: prev, To: messageID},
		}}, true
	})
}

// SetLoading turns the loading flag on or off.
//
// Turning loading on clears the error. With a requestID the request becomes
// the pending one, a non-empty messageID becomes current and
// [EventAnalysisStarted] fires. Turning loading off clears the pending request.
func (s *Store) SetLoading(loading bool, requestID, messageID string) {
	s.submit(func() ([]Event, bool) {
		if !loading {
			s.loading = false
			s.pendingRequest = ""
			return nil, true
		}

		s.loading = true
		s.err = nil
		if requestID == "" {
			return nil, true
		}

		s.pendingRequest = requestID
		if messageID != "" {
			s.currentMessage = messageID
		}
		s.logger.Debug("analysis started",
			"session_id", s.currentSession,
			"message_id", s.currentMessage,
			"request_id", requestID,
		)
		return []Event{{
			Type: EventAnalysisStarted,
			Payload: AnalysisStarted{
				SessionID: s.currentSession,
				MessageID: s.currentMessage,
				RequestID: requestID,
			},
		}}, true
	})
}

// SetError records an analysis error with code [CodeAnalysisError] and
// clears loading. An empty message clears the error.
func (s *Store) SetError(message string) {
	if message == "" {
		s.SetErrorWithInfo(nil)
		return
	}
	s.SetErrorWithInfo(&ErrorInfo{Code: CodeAnalysisError, Message: message})
}

// SetErrorWithInfo records a structured error and clears loading.
//
// A blank message or empty suggestion list is filled from the code's
// defaults. A nil info clears the error and leaves loading untouched.
func (s *Store) SetErrorWithInfo(info *ErrorInfo) {
	var completed *ErrorInfo
	if info != nil {
		c := info.complete(s.now())
		completed = &c
	}

	s.submit(func() ([]Event, bool) {
		if completed == nil {
			s.err = nil
			return nil, true
		}
		s.err = completed
		s.loading = false
		s.pendingRequest = ""
		s.logger.Warn("analysis error",
			"session_id", s.currentSession,
			"message_id", s.currentMessage,
			"code", string(completed.Code),
			"message", completed.Message,
		)
		return nil, true
	})
}

// submit queues o and drains the queue unless a drain is already running.
func (s *Store) submit(o op) {
	s.queueMu.Lock()
	s.queue = append(s.queue, o)
	s.metrics.queueDepth.Set(float64(len(s.queue)))
	if s.draining {
		s.queueMu.Unlock()
		return
	}
	s.draining = true
	s.queueMu.Unlock()

	s.drain()
}

func (s *Store) drain() {
	for {
		s.queueMu.Lock()
		if len(s.queue) == 0 {
			s.draining = false
			s.queueMu.Unlock()
			return
		}
		next := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.metrics.queueDepth.Set(float64(len(s.queue)))
		s.queueMu.Unlock()

		s.apply(next)
	}
}

func (s *Store) apply(o op) {
	s.mu.Lock()
	events, changed := o()
	var (
		subs  []func(State)
		state State
	)
	if changed {
		subs = s.subscriberFuncs()
		if len(subs) > 0 {
			state = s.snapshotLocked()
		}
	}
	s.mu.Unlock()

	for _, ev := range events {
		s.emit(ev)
	}
	for i, fn := range subs {
		st := state
		if i > 0 {
			st = cloneState(state)
		}
		s.invokeSafe("subscriber", func() { fn(st) })
	}
}

// Subscribe registers fn to receive a deep copy of the full state after
// every mutation. The returned function unsubscribes; it is safe to call
// more than once.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	s.listenersMu.Lock()
	id := s.subscribers.add(fn)
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			s.subscribers.remove(id)
			s.listenersMu.Unlock()
		})
	}
}

// On registers fn for events of type t, in registration order. The returned
// function unregisters it.
func (s *Store) On(t EventType, fn func(Event)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	s.listenersMu.Lock()
	set, ok := s.listeners[t]
	if !ok {
		set = &listenerSet[Event]{}
		s.listeners[t] = set
	}
	id := set.add(fn)
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			set.remove(id)
			s.listenersMu.Unlock()
		})
	}
}

func (s *Store) subscriberFuncs() []func(State) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	if len(s.fixedSubscribers) == 0 && s.subscribers.len() == 0 {
		return nil
	}
	out := make([]func(State), 0, len(s.fixedSubscribers)+s.subscribers.len())
	out = append(out, s.fixedSubscribers...)
	return append(out, s.subscribers.snapshot()...)
}

func (s *Store) emit(ev Event) {
	s.listenersMu.Lock()
	var fns []func(Event)
	if set, ok := s.listeners[ev.Type]; ok {
		fns = set.snapshot()
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		s.invokeSafe(string(ev.Type), func() { fn(ev.clone()) })
	}
}

// invokeSafe calls fn with panic recovery. Panics are logged with a
// correlation ID and counted; they never reach the caller.
func (s *Store) invokeSafe(listener string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			s.metrics.listenerPanics.Inc()
			s.logger.Error("listener panic",
				"correlation_id", correlationID,
				"listener", listener,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn()
}
