package resultboard

import (
	"errors"
	"fmt"
	"time"

	"github.com/jpalmerr/resultboard/normalize"
)

var errNullItem = errors.New("item is null")

// RestoreResults replaces the displayed state with a persisted result set.
//
// Each item is checked for a known type and a plausible data shape, then
// normalized; failures are counted in the returned stats and skipped.
//
// When no item survives, (sessionID, messageID) becomes current with no
// items and [EventHistoricalEmptyResult] fires. Otherwise the whole current
// session is cleared, the surviving items become the target message's only
// content with source [SourceRestored], loading, the pending request and the
// error are cleared, and [EventDataRestored] fires.
func (s *Store) RestoreResults(sessionID, messageID string, items []RawItem) RestoreStats {
	stats := RestoreStats{
		TotalItems:  len(items),
		ItemsByType: make(map[normalize.Type]int),
		Errors:      []string{},
	}
	log := s.logger.With("session_id", sessionID, "message_id", messageID)

	now := s.now()
	restored := make([]ResultItem, 0, len(items))
	for i, raw := range items {
		item, err := s.restoreItem(raw, now)
		if err != nil {
			f := itemFailure{index: i, id: raw.ID, typ: raw.Type, err: err}
			stats.Errors = append(stats.Errors, f.String())
			continue
		}
		item.Metadata.SessionID = sessionID
		item.Metadata.MessageID = messageID
		restored = append(restored, item)
		stats.ItemsByType[item.Type]++
	}
	stats.ValidItems = len(restored)
	stats.InvalidItems = stats.TotalItems - stats.ValidItems

	s.metrics.restoreItems.WithLabelValues("valid").Add(float64(stats.ValidItems))
	s.metrics.restoreItems.WithLabelValues("invalid").Add(float64(stats.InvalidItems))

	if len(restored) == 0 {
		s.metrics.restores.WithLabelValues("empty").Inc()
		log.Info("restore has no items to show",
			"total_items", stats.TotalItems,
			"invalid_items", stats.InvalidItems,
		)
		s.submit(func() ([]Event, bool) {
			s.currentSession = sessionID
			s.currentMessage = messageID
			if messages, ok := s.results[sessionID]; ok {
				delete(messages, messageID)
			}
			s.loading = false
			s.pendingRequest = ""
			return []Event{{
				Type:    EventHistoricalEmptyResult,
				Payload: HistoricalEmptyResult{SessionID: sessionID, MessageID: messageID},
			}}, true
		})
		return stats
	}

	if stats.InvalidItems > 0 {
		log.Warn("restore skipped invalid items",
			"invalid_items", stats.InvalidItems,
			"errors", stats.Errors,
		)
	}
	s.metrics.restores.WithLabelValues("restored").Inc()

	byType := make(map[normalize.Type]int, len(stats.ItemsByType))
	for t, n := range stats.ItemsByType {
		byType[t] = n
	}
	s.submit(func() ([]Event, bool) {
		if s.currentSession != "" {
			delete(s.results, s.currentSession)
		}
		s.results[sessionID] = map[string][]ResultItem{messageID: restored}
		s.currentSession = sessionID
		s.currentMessage = messageID
		s.loading = false
		s.pendingRequest = ""
		s.err = nil

		log.Info("results restored", "item_count", len(restored))
		return []Event{{
			Type: EventDataRestored,
			Payload: DataRestored{
				SessionID:    sessionID,
				MessageID:    messageID,
				ItemCount:    len(restored),
				ValidCount:   stats.ValidItems,
				InvalidCount: stats.InvalidItems,
				ItemsByType:  byType,
			},
		}}, true
	})
	return stats
}

func (s *Store) restoreItem(raw RawItem, now time.Time) (ResultItem, error) {
	if raw.ID == "" && raw.Type == "" && raw.Data == nil {
		return ResultItem{}, errNullItem
	}
	t, ok := normalize.ParseType(raw.Type)
	if !ok {
		return ResultItem{}, fmt.Errorf("unknown item type %q", raw.Type)
	}
	if err := normalize.ValidateShape(t, raw.Data); err != nil {
		return ResultItem{}, err
	}
	return s.prepareItem(raw, SourceRestored, now)
}
