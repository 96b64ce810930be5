package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/resultboard"
	"github.com/jpalmerr/resultboard/internal/bridge"
	"github.com/jpalmerr/resultboard/internal/bus"
)

// questions cycles through the analyses the mock backend answers.
var questions = []string{"revenue", "regions", "funnel", "summary"}

// RunMockProducer plays an analysis backend: every 8-15 seconds it starts
// a new request for the same chat session and streams its results as
// loading, partial batch and final batch envelopes on subject.
func RunMockProducer(ctx context.Context, b bus.MessageBus, subject, sessionID string) {
	for i := 0; ; i++ {
		if err := produce(ctx, b, subject, sessionID, questions[i%len(questions)]); err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("mock producer failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(8+rand.Intn(8)) * time.Second):
		}
	}
}

func produce(ctx context.Context, b bus.MessageBus, subject, sessionID, question string) error {
	requestID := uuid.NewString()
	messageID := fmt.Sprintf("msg-%s", requestID[:8])

	send := func(kind bridge.Kind, payload any) error {
		data, err := bridge.Encode(kind, payload)
		if err != nil {
			return err
		}
		return b.Publish(ctx, subject, data)
	}

	if err := send(bridge.KindLoading, bridge.LoadingRequest{Loading: true, RequestID: requestID, MessageID: messageID}); err != nil {
		return err
	}
	slog.Info("analysis started", "question", question, "message_id", messageID)

	// simulate the backend thinking
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(500+rand.Intn(1500)) * time.Millisecond):
	}

	if rand.Intn(10) == 0 {
		return send(bridge.KindError, resultboard.NewErrorInfo(
			resultboard.CodeAnalysisTimeout, "", "the warehouse did not answer in time"))
	}

	items := sampleItems(question)
	half := len(items) / 2
	if err := send(bridge.KindBatch, resultboard.Batch{
		SessionID: sessionID,
		MessageID: messageID,
		RequestID: requestID,
		Items:     items[:half],
	}); err != nil {
		return err
	}
	return send(bridge.KindBatch, resultboard.Batch{
		SessionID:  sessionID,
		MessageID:  messageID,
		RequestID:  requestID,
		Items:      items[half:],
		IsComplete: true,
	})
}

// sampleItems returns raw items in the loose shapes real backends send.
func sampleItems(question string) []resultboard.RawItem {
	revenue := 100 + rand.Intn(50)
	switch question {
	case "revenue":
		return []resultboard.RawItem{
			{Type: "metric", Data: map[string]any{"title": "Revenue", "value": revenue, "unit": "k$", "change": "+4%"}},
			{Type: "chart", Data: map[string]any{
				"title":  map[string]any{"text": "Monthly revenue"},
				"xAxis":  map[string]any{"type": "category", "data": []string{"Jan", "Feb", "Mar", "Apr"}},
				"yAxis":  map[string]any{"type": "value"},
				"series": []any{map[string]any{"type": "line", "name": "revenue", "data": []int{80, 95, 110, revenue}}},
			}},
		}
	case "regions":
		return []resultboard.RawItem{
			{Type: "table", Data: []map[string]any{
				{"region": "EU", "orders": 120 + rand.Intn(30), "share": "41%"},
				{"region": "US", "orders": 140 + rand.Intn(30), "share": "47%"},
				{"region": "APAC", "orders": 30 + rand.Intn(10), "share": "12%"},
			}},
			{Type: "csv", Data: "region,returns\nEU,4\nUS,7\nAPAC,1\n"},
		}
	case "funnel":
		return []resultboard.RawItem{
			{Type: "metric", Data: map[string]any{"name": "Conversion", "value": fmt.Sprintf("%.1f", 2+rand.Float64()*2), "unit": "%"}},
			{Type: "insight", Data: "Most drop-off happens between cart and checkout."},
		}
	default:
		return []resultboard.RawItem{
			{Type: "insight", Data: map[string]any{"text": "Revenue is up while returns stay flat.", "confidence": 0.8}},
			{Type: "file", Data: map[string]any{"fileName": "summary.pdf", "fileSize": 48213, "mimeType": "application/pdf"}},
		}
	}
}
