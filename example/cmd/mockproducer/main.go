// Standalone mock analysis backend for testing the CLI.
//
// Usage:
//
//	go run ./cmd/resultboard serve -c example/config.yaml
//
// Then in another terminal:
//
//	go run ./example/cmd/mockproducer -addr http://localhost:8080
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "resultboard base URL")
	session := flag.String("session", "mock-session", "chat session id")
	flag.Parse()

	fmt.Printf("Mock analysis backend posting to %s\n", *addr)
	fmt.Println("A new analysis completes every 5-10 seconds")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	client := &http.Client{Timeout: 5 * time.Second}
	post := func(path string, body any) error {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		resp, err := client.Post(*addr+path, "application/json", bytes.NewReader(data))
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return fmt.Errorf("POST %s: %s", path, resp.Status)
		}
		return nil
	}

	for i := 1; ; i++ {
		requestID := uuid.NewString()
		messageID := fmt.Sprintf("msg-%03d", i)

		if err := post("/api/loading", map[string]any{
			"loading":   true,
			"requestId": requestID,
			"messageId": messageID,
		}); err != nil {
			slog.Error("failed to start analysis", "error", err)
			os.Exit(1)
		}

		// simulate latency variance
		time.Sleep(time.Duration(300+rand.Intn(700)) * time.Millisecond)

		orders := 100 + rand.Intn(100)
		batch := map[string]any{
			"sessionId":  *session,
			"messageId":  messageID,
			"requestId":  requestID,
			"isComplete": true,
			"items": []map[string]any{
				{"type": "metric", "data": map[string]any{"title": "Orders", "value": orders}},
				{"type": "table", "data": map[string]any{
					"columns": []string{"day", "orders"},
					"rows":    [][]any{{"mon", orders / 2}, {"tue", orders - orders/2}},
				}},
				{"type": "insight", "data": fmt.Sprintf("Analysis %d finished with %d orders.", i, orders)},
			},
		}
		if err := post("/api/batches", batch); err != nil {
			slog.Error("failed to send batch", "error", err)
			os.Exit(1)
		}
		slog.Info("analysis sent", "message_id", messageID, "request_id", requestID)

		time.Sleep(time.Duration(5+rand.Intn(6)) * time.Second)
	}
}
