package worker

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/orderdesk/orderdesk/internal/domain"
)

func eventPayload(t *testing.T, status domain.OrderStatus) []byte {
	t.Helper()
	payload, err := json.Marshal(domain.OrderEvent{
		EventID:    "evt-1",
		OrderID:    7,
		CustomerID: 3,
		Status:     status,
		Total:      214.35,
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("failed to marshal event: %v", err)
	}
	return payload
}

func TestNotificationHandler_Handle(t *testing.T) {
	t.Run("sends confirmation email on order.created", func(t *testing.T) {
		var sent map[string]string
		emailServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/send" {
				t.Errorf("expected /send, got %s", r.URL.Path)
			}
			if err := json.NewDecoder(r.Body).Decode(&sent); err != nil {
				t.Errorf("failed to decode email request: %v", err)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"sent"}`))
		}))
		defer emailServer.Close()

		handler := NewNotificationHandler(emailServer.URL, emailServer.Client(), slog.New(slog.NewTextHandler(io.Discard, nil)))

		err := handler.Handle(context.Background(), domain.TopicOrderCreated, eventPayload(t, domain.OrderStatusReceived))
		if err != nil {
			t.Fatalf("handle failed: %v", err)
		}

		if sent["to"] != "customer-3@example.com" {
			t.Errorf("unexpected recipient: %s", sent["to"])
		}
		if sent["subject"] != "Order Confirmation: 7" {
			t.Errorf("unexpected subject: %s", sent["subject"])
		}
	})

	t.Run("sends cancellation email on order.canceled", func(t *testing.T) {
		var sent map[string]string
		emailServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&sent)
			_, _ = w.Write([]byte(`{"status":"sent"}`))
		}))
		defer emailServer.Close()

		handler := NewNotificationHandler(emailServer.URL, emailServer.Client(), slog.New(slog.NewTextHandler(io.Discard, nil)))

		err := handler.Handle(context.Background(), domain.TopicOrderCanceled, eventPayload(t, domain.OrderStatusCanceled))
		if err != nil {
			t.Fatalf("handle failed: %v", err)
		}

		if sent["subject"] != "Order Canceled: 7" {
			t.Errorf("unexpected subject: %s", sent["subject"])
		}
	})

	t.Run("returns error when email service fails", func(t *testing.T) {
		emailServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer emailServer.Close()

		handler := NewNotificationHandler(emailServer.URL, emailServer.Client(), slog.New(slog.NewTextHandler(io.Discard, nil)))

		err := handler.Handle(context.Background(), domain.TopicOrderCreated, eventPayload(t, domain.OrderStatusReceived))
		if err == nil {
			t.Fatal("expected error when email service is down")
		}
	})

	t.Run("ignores unknown topics", func(t *testing.T) {
		handler := NewNotificationHandler("http://unused", http.DefaultClient, slog.New(slog.NewTextHandler(io.Discard, nil)))

		err := handler.Handle(context.Background(), "order.unknown", eventPayload(t, domain.OrderStatusReceived))
		if err != nil {
			t.Fatalf("expected unknown topic to be ignored, got %v", err)
		}
	})

	t.Run("rejects malformed payloads", func(t *testing.T) {
		handler := NewNotificationHandler("http://unused", http.DefaultClient, slog.New(slog.NewTextHandler(io.Discard, nil)))

		err := handler.Handle(context.Background(), domain.TopicOrderCreated, []byte("not json"))
		if err == nil {
			t.Fatal("expected error for malformed payload")
		}
	})
}
