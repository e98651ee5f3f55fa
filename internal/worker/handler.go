package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/orderdesk/orderdesk/internal/domain"
)

// NotificationHandler turns order lifecycle events into customer emails.
// Email failures are returned so the message is redelivered; everything
// else about an event is already settled by the time it arrives here.
type NotificationHandler struct {
	emailServiceURL string
	httpClient      *http.Client
	logger          *slog.Logger
}

func NewNotificationHandler(emailServiceURL string, client *http.Client, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		emailServiceURL: emailServiceURL,
		httpClient:      client,
		logger:          logger,
	}
}

func (h *NotificationHandler) Handle(ctx context.Context, topic string, payload []byte) error {
	var event domain.OrderEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order event: %w", err)
	}

	h.logger.Info("processing order event", "topic", topic, "event_id", event.EventID, "order_id", event.OrderID)

	switch topic {
	case domain.TopicOrderCreated:
		if err := h.sendConfirmationEmail(ctx, event); err != nil {
			return fmt.Errorf("send confirmation email: %w", err)
		}
	case domain.TopicOrderCanceled:
		if err := h.sendCancellationEmail(ctx, event); err != nil {
			return fmt.Errorf("send cancellation email: %w", err)
		}
	default:
		h.logger.Warn("ignoring event from unknown topic", "topic", topic)
		return nil
	}

	h.logger.Info("order event processed", "topic", topic, "order_id", event.OrderID)
	return nil
}

func (h *NotificationHandler) sendConfirmationEmail(ctx context.Context, event domain.OrderEvent) error {
	body := map[string]string{
		"to":      customerAddress(event.CustomerID),
		"subject": fmt.Sprintf("Order Confirmation: %d", event.OrderID),
		"body":    fmt.Sprintf("Your order %d has been received. Order total: %.2f.", event.OrderID, event.Total),
	}

	return h.sendEmail(ctx, body)
}

func (h *NotificationHandler) sendCancellationEmail(ctx context.Context, event domain.OrderEvent) error {
	body := map[string]string{
		"to":      customerAddress(event.CustomerID),
		"subject": fmt.Sprintf("Order Canceled: %d", event.OrderID),
		"body":    fmt.Sprintf("Your order %d has been canceled. You will be reimbursed.", event.OrderID),
	}

	return h.sendEmail(ctx, body)
}

func (h *NotificationHandler) sendEmail(ctx context.Context, body map[string]string) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.emailServiceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}

	return nil
}

// TODO look up the real address once a customer service exists.
func customerAddress(customerID int) string {
	return fmt.Sprintf("customer-%d@example.com", customerID)
}
