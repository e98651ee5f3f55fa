//go:build integration

package test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/orderdesk/orderdesk/internal/domain"
	"github.com/orderdesk/orderdesk/internal/messaging"
	"github.com/orderdesk/orderdesk/internal/orders"
)

func newAPI(t *testing.T, connStr string) (*http.ServeMux, *orders.OrderRepository) {
	t.Helper()

	db, err := OpenDB(connStr)
	if err != nil {
		t.Fatalf("failed to open DB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := orders.NewOrderRepository(db)
	handler := orders.NewHandler(repo, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	mux := http.NewServeMux()
	handler.Routes(mux)
	return mux, repo
}

func TestOrderLifecycle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	mux, repo := newAPI(t, pg.ConnStr)

	reqBody := `{"customer_id": 1, "status": "received", "order_items": [
		{"product_id": 1, "name": "Protein Bar (12 Count)", "quantity": 3, "price": 18.45},
		{"product_id": 2, "name": "AirPods", "quantity": 1, "price": 159}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created domain.Order
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !created.Saved() {
		t.Fatal("expected order id to be assigned")
	}
	if created.OrderDate.IsZero() {
		t.Fatal("expected order_date to be defaulted by the store")
	}
	if total := created.Total(); total < 214.34 || total > 214.36 {
		t.Fatalf("expected total 214.35, got %f", total)
	}

	// Cancel it.
	req = httptest.NewRequest(http.MethodPut, "/orders/1/cancel", nil)
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	canceled, err := repo.Get(ctx, created.ID)
	if err != nil || canceled == nil {
		t.Fatalf("failed to reload order: %v", err)
	}
	if canceled.Status != domain.OrderStatusCanceled {
		t.Fatalf("expected status canceled, got %s", canceled.Status)
	}
	if !canceled.LastUpdated.After(created.LastUpdated) {
		t.Error("expected last_updated to advance on cancel")
	}

	// Delete it and check the items went with it.
	req = httptest.NewRequest(http.MethodDelete, "/orders/1", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}

	gone, err := repo.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if gone != nil {
		t.Fatal("expected order to be deleted")
	}

	db, err := OpenDB(pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open DB: %v", err)
	}
	defer func() { _ = db.Close() }()

	var orphans int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM order_items`).Scan(&orphans); err != nil {
		t.Fatalf("failed to count items: %v", err)
	}
	if orphans != 0 {
		t.Fatalf("expected cascade delete to remove items, found %d", orphans)
	}
}

func TestSaveUpdateReplacesItems(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db, err := OpenDB(pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open DB: %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := orders.NewOrderRepository(db)

	order := &domain.Order{
		CustomerID: 1,
		Status:     domain.OrderStatusReceived,
		Items: []domain.OrderItem{
			{ProductID: 1, Name: "Protein Bar (12 Count)", Quantity: 3, Price: 18.45},
			{ProductID: 2, Name: "AirPods", Quantity: 1, Price: 159},
		},
	}
	if err := repo.Save(ctx, order); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	id := order.ID

	order.Status = domain.OrderStatusProcessing
	order.Items = []domain.OrderItem{
		{ProductID: 3, Name: "USB Cable", Quantity: 2, Price: 9.99},
	}
	if err := repo.Save(ctx, order); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if order.ID != id {
		t.Fatalf("expected id %d to be stable across saves, got %d", id, order.ID)
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected a single order after two saves, got %d", len(all))
	}
	if len(all[0].Items) != 1 || all[0].Items[0].Name != "USB Cable" {
		t.Fatalf("expected replaced item set, got %+v", all[0].Items)
	}
}

func TestListFilters(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db, err := OpenDB(pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open DB: %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := orders.NewOrderRepository(db)
	now := time.Now().UTC()

	old := &domain.Order{CustomerID: 1, Status: domain.OrderStatusDelivered}
	old.OrderDate = now.Add(-52 * 7 * 24 * time.Hour)
	if err := repo.Save(ctx, old); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	for range 5 {
		recent := &domain.Order{CustomerID: 2, Status: domain.OrderStatusReceived}
		if err := repo.Save(ctx, recent); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	byStatus, err := repo.ListByStatus(ctx, domain.OrderStatusReceived)
	if err != nil {
		t.Fatalf("list by status failed: %v", err)
	}
	if len(byStatus) != 5 {
		t.Fatalf("expected 5 received orders, got %d", len(byStatus))
	}

	since, err := repo.ListSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("list since failed: %v", err)
	}
	if len(since) != 5 {
		t.Fatalf("expected 5 orders since yesterday, got %d", len(since))
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 6 {
		t.Fatalf("expected 6 orders, got %d", len(all))
	}

	if err := repo.DeleteAll(ctx); err != nil {
		t.Fatalf("delete all failed: %v", err)
	}
	all, err = repo.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected no orders after delete all, got %d", len(all))
	}
}

func TestOrderEventRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	brokers, cleanup := SetupKafka(ctx, t)
	defer cleanup()

	producer := messaging.NewProducer(brokers)
	defer func() { _ = producer.Close() }()

	event := domain.OrderEvent{
		EventID:    "evt-it-1",
		OrderID:    1,
		CustomerID: 1,
		Status:     domain.OrderStatusReceived,
		Total:      214.35,
		Timestamp:  time.Now().UTC(),
	}
	if err := producer.Publish(ctx, domain.TopicOrderCreated, "1", event); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	consumer := messaging.NewConsumer(brokers, []string{domain.TopicOrderCreated, domain.TopicOrderCanceled}, "integration-test")
	defer func() { _ = consumer.Close() }()

	received := make(chan domain.OrderEvent, 1)
	consumeCtx, stop := context.WithCancel(ctx)
	defer stop()

	go func() {
		_ = consumer.Consume(consumeCtx, func(_ context.Context, topic string, payload []byte) error {
			if topic != domain.TopicOrderCreated {
				return nil
			}
			var got domain.OrderEvent
			if err := json.Unmarshal(payload, &got); err != nil {
				return err
			}
			received <- got
			return nil
		})
	}()

	select {
	case got := <-received:
		if got.EventID != event.EventID || got.OrderID != event.OrderID {
			t.Fatalf("unexpected event: %+v", got)
		}
	case <-time.After(90 * time.Second):
		t.Fatal("timed out waiting for order event")
	}
}
