package orders

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/orderdesk/orderdesk/internal/domain"
	"github.com/orderdesk/orderdesk/internal/messaging"
)

const (
	serviceName    = "Orders REST API Service"
	serviceVersion = "1.0"
)

type Handler struct {
	store    Store
	producer *messaging.Producer
	logger   *slog.Logger
}

func NewHandler(store Store, producer *messaging.Producer, logger *slog.Logger) *Handler {
	return &Handler{
		store:    store,
		producer: producer,
		logger:   logger,
	}
}

// Routes registers every endpoint on the mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.HandleIndex)
	mux.HandleFunc("GET /orders", h.HandleList)
	mux.HandleFunc("POST /orders", h.HandleCreate)
	mux.HandleFunc("GET /orders/{id}", h.HandleGet)
	mux.HandleFunc("PUT /orders/{id}", h.HandleUpdate)
	mux.HandleFunc("DELETE /orders/{id}", h.HandleDelete)
	mux.HandleFunc("PUT /orders/{id}/cancel", h.HandleCancel)
}

func (h *Handler) HandleIndex(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"name":    serviceName,
		"version": serviceVersion,
	})
}

// HandleList returns all orders, optionally filtered by exactly one of
// ?status= or ?orders_since=YYYY-MM-DD.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	since := r.URL.Query().Get("orders_since")

	if status != "" && since != "" {
		h.writeError(w, http.StatusBadRequest, "status and orders_since are mutually exclusive")
		return
	}

	var (
		orders []domain.Order
		err    error
	)
	switch {
	case status != "":
		orders, err = h.store.ListByStatus(r.Context(), domain.OrderStatus(status))
	case since != "":
		var date time.Time
		date, err = time.Parse("2006-01-02", since)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "orders_since must be a YYYY-MM-DD date")
			return
		}
		orders, err = h.store.ListSince(r.Context(), date)
	default:
		orders, err = h.store.List(r.Context())
	}
	if err != nil {
		h.logger.Error("failed to list orders", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if orders == nil {
		orders = []domain.Order{}
	}

	h.logger.Info("orders listed", "count", len(orders))
	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	order, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "order_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if order == nil {
		h.writeNotFound(w, id)
		return
	}

	h.logger.Info("order retrieved", "order_id", order.ID)
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if !h.requireJSON(w, r) {
		return
	}

	payload, ok := h.decodeBody(w, r)
	if !ok {
		return
	}

	order := &domain.Order{}
	if err := order.Deserialize(payload); err != nil {
		h.writeValidationError(w, err)
		return
	}

	if err := h.store.Save(r.Context(), order); err != nil {
		h.logger.Error("failed to create order", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.publishEvent(r, domain.TopicOrderCreated, order)

	h.logger.Info("order created", "order_id", order.ID, "customer_id", order.CustomerID)
	w.Header().Set("Location", fmt.Sprintf("/orders/%d", order.ID))
	h.writeJSON(w, http.StatusCreated, order)
}

// HandleUpdate replaces an order's mutable fields and its whole item set
// with the request payload.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if !h.requireJSON(w, r) {
		return
	}

	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	order, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "order_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if order == nil {
		h.writeNotFound(w, id)
		return
	}

	payload, ok := h.decodeBody(w, r)
	if !ok {
		return
	}

	order.Items = nil
	if err := order.Deserialize(payload); err != nil {
		h.writeValidationError(w, err)
		return
	}

	if err := h.store.Save(r.Context(), order); err != nil {
		h.logger.Error("failed to update order", "error", err, "order_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("order updated", "order_id", order.ID, "status", order.Status)
	h.writeJSON(w, http.StatusOK, order)
}

// HandleDelete removes an order and its items. Deleting an id that does not
// exist is a success.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		h.logger.Error("failed to delete order", "error", err, "order_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("order deleted", "order_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// HandleCancel is the dedicated cancel transition. There is no guard on the
// prior status: a shipped or delivered order cancels all the same, and
// canceling an already-canceled order is idempotent.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	if !h.requireJSON(w, r) {
		return
	}

	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	order, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "order_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if order == nil {
		h.writeNotFound(w, id)
		return
	}

	order.Cancel()
	if err := h.store.Save(r.Context(), order); err != nil {
		h.logger.Error("failed to cancel order", "error", err, "order_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.publishEvent(r, domain.TopicOrderCanceled, order)

	h.logger.Info("order canceled", "order_id", order.ID)
	h.writeJSON(w, http.StatusOK, order)
}

// orderID parses the path id. A non-numeric id can never match a stored
// order, so it reports not-found rather than a syntax error.
func (h *Handler) orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.writeError(w, http.StatusNotFound, fmt.Sprintf("Order with id '%s' was not found.", raw))
		return 0, false
	}
	return id, true
}

func (h *Handler) requireJSON(w http.ResponseWriter, r *http.Request) bool {
	contentType := r.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "application/json" {
		h.logger.Error("invalid content type", "content_type", contentType)
		h.writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	return true
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request) (any, bool) {
	var payload any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid order: body of request contained bad or no data")
		return nil, false
	}
	return payload, true
}

func (h *Handler) writeValidationError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		h.logger.Warn("order validation failed", "cause", validationErr.Cause, "field", validationErr.Field)
		h.writeError(w, http.StatusBadRequest, validationErr.Error())
		return
	}
	h.logger.Error("unexpected deserialization error", "error", err)
	h.writeError(w, http.StatusInternalServerError, "internal server error")
}

func (h *Handler) writeNotFound(w http.ResponseWriter, id int64) {
	h.writeError(w, http.StatusNotFound, fmt.Sprintf("Order with id '%d' was not found.", id))
}

// publishEvent emits an order lifecycle event. Publishing is best-effort:
// the order is already committed, so a broker failure is logged and the
// request still succeeds.
func (h *Handler) publishEvent(r *http.Request, topic string, order *domain.Order) {
	if h.producer == nil {
		return
	}

	event := domain.NewOrderEvent(order)
	key := strconv.FormatInt(order.ID, 10)
	if err := h.producer.Publish(r.Context(), topic, key, event); err != nil {
		h.logger.Error("failed to publish order event", "error", err, "topic", topic, "order_id", order.ID)
	}
}

type errorBody struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, errorBody{
		Status:  status,
		Error:   http.StatusText(status),
		Message: message,
	})
}
