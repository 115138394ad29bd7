package httpapi

import (
	"net/http"

	"github.com/nexcart/commerce-core/internal/domain/order"
	"github.com/nexcart/commerce-core/internal/httputil"
	"github.com/nexcart/commerce-core/internal/middleware"
)

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	list, err := s.orders.List(r.Context(), middleware.UserIDFrom(r.Context()))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []order.Order{}
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Items []order.Line `json:"items"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	o, err := s.orders.Create(r.Context(), middleware.UserIDFrom(r.Context()), payload.Items)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, o)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	o, err := s.orders.Get(r.Context(), middleware.UserIDFrom(r.Context()), id)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, o)
}

func (s *Server) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	var payload struct {
		Status order.Status `json:"status"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	o, err := s.orders.UpdateStatus(r.Context(), middleware.UserIDFrom(r.Context()), id, payload.Status)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, o)
}

func (s *Server) handleCreateRefund(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		OrderID int64 `json:"order_id"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	o, err := s.orders.Refund(r.Context(), middleware.UserIDFrom(r.Context()), payload.OrderID)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"refund_id": o.RefundID,
		"order":     o,
	})
}
