package httpapi

import (
	"net/http"

	"github.com/nexcart/commerce-core/internal/httputil"
	"github.com/nexcart/commerce-core/internal/middleware"
)

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	c, err := s.carts.Get(r.Context(), middleware.UserIDFrom(r.Context()))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (s *Server) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ProductID int64 `json:"product_id"`
		Quantity  int   `json:"quantity"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	item, err := s.carts.AddItem(r.Context(), middleware.UserIDFrom(r.Context()), payload.ProductID, payload.Quantity)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, item)
}

func (s *Server) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	var payload struct {
		Quantity int `json:"quantity"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	item, err := s.carts.UpdateItemQuantity(r.Context(), middleware.UserIDFrom(r.Context()), id, payload.Quantity)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, item)
}

func (s *Server) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	if err := s.carts.RemoveItem(r.Context(), middleware.UserIDFrom(r.Context()), id); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
