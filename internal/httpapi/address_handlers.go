package httpapi

import (
	"net/http"

	"github.com/nexcart/commerce-core/internal/domain/address"
	"github.com/nexcart/commerce-core/internal/httputil"
	"github.com/nexcart/commerce-core/internal/middleware"
)

type addressPayload struct {
	Line1      string `json:"address_line1"`
	Line2      string `json:"address_line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	IsDefault  bool   `json:"is_default"`
}

func (p addressPayload) toDomain(userID, id int64) address.Address {
	return address.Address{
		ID:         id,
		UserID:     userID,
		Line1:      p.Line1,
		Line2:      p.Line2,
		City:       p.City,
		State:      p.State,
		PostalCode: p.PostalCode,
		Country:    p.Country,
		IsDefault:  p.IsDefault,
	}
}

func (s *Server) handleListAddresses(w http.ResponseWriter, r *http.Request) {
	list, err := s.addresses.List(r.Context(), middleware.UserIDFrom(r.Context()))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []address.Address{}
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateAddress(w http.ResponseWriter, r *http.Request) {
	var payload addressPayload
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	a, err := s.addresses.Create(r.Context(), payload.toDomain(middleware.UserIDFrom(r.Context()), 0))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, a)
}

func (s *Server) handleGetAddress(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	a, err := s.addresses.Get(r.Context(), middleware.UserIDFrom(r.Context()), id)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (s *Server) handleUpdateAddress(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	var payload addressPayload
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	a, err := s.addresses.Update(r.Context(), payload.toDomain(middleware.UserIDFrom(r.Context()), id))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (s *Server) handleDeleteAddress(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	if err := s.addresses.Delete(r.Context(), middleware.UserIDFrom(r.Context()), id); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
