package httpapi

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/nexcart/commerce-core/internal/domain/catalog"
	"github.com/nexcart/commerce-core/internal/domain/user"
	"github.com/nexcart/commerce-core/internal/httputil"
	"github.com/nexcart/commerce-core/internal/middleware"
)

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	// Inactive products are visible only to admins who ask for them.
	includeInactive := false
	if r.URL.Query().Get("include_inactive") == "true" {
		if _, err := s.gate.Admit(middleware.BearerToken(r), user.RoleAdmin); err == nil {
			includeInactive = true
		}
	}

	list, err := s.catalog.ListProducts(r.Context(), includeInactive)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []catalog.Product{}
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	p, err := s.catalog.GetProduct(r.Context(), id)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Price       decimal.Decimal `json:"price"`
		CategoryID  *int64          `json:"category_id"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	p, err := s.catalog.CreateProduct(r.Context(), catalog.Product{
		Name:        payload.Name,
		Description: payload.Description,
		Price:       payload.Price,
		CategoryID:  payload.CategoryID,
	})
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	var patch catalog.ProductPatch
	if err := httputil.DecodeJSON(r.Body, &patch); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	p, err := s.catalog.UpdateProduct(r.Context(), id, patch)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	if err := s.catalog.DeactivateProduct(r.Context(), id); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	list, err := s.catalog.ListCategories(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []catalog.Category{}
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	c, err := s.catalog.GetCategory(r.Context(), id)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		ParentID    *int64 `json:"parent_id"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	c, err := s.catalog.CreateCategory(r.Context(), catalog.Category{
		Name:        payload.Name,
		Description: payload.Description,
		ParentID:    payload.ParentID,
	})
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, c)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	var payload struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		ParentID    *int64 `json:"parent_id"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	c, err := s.catalog.UpdateCategory(r.Context(), catalog.Category{
		ID:          id,
		Name:        payload.Name,
		Description: payload.Description,
		ParentID:    payload.ParentID,
	})
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}

	if err := s.catalog.DeleteCategory(r.Context(), id); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
