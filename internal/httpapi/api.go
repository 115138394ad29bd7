// Package httpapi exposes the commerce REST API.
package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/nexcart/commerce-core/internal/auth"
	"github.com/nexcart/commerce-core/internal/domain/user"
	"github.com/nexcart/commerce-core/internal/errors"
	"github.com/nexcart/commerce-core/internal/httputil"
	"github.com/nexcart/commerce-core/internal/logging"
	"github.com/nexcart/commerce-core/internal/metrics"
	"github.com/nexcart/commerce-core/internal/middleware"
	"github.com/nexcart/commerce-core/internal/notify"
	addressessvc "github.com/nexcart/commerce-core/internal/services/addresses"
	cartssvc "github.com/nexcart/commerce-core/internal/services/carts"
	catalogsvc "github.com/nexcart/commerce-core/internal/services/catalog"
	orderssvc "github.com/nexcart/commerce-core/internal/services/orders"
	"github.com/nexcart/commerce-core/internal/storage"
)

// Server bundles the HTTP handlers over the application services.
type Server struct {
	resolver  *auth.Resolver
	issuer    *auth.Issuer
	google    *auth.GoogleProvider
	gate      *middleware.Authenticator
	users     storage.UserStore
	catalog   *catalogsvc.Service
	carts     *cartssvc.Service
	orders    *orderssvc.Service
	addresses *addressessvc.Service
	hub       *notify.Hub
	metrics   *metrics.Metrics
	log       *logging.Logger
}

// Config carries the collaborators for NewServer. Google, Hub and Metrics
// are optional; the routes they back are disabled when nil.
type Config struct {
	Resolver  *auth.Resolver
	Issuer    *auth.Issuer
	Google    *auth.GoogleProvider
	Gate      *middleware.Authenticator
	Users     storage.UserStore
	Catalog   *catalogsvc.Service
	Carts     *cartssvc.Service
	Orders    *orderssvc.Service
	Addresses *addressessvc.Service
	Hub       *notify.Hub
	Metrics   *metrics.Metrics
	Logger    *logging.Logger
}

// NewServer creates the API server.
func NewServer(cfg Config) *Server {
	return &Server{
		resolver:  cfg.Resolver,
		issuer:    cfg.Issuer,
		google:    cfg.Google,
		gate:      cfg.Gate,
		users:     cfg.Users,
		catalog:   cfg.Catalog,
		carts:     cfg.Carts,
		orders:    cfg.Orders,
		addresses: cfg.Addresses,
		hub:       cfg.Hub,
		metrics:   cfg.Metrics,
		log:       cfg.Logger,
	}
}

// Router builds the route table. Catalog reads are public; catalog writes
// are admin-only; carts, orders, refunds and addresses require a signed-in
// customer or admin.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}
	if s.hub != nil {
		r.Handle("/ws", s.hub)
	}

	anyUser := s.gate.Require(user.RoleCustomer, user.RoleAdmin)
	adminOnly := s.gate.Require(user.RoleAdmin)

	// Identity.
	authRouter := r.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/register", s.handleRegister).Methods("POST")
	authRouter.HandleFunc("/login", s.handleLogin).Methods("POST")
	authRouter.HandleFunc("/logout", s.handleLogout).Methods("GET", "POST")
	authRouter.HandleFunc("/verify", s.handleVerify).Methods("GET")
	if s.google != nil {
		authRouter.HandleFunc("/google", s.handleGoogleRedirect).Methods("GET")
		authRouter.HandleFunc("/google/callback", s.handleGoogleCallback).Methods("GET")
	}
	authRouter.Handle("/user", anyUser(http.HandlerFunc(s.handleCurrentUser))).Methods("GET")

	// Catalog.
	r.HandleFunc("/products", s.handleListProducts).Methods("GET")
	r.HandleFunc("/products/{id}", s.handleGetProduct).Methods("GET")
	r.Handle("/products", adminOnly(http.HandlerFunc(s.handleCreateProduct))).Methods("POST")
	r.Handle("/products/{id}", adminOnly(http.HandlerFunc(s.handleUpdateProduct))).Methods("PUT", "PATCH")
	r.Handle("/products/{id}", adminOnly(http.HandlerFunc(s.handleDeleteProduct))).Methods("DELETE")

	r.HandleFunc("/categories", s.handleListCategories).Methods("GET")
	r.HandleFunc("/categories/{id}", s.handleGetCategory).Methods("GET")
	r.Handle("/categories", adminOnly(http.HandlerFunc(s.handleCreateCategory))).Methods("POST")
	r.Handle("/categories/{id}", adminOnly(http.HandlerFunc(s.handleUpdateCategory))).Methods("PUT")
	r.Handle("/categories/{id}", adminOnly(http.HandlerFunc(s.handleDeleteCategory))).Methods("DELETE")

	// Cart.
	cartRouter := r.PathPrefix("/carts").Subrouter()
	cartRouter.Use(anyUser)
	cartRouter.HandleFunc("", s.handleGetCart).Methods("GET")
	cartRouter.HandleFunc("/items", s.handleAddCartItem).Methods("POST")
	cartRouter.HandleFunc("/items/{id}", s.handleUpdateCartItem).Methods("PUT")
	cartRouter.HandleFunc("/items/{id}", s.handleRemoveCartItem).Methods("DELETE")

	// Orders and refunds.
	orderRouter := r.PathPrefix("/orders").Subrouter()
	orderRouter.Use(anyUser)
	orderRouter.HandleFunc("", s.handleListOrders).Methods("GET")
	orderRouter.HandleFunc("", s.handleCreateOrder).Methods("POST")
	orderRouter.HandleFunc("/{id}", s.handleGetOrder).Methods("GET")
	orderRouter.HandleFunc("/{id}/status", s.handleUpdateOrderStatus).Methods("PUT")

	r.Handle("/refunds", anyUser(http.HandlerFunc(s.handleCreateRefund))).Methods("POST")

	// Addresses.
	addressRouter := r.PathPrefix("/addresses").Subrouter()
	addressRouter.Use(anyUser)
	addressRouter.HandleFunc("", s.handleListAddresses).Methods("GET")
	addressRouter.HandleFunc("", s.handleCreateAddress).Methods("POST")
	addressRouter.HandleFunc("/{id}", s.handleGetAddress).Methods("GET")
	addressRouter.HandleFunc("/{id}", s.handleUpdateAddress).Methods("PUT")
	addressRouter.HandleFunc("/{id}", s.handleDeleteAddress).Methods("DELETE")

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// pathID extracts the numeric {id} route variable.
func pathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Validation("invalid id")
	}
	return id, nil
}
