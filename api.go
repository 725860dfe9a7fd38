package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type APIServer struct {
	listenAddr string
	shop       *Shop
	tokens     *TokenIssuer
	metrics    *ServerMetrics
	corsOrigin string
}

func NewAPIServer(listenAddr string, shop *Shop, tokens *TokenIssuer, corsOrigin string) *APIServer {
	return &APIServer{
		listenAddr: listenAddr,
		shop:       shop,
		tokens:     tokens,
		metrics:    NewServerMetrics(),
		corsOrigin: corsOrigin,
	}
}

type APIfunc func(http.ResponseWriter, *http.Request) error

// authedFunc receives the caller resolved from the session token.
type authedFunc func(http.ResponseWriter, *http.Request, Actor) error

type ApiError struct {
	Error string `json:"error"`
}

type message struct {
	Message string `json:"message"`
}

func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", s.metrics.Handler())

	s.handle(mux, "POST /register", s.handleRegister)
	s.handle(mux, "POST /login", s.handleLogin)
	s.handle(mux, "POST /logout", s.handleLogout)
	s.handle(mux, "GET /me", s.handleMe)

	s.handle(mux, "GET /api/products", s.handleProducts)
	s.handle(mux, "GET /api/products/{id}", s.handleProductByID)
	s.handle(mux, "GET /api/categories", s.handleCategories)
	s.handle(mux, "GET /api/producers", s.handleProducers)

	s.handle(mux, "GET /api/profile", s.withJWTauth(s.handleGetProfile))
	s.handle(mux, "PUT /api/profile", s.withJWTauth(s.handleUpdateProfile))
	s.handle(mux, "PUT /api/profile/password", s.withJWTauth(s.handleChangePassword))
	s.handle(mux, "GET /api/profile/address", s.withJWTauth(s.handleGetAddress))
	s.handle(mux, "POST /api/profile/address", s.withJWTauth(s.handleSaveAddress))
	s.handle(mux, "PUT /api/profile/address", s.withJWTauth(s.handleSaveAddress))

	s.handle(mux, "GET /api/cart", s.withJWTauth(s.handleCart))
	s.handle(mux, "POST /api/cart/add", s.withJWTauth(s.handleAddToCart))
	s.handle(mux, "POST /api/cart/items", s.withJWTauth(s.handleAddToCart))
	s.handle(mux, "PUT /api/cart/items/{id}", s.withJWTauth(s.handleUpdateCartItem))
	s.handle(mux, "DELETE /api/cart/items/{id}", s.withJWTauth(s.handleRemoveCartItem))
	s.handle(mux, "POST /api/cart/checkout", s.withJWTauth(s.handleCheckout))

	s.handle(mux, "GET /api/my-orders", s.withJWTauth(s.handleMyOrders))
	s.handle(mux, "GET /api/my-orders/{id}", s.withJWTauth(s.handleMyOrder))
	s.handle(mux, "POST /api/my-orders/{id}/cancel", s.withJWTauth(s.handleCancelOrder))
	s.handle(mux, "POST /api/payments/{orderId}/simulate", s.withJWTauth(s.handleSimulatePayment))

	s.handle(mux, "GET /api/admin/orders", s.withJWTauthAdmin(s.handleAdminOrders))
	s.handle(mux, "GET /api/admin/orders/{id}", s.withJWTauthAdmin(s.handleAdminOrder))
	s.handle(mux, "PUT /api/admin/orders/{id}/shipment", s.withJWTauthAdmin(s.handleUpsertShipment))
	s.handle(mux, "POST /api/admin/products", s.withJWTauthAdmin(s.handleCreateProduct))
	s.handle(mux, "PUT /api/admin/products/{id}", s.withJWTauthAdmin(s.handleUpdateProduct))
	s.handle(mux, "DELETE /api/admin/products/{id}", s.withJWTauthAdmin(s.handleDeleteProduct))

	return withRequestID(s.withCors(mux))
}

func (s *APIServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Println("JSON API server running on", s.listenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *APIServer) handle(mux *http.ServeMux, pattern string, f APIfunc) {
	mux.HandleFunc(pattern, s.metrics.instrument(pattern, makeHTTPHandleFunc(f)))
}

func (s *APIServer) withCors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		enableCors(w, s.corsOrigin)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCors(w http.ResponseWriter, origin string) {
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Authorization, X-Requested-With")
	w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
}

func (s *APIServer) withJWTauth(f authedFunc) APIfunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		tokenString := tokenFromHeader(r.Header.Get("Authorization"), r.Header.Get("X-Authorization"))
		if tokenString == "" {
			return ErrUnauthenticated
		}
		actor, err := s.tokens.ParseJWT(tokenString)
		if err != nil {
			return ErrUnauthenticated
		}
		return f(w, r, actor)
	}
}

func (s *APIServer) withJWTauthAdmin(f authedFunc) APIfunc {
	return s.withJWTauth(func(w http.ResponseWriter, r *http.Request, actor Actor) error {
		if !actor.IsAdmin() {
			return ErrForbidden
		}
		return f(w, r, actor)
	})
}

func makeHTTPHandleFunc(f APIfunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f(w, r); err != nil {
			status := httpStatus(err)
			msg := err.Error()
			if status == http.StatusInternalServerError {
				logf(r, "%s %s: %v", r.Method, r.URL.Path, err)
				msg = "internal server error"
			}
			WriteJSON(w, status, ApiError{Error: msg})
		}
	}
}

func httpStatus(err error) int {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, ErrInvalidProductID),
		errors.Is(err, ErrInvalidID),
		errors.Is(err, ErrProductUnavailable),
		errors.Is(err, ErrCartEmpty),
		errors.Is(err, ErrCartNotOpen),
		errors.Is(err, ErrMissingAddress),
		errors.Is(err, ErrNoPayment),
		errors.Is(err, ErrAlreadyPaid),
		errors.Is(err, ErrPaymentNotPending),
		errors.Is(err, ErrOrderNotCancellable),
		errors.Is(err, ErrInvalidShipmentStatus):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// decodeJSON reads the request body into v. An empty body leaves v as is.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return invalidf("invalid json body")
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}

type ctxKey int

const requestIDKey ctxKey = iota

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func logf(r *http.Request, format string, args ...any) {
	id, _ := r.Context().Value(requestIDKey).(string)
	log.Printf("[req %s] "+format, append([]any{id}, args...)...)
}
