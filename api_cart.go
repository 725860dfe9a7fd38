package main

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// flexInt accepts a JSON number or a numeric string. Anything else decodes
// to zero, which the cart treats as "missing". Values beyond int64 saturate.
type flexInt int64

var (
	flexIntMax = decimal.NewFromInt(math.MaxInt64)
	flexIntMin = decimal.NewFromInt(math.MinInt64)
)

func (f *flexInt) UnmarshalJSON(b []byte) error {
	*f = 0
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	var s string
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
	} else {
		s = string(b)
	}
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*f = flexInt(n)
		return nil
	}
	if d, err := decimal.NewFromString(s); err == nil {
		switch {
		case d.GreaterThan(flexIntMax):
			*f = math.MaxInt64
		case d.LessThan(flexIntMin):
			*f = math.MinInt64
		default:
			*f = flexInt(d.IntPart())
		}
	}
	return nil
}

// quantity narrows f to int without wrapping on 32-bit platforms.
func (f flexInt) quantity() int {
	switch {
	case f > math.MaxInt32:
		return math.MaxInt32
	case f < math.MinInt32:
		return math.MinInt32
	}
	return int(f)
}

// AddToCartRequest: ProductID is required and positive; Quantity defaults
// to 1 when missing, non-positive or not a number.
type AddToCartRequest struct {
	ProductID flexInt `json:"product_id"`
	Quantity  flexInt `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity flexInt `json:"quantity"`
}

type checkoutResponse struct {
	Message    string          `json:"message"`
	OrderID    int64           `json:"order_id"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

type paymentResponse struct {
	Message string `json:"message"`
	OrderID int64  `json:"order_id"`
}

func (s *APIServer) handleCart(w http.ResponseWriter, r *http.Request, actor Actor) error {
	summary, err := s.shop.Cart(r.Context(), actor)
	if err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, summary)
}

func (s *APIServer) handleAddToCart(w http.ResponseWriter, r *http.Request, actor Actor) error {
	var req AddToCartRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if err := s.shop.AddToCart(r.Context(), actor, int64(req.ProductID), req.Quantity.quantity()); err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, message{Message: "product added to cart"})
}

func (s *APIServer) handleUpdateCartItem(w http.ResponseWriter, r *http.Request, actor Actor) error {
	itemID, err := pathID(r, "id")
	if err != nil {
		return err
	}
	var req UpdateCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if err := s.shop.UpdateCartItem(r.Context(), actor, itemID, req.Quantity.quantity()); err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, message{Message: "quantity updated"})
}

func (s *APIServer) handleRemoveCartItem(w http.ResponseWriter, r *http.Request, actor Actor) error {
	itemID, err := pathID(r, "id")
	if err != nil {
		return err
	}
	if err := s.shop.RemoveCartItem(r.Context(), actor, itemID); err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, message{Message: "product removed from cart"})
}

func (s *APIServer) handleCheckout(w http.ResponseWriter, r *http.Request, actor Actor) error {
	res, err := s.shop.Checkout(r.Context(), actor)
	if err != nil {
		s.metrics.checkouts.WithLabelValues(checkoutOutcome(err)).Inc()
		return err
	}
	s.metrics.checkouts.WithLabelValues("placed").Inc()
	return WriteJSON(w, http.StatusOK, checkoutResponse{
		Message:    "order created",
		OrderID:    res.OrderID,
		GrandTotal: res.GrandTotal,
	})
}

func checkoutOutcome(err error) string {
	switch httpStatus(err) {
	case http.StatusBadRequest:
		return "rejected"
	default:
		return "failed"
	}
}

func (s *APIServer) handleSimulatePayment(w http.ResponseWriter, r *http.Request, actor Actor) error {
	orderID, err := pathID(r, "orderId")
	if err != nil {
		return err
	}
	id, err := s.shop.SimulatePayment(r.Context(), orderID, actor)
	if err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, paymentResponse{
		Message: "payment simulated, the order is now paid",
		OrderID: id,
	})
}
