package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/agrobazaar/marketplace/internal/core/domain"
	"github.com/agrobazaar/marketplace/internal/core/service"
)

type HTTPHandler struct {
	carts    *service.CartService
	checkout *service.CheckoutService
	orders   *service.OrderService
	ratings  *service.RatingService
	logger   *zap.Logger
}

func NewHTTPHandler(carts *service.CartService, checkout *service.CheckoutService,
	orders *service.OrderService, ratings *service.RatingService, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{
		carts:    carts,
		checkout: checkout,
		orders:   orders,
		ratings:  ratings,
		logger:   logger,
	}
}

// Register wires every endpoint onto mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HealthCheck)
	mux.HandleFunc("/api/cart", h.CartSnapshot)
	mux.HandleFunc("/api/cart/items", h.CartItems)
	mux.HandleFunc("/api/checkout", h.PlaceOrder)
	mux.HandleFunc("/api/orders/status", h.UpdateOrderStatus)
	mux.HandleFunc("/api/orders/cancel", h.CancelOrder)
	mux.HandleFunc("/api/ratings", h.SubmitRating)
	mux.HandleFunc("/api/products/rating-summary", h.RatingSummary)
}

type cartItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type cartResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message,omitempty"`
	CartTotal     string `json:"cart_total"`
	CartItemCount int    `json:"cart_item_count"`
}

type checkoutRequest struct {
	DeliveryAddress string `json:"delivery_address"`
	PaymentMethod   string `json:"payment_method"`
}

type checkoutResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message,omitempty"`
	OrderNumber string `json:"order_number,omitempty"`
}

type orderStatusRequest struct {
	OrderID   int64  `json:"order_id"`
	NewStatus string `json:"new_status"`
}

type orderStatusResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	NewStatus string `json:"new_status,omitempty"`
}

type cancelOrderRequest struct {
	OrderID int64  `json:"order_id"`
	Reason  string `json:"reason"`
}

type ratingRequest struct {
	ProductID int64  `json:"product_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

type statusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// CartItems dispatches add/update/remove on the method, matching the cart
// operations' add-increments vs set-overwrites semantics.
func (h *HTTPHandler) CartItems(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, statusResponse{Message: "missing X-User-ID header"})
		return
	}

	var req cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Message: "invalid request body"})
		return
	}

	var (
		cart    *domain.Cart
		message string
		err     error
	)
	switch r.Method {
	case http.MethodPost:
		cart, err = h.carts.AddItem(r.Context(), userID, req.ProductID, req.Quantity)
		message = "added to cart"
	case http.MethodPut:
		cart, err = h.carts.UpdateItem(r.Context(), userID, req.ProductID, req.Quantity)
		message = "cart updated"
	case http.MethodDelete:
		cart, err = h.carts.RemoveItem(r.Context(), userID, req.ProductID)
		message = "removed from cart"
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cartResponse{
		Success:       true,
		Message:       message,
		CartTotal:     cart.TotalAmount().StringFixed(2),
		CartItemCount: cart.TotalItems(),
	})
}

func (h *HTTPHandler) CartSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, statusResponse{Message: "missing X-User-ID header"})
		return
	}

	cart, err := h.carts.Snapshot(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	type lineView struct {
		ProductID   int64  `json:"product_id"`
		ProductName string `json:"product_name"`
		Quantity    int    `json:"quantity"`
		UnitPrice   string `json:"unit_price"`
		LineTotal   string `json:"line_total"`
	}
	lines := make([]lineView, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, lineView{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.StringFixed(2),
			LineTotal:   item.LineTotal().StringFixed(2),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":           lines,
		"cart_total":      cart.TotalAmount().StringFixed(2),
		"cart_item_count": cart.TotalItems(),
	})
}

func (h *HTTPHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, checkoutResponse{Message: "missing X-User-ID header"})
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, checkoutResponse{Message: "invalid request body"})
		return
	}

	order, err := h.checkout.PlaceOrder(r.Context(), userID, req.DeliveryAddress,
		req.PaymentMethod, r.Header.Get("X-Request-ID"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, checkoutResponse{
		Success:     true,
		Message:     "order placed successfully",
		OrderNumber: order.OrderNumber,
	})
}

func (h *HTTPHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	requesterID := r.Header.Get("X-User-ID")
	if requesterID == "" {
		writeJSON(w, http.StatusUnauthorized, orderStatusResponse{Message: "missing X-User-ID header"})
		return
	}

	var req orderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, orderStatusResponse{Message: "invalid request body"})
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), req.OrderID, requesterID,
		domain.OrderStatus(req.NewStatus))
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, orderStatusResponse{
		Success:   true,
		NewStatus: string(order.Status),
	})
}

func (h *HTTPHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	requesterID := r.Header.Get("X-User-ID")
	if requesterID == "" {
		writeJSON(w, http.StatusUnauthorized, statusResponse{Message: "missing X-User-ID header"})
		return
	}

	var req cancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Message: "invalid request body"})
		return
	}

	if _, err := h.orders.CancelOrder(r.Context(), req.OrderID, requesterID, req.Reason); err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Success: true,
		Message: "order cancelled, product quantities restored",
	})
}

func (h *HTTPHandler) SubmitRating(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, statusResponse{Message: "missing X-User-ID header"})
		return
	}

	var req ratingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Message: "invalid request body"})
		return
	}

	if err := h.ratings.SubmitRating(r.Context(), userID, req.ProductID, req.Rating, req.Comment); err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Success: true, Message: "thanks for your review"})
}

func (h *HTTPHandler) RatingSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	productID, err := strconv.ParseInt(r.URL.Query().Get("product_id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Message: "invalid product_id"})
		return
	}

	summary, err := h.ratings.ProductSummary(r.Context(), productID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeError maps the core's error kinds onto the HTTP surface. Unknown
// errors are logged and hidden behind a generic message.
func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch domain.KindOf(err) {
	case domain.KindValidation:
		status = http.StatusBadRequest
		message = err.Error()
	case domain.KindNotFound:
		status = http.StatusNotFound
		message = err.Error()
	case domain.KindAuthorization:
		status = http.StatusForbidden
		message = err.Error()
	case domain.KindConflict:
		status = http.StatusConflict
		message = err.Error()
	case domain.KindTransient:
		status = http.StatusServiceUnavailable
		message = "temporarily unavailable, please retry"
	default:
		h.logger.Error("unhandled error", zap.Error(err))
	}

	writeJSON(w, status, statusResponse{Success: false, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
