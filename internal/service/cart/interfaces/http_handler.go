// internal/service/cart/interfaces/http_handler.go
package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"

	"storefront/internal/pkg/logger"
	"storefront/internal/service/cart/application"
	"storefront/internal/service/cart/domain"
)

// CartHTTPHandler 把购物车操作暴露为 HTTP 接口, 挂在结算服务的运维端口旁边。
type CartHTTPHandler struct {
	service *application.CartService
}

func NewCartHTTPHandler(service *application.CartService) *CartHTTPHandler {
	return &CartHTTPHandler{service: service}
}

// Register 把路由挂到 mux 上。
func (h *CartHTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /carts", h.createCart)
	mux.HandleFunc("GET /carts/{id}", h.getCart)
	mux.HandleFunc("POST /carts/{id}/items", h.addItem)
	mux.HandleFunc("DELETE /carts/{id}/items", h.removeItem)
	mux.HandleFunc("POST /carts/{id}/coupon", h.applyCoupon)
	mux.HandleFunc("POST /carts/{id}/checkout", h.checkout)
}

type itemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type couponRequest struct {
	UserID string `json:"user_id"`
	Code   string `json:"code"`
}

type checkoutRequest struct {
	UserID string `json:"user_id"`
}

func (h *CartHTTPHandler) createCart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OwnerID string `json:"owner_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	header, err := h.service.CreateCart(r.Context(), req.OwnerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, header)
}

func (h *CartHTTPHandler) getCart(w http.ResponseWriter, r *http.Request) {
	header, items, err := h.service.GetCart(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"header": header, "items": items})
}

func (h *CartHTTPHandler) addItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	qty, err := h.service.AddItem(r.Context(), r.PathValue("id"), req.ProductID, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"quantity": qty})
}

func (h *CartHTTPHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	qty, err := h.service.RemoveItem(r.Context(), r.PathValue("id"), req.ProductID, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"quantity": qty})
}

func (h *CartHTTPHandler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.service.ApplyCoupon(r.Context(), r.PathValue("id"), req.UserID, req.Code); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"applied": true})
}

func (h *CartHTTPHandler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	refID, err := h.service.Checkout(r.Context(), r.PathValue("id"), req.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reference_id": refID})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.L().Error().Err(err).Msg("failed to encode http response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrCartNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrCartInactive),
		errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrCouponNotFound),
		errors.Is(err, domain.ErrCouponAlreadyUsed),
		errors.Is(err, domain.ErrCouponThreshold),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrItemNotEnoughStock):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
