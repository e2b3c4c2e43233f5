package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/qualstore/store-backend/internal/core/domain"
	"github.com/qualstore/store-backend/internal/core/service"
	"github.com/qualstore/store-backend/internal/port"
)

type HTTPHandler struct {
	products *service.ProductService
	orders   *service.OrderService
	items    *service.OrderItemService
	logger   *zap.Logger
}

func NewHTTPHandler(products *service.ProductService, orders *service.OrderService,
	items *service.OrderItemService, logger *zap.Logger) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{products: products, orders: orders, items: items, logger: logger}
}

type productRequest struct {
	Name               string  `json:"name"`
	Description        string  `json:"description"`
	Price              float64 `json:"price"`
	DiscountPercentage float64 `json:"discount_percentage"`
	UnitsInStock       int64   `json:"units_in_stock"`
}

type productResponse struct {
	ID                 int64   `json:"id"`
	Name               string  `json:"name"`
	Description        string  `json:"description"`
	Price              float64 `json:"price"`
	DiscountPercentage float64 `json:"discount_percentage"`
	UnitsInStock       int64   `json:"units_in_stock"`
}

type stockResponse struct {
	ProductID    int64 `json:"product_id"`
	UnitsInStock int64 `json:"units_in_stock"`
}

type createOrderRequest struct {
	UserID        int64   `json:"user_id"`
	DeliveryPrice float64 `json:"delivery_price"`
	RequestID     string  `json:"request_id,omitempty"`
}

type orderItemResponse struct {
	ID        int64 `json:"id"`
	OrderID   int64 `json:"order_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type orderResponse struct {
	ID            int64               `json:"id"`
	UserID        int64               `json:"user_id"`
	Status        string              `json:"status"`
	DeliveryPrice float64             `json:"delivery_price"`
	StartDate     time.Time           `json:"start_date"`
	DeliveryDate  *time.Time          `json:"delivery_date,omitempty"`
	Items         []orderItemResponse `json:"items"`
}

type orderPageResponse struct {
	Content       []orderResponse `json:"content"`
	TotalElements int64           `json:"total_elements"`
	TotalPages    int64           `json:"total_pages"`
	Page          int             `json:"page"`
	Size          int             `json:"size"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type addItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	p, err := h.products.CreateProduct(r.Context(), &domain.Product{
		Name:               req.Name,
		Description:        req.Description,
		Price:              req.Price,
		DiscountPercentage: req.DiscountPercentage,
		UnitsInStock:       req.UnitsInStock,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(p))
}

func (h *HTTPHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.products.GetProduct(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	list, err := h.products.ListProducts(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]productResponse, 0, len(list))
	for i := range list {
		out = append(out, toProductResponse(&list[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) GetProductStock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	stock, err := h.products.GetStock(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stockResponse{ProductID: id, UnitsInStock: stock})
}

func (h *HTTPHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.orders.CreateOrder(r.Context(), req.UserID, req.DeliveryPrice, req.RequestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	order, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *HTTPHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	req := port.PageRequest{Number: 0, Size: 20, SortBy: r.URL.Query().Get("sort")}
	var err error
	if v := r.URL.Query().Get("page"); v != "" {
		if req.Number, err = strconv.Atoi(v); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid page"})
			return
		}
	}
	if v := r.URL.Query().Get("size"); v != "" {
		if req.Size, err = strconv.Atoi(v); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid size"})
			return
		}
	}
	if v := r.URL.Query().Get("userId"); v != "" {
		if req.UserID, err = strconv.ParseInt(v, 10, 64); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid userId"})
			return
		}
	}

	page, err := h.orders.GetOrdersPaginated(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	content := make([]orderResponse, 0, len(page.Content))
	for i := range page.Content {
		content = append(content, toOrderResponse(&page.Content[i]))
	}
	writeJSON(w, http.StatusOK, orderPageResponse{
		Content:       content,
		TotalElements: page.TotalElements,
		TotalPages:    page.TotalPages,
		Page:          page.Number,
		Size:          page.Size,
	})
}

func (h *HTTPHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	// Unknown status strings are rejected here, before the core sees them.
	status, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), id, status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *HTTPHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.orders.DeleteOrder(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "order deleted"})
}

func (h *HTTPHandler) AddOrderItem(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "orderId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	item, err := h.items.AddItem(r.Context(), orderID, req.ProductID, req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toItemResponse(item))
}

func (h *HTTPHandler) ModifyOrderItemQuantity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	quantity, err := strconv.Atoi(r.URL.Query().Get("quantity"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid quantity"})
		return
	}

	item, err := h.items.ModifyQuantity(r.Context(), id, quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item))
}

func (h *HTTPHandler) DeleteOrderItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.items.DeleteItem(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "order item deleted"})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeError maps the core taxonomy onto response categories: not-found,
// bad-request, conflict, unavailable.
func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, service.ErrDuplicateRequest):
		status = http.StatusConflict
		message = err.Error()
	case errors.Is(err, domain.ErrContention):
		status = http.StatusServiceUnavailable
		message = err.Error()
	default:
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.Error(err))
	}

	writeJSON(w, status, errorResponse{Error: message})
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrValidation
	}
	return id, nil
}

func toProductResponse(p *domain.Product) productResponse {
	return productResponse{
		ID:                 p.ID,
		Name:               p.Name,
		Description:        p.Description,
		Price:              p.Price,
		DiscountPercentage: p.DiscountPercentage,
		UnitsInStock:       p.UnitsInStock,
	}
}

func toItemResponse(it *domain.OrderItem) orderItemResponse {
	return orderItemResponse{ID: it.ID, OrderID: it.OrderID, ProductID: it.ProductID, Quantity: it.Quantity}
}

func toOrderResponse(o *domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for i := range o.Items {
		items = append(items, toItemResponse(&o.Items[i]))
	}
	return orderResponse{
		ID:            o.ID,
		UserID:        o.UserID,
		Status:        string(o.Status),
		DeliveryPrice: o.DeliveryPrice,
		StartDate:     o.StartDate,
		DeliveryDate:  o.DeliveryDate,
		Items:         items,
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
