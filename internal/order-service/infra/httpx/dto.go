package httpx

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

type CreateOrderRequest struct {
	CustomerID string               `json:"customerId"`
	Items      []CreateOrderItemDTO `json:"items"`
}

type CreateOrderItemDTO struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// Amount renders a monetary value as a JSON number at currency precision.
type Amount decimal.Decimal

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(a).StringFixed(domain.CurrencyScale)), nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	return (*decimal.Decimal)(a).UnmarshalJSON(b)
}

func (a Amount) Decimal() decimal.Decimal { return decimal.Decimal(a) }

type OrderResponse struct {
	ID          int64               `json:"id"`
	OrderNumber string              `json:"orderNumber"`
	CustomerID  string              `json:"customerId"`
	Status      string              `json:"status"`
	TotalAmount Amount              `json:"totalAmount"`
	Items       []OrderItemResponse `json:"items"`
	Audit       AuditResponse       `json:"audit"`
}

type OrderItemResponse struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	Price       Amount `json:"price"`
	Quantity    int    `json:"quantity"`
	TotalPrice  Amount `json:"totalPrice"`
}

type AuditResponse struct {
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy string    `json:"createdBy"`
	UpdatedAt time.Time `json:"updatedAt"`
	UpdatedBy string    `json:"updatedBy"`
}

type OrderSummaryResponse struct {
	ID          int64  `json:"id"`
	OrderNumber string `json:"orderNumber"`
	CustomerID  string `json:"customerId"`
	Status      string `json:"status"`
	TotalAmount Amount `json:"totalAmount"`
}

type SuccessResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Message   string    `json:"message"`
	Data      any       `json:"data"`
	Path      string    `json:"path"`
}

type ErrorResponse struct {
	Timestamp   time.Time         `json:"timestamp"`
	Status      int               `json:"status"`
	Error       string            `json:"error"`
	Message     string            `json:"message"`
	Path        string            `json:"path"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

func (r CreateOrderRequest) toDomain() domain.CreateOrderRequest {
	items := make([]domain.LineRequest, len(r.Items))
	for i, it := range r.Items {
		items[i] = domain.LineRequest{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return domain.CreateOrderRequest{CustomerID: r.CustomerID, Items: items}
}

func mapOrderToResponse(o *domain.Order) OrderResponse {
	return OrderResponse{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		CustomerID:  o.CustomerID,
		Status:      string(o.Status),
		TotalAmount: Amount(o.TotalAmount),
		Items:       mapItems(o.Items),
		Audit: AuditResponse{
			CreatedAt: o.Audit.CreatedAt,
			CreatedBy: o.Audit.CreatedBy,
			UpdatedAt: o.Audit.UpdatedAt,
			UpdatedBy: o.Audit.UpdatedBy,
		},
	}
}

func mapItems(items []domain.LineItem) []OrderItemResponse {
	out := make([]OrderItemResponse, len(items))
	for i, it := range items {
		out[i] = OrderItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Price:       Amount(it.Price),
			Quantity:    it.Quantity,
			TotalPrice:  Amount(it.TotalPrice),
		}
	}
	return out
}

func mapOrders(orders []domain.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = mapOrderToResponse(&orders[i])
	}
	return out
}

func mapSummaries(summaries []domain.OrderSummary) []OrderSummaryResponse {
	out := make([]OrderSummaryResponse, len(summaries))
	for i, s := range summaries {
		out[i] = OrderSummaryResponse{
			ID:          s.ID,
			OrderNumber: s.OrderNumber,
			CustomerID:  s.CustomerID,
			Status:      string(s.Status),
			TotalAmount: Amount(s.TotalAmount),
		}
	}
	return out
}
