package app

import (
	"fmt"
	"strings"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

// ValidateCreateOrder checks the request shape and reports every violation
// keyed by its JSON field path.
func ValidateCreateOrder(req domain.CreateOrderRequest) error {
	fields := make(map[string]string)

	if strings.TrimSpace(req.CustomerID) == "" {
		fields["customerId"] = "Customer ID must not be blank"
	}
	if len(req.Items) == 0 {
		fields["items"] = "Order must contain at least one item"
	}
	for i, it := range req.Items {
		if it.ProductID <= 0 {
			fields[fmt.Sprintf("items[%d].productId", i)] = "Product ID must be a positive number"
		}
		if it.Quantity <= 0 {
			fields[fmt.Sprintf("items[%d].quantity", i)] = "Quantity must be greater than zero"
		}
	}

	if len(fields) > 0 {
		return domain.Validation("Input validation failed", fields)
	}
	return nil
}
