package domain

import (
	"errors"
	"fmt"
)

// Kind classifies every failure the order service can report.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindMalformedInput
	KindNotFound
	KindConflict
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_failed"
	case KindMalformedInput:
		return "malformed_input"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error is the tagged error value returned across the service. Code narrows
// the kind (for example which collaborator was unavailable) and Fields carries
// per-field validation messages.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind, and on code when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

const (
	CodeOrderNotFound       = "ORDER_NOT_FOUND"
	CodeProductNotFound     = "PRODUCT_NOT_FOUND"
	CodeOrderNumberConflict = "ORDER_NUMBER_CONFLICT"
	CodeCatalogUnavailable  = "CATALOG_UNAVAILABLE"
	CodeStoreUnavailable    = "STORE_UNAVAILABLE"
	CodeIncompleteEnrich    = "INCOMPLETE_ENRICHMENT"
)

// Sentinels for errors.Is checks.
var (
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrOrderNotFound        = &Error{Kind: KindNotFound, Code: CodeOrderNotFound}
	ErrProductNotFound      = &Error{Kind: KindNotFound, Code: CodeProductNotFound}
	ErrConflict             = &Error{Kind: KindConflict}
	ErrOrderNumberConflict  = &Error{Kind: KindConflict, Code: CodeOrderNumberConflict}
	ErrUnavailable          = &Error{Kind: KindUnavailable}
	ErrCatalogUnavailable   = &Error{Kind: KindUnavailable, Code: CodeCatalogUnavailable}
	ErrStoreUnavailable     = &Error{Kind: KindUnavailable, Code: CodeStoreUnavailable}
	ErrValidation           = &Error{Kind: KindValidation}
	ErrMalformedInput       = &Error{Kind: KindMalformedInput}
	ErrIncompleteEnrichment = &Error{Kind: KindInternal, Code: CodeIncompleteEnrich}
)

func Validation(msg string, fields map[string]string) error {
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

func MalformedInput(msg string, cause error) error {
	return &Error{Kind: KindMalformedInput, Message: msg, Err: cause}
}

func OrderNotFound(key string) error {
	return &Error{Kind: KindNotFound, Code: CodeOrderNotFound, Message: "Order not found with " + key}
}

func ProductNotFound(productID int64) error {
	return &Error{
		Kind:    KindNotFound,
		Code:    CodeProductNotFound,
		Message: fmt.Sprintf("Product not found with id=%d", productID),
	}
}

func OrderNumberConflict(orderNumber string, cause error) error {
	return &Error{
		Kind:    KindConflict,
		Code:    CodeOrderNumberConflict,
		Message: fmt.Sprintf("Order number %s already exists", orderNumber),
		Err:     cause,
	}
}

func CatalogUnavailable(productID int64, cause error) error {
	return &Error{
		Kind:    KindUnavailable,
		Code:    CodeCatalogUnavailable,
		Message: fmt.Sprintf("Product catalog unavailable while resolving product id=%d", productID),
		Err:     cause,
	}
}

func StoreUnavailable(op string, cause error) error {
	return &Error{
		Kind:    KindUnavailable,
		Code:    CodeStoreUnavailable,
		Message: "Order store unavailable during " + op,
		Err:     cause,
	}
}

// KindOf reports the kind of err; anything unclassified is internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
