package main

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/tienda-ecom/internal/cart"
	"github.com/MikeMC777/tienda-ecom/internal/catalog"
	"github.com/MikeMC777/tienda-ecom/internal/chainpay"
	"github.com/MikeMC777/tienda-ecom/internal/httpx"
	"github.com/MikeMC777/tienda-ecom/internal/order"
)

// identity resolves the acting cart owner: authenticated user id first,
// anonymous session id otherwise.
func identity(c *gin.Context) (cart.Owner, bool) {
	owner := cart.Owner{UserID: httpx.UserID(c), SessionID: httpx.SessionID(c)}
	if owner.Empty() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication or X-Session-ID header required"})
		return owner, false
	}
	return owner, true
}

// writeDomainErr maps domain errors onto HTTP responses with enough structure
// for the UI to react ("item X is out of stock", "your cart is empty") while
// keeping upstream internals out of the body.
func writeDomainErr(c *gin.Context, err error) {
	var stockErr *catalog.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":         "insufficient_stock",
			"product_id":    stockErr.ProductID,
			"product_title": stockErr.ProductTitle,
			"requested":     stockErr.Requested,
			"available":     stockErr.Available,
		})
	case errors.Is(err, order.ErrEmptyCart):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "empty_cart"})
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, cart.ErrNotFound),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, chainpay.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, chainpay.ErrInvalidTransaction),
		errors.Is(err, chainpay.ErrTxNotFound):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_transaction"})
	case errors.Is(err, chainpay.ErrAlreadySubmitted):
		c.JSON(http.StatusConflict, gin.H{"error": "payment_already_submitted"})
	default:
		log.Printf("[http] internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
