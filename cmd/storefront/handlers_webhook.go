package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/tienda-ecom/internal/payment"
)

// gatewayWebhookHandler receives asynchronous card-gateway events. Per
// gateway convention receipt is acknowledged regardless of internal outcome;
// only an invalid signature is rejected, and that takes no state action.
func gatewayWebhookHandler(proc *payment.WebhookProcessor, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
			return
		}

		sig := c.GetHeader("X-Gateway-Signature")
		if err := payment.VerifySignature(body, sig, secret, time.Now()); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}

		var ev payment.Event
		if err := json.Unmarshal(body, &ev); err != nil || ev.ID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event"})
			return
		}

		if err := proc.Process(c.Request.Context(), ev); err != nil {
			// The event is not recorded as handled until its effect lands, so
			// a 5xx makes the gateway redeliver and the update is retried.
			log.Printf("[webhook] process %s failed: %v", ev.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}
