package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/tienda-ecom/internal/chainpay"
)

type verifyCryptoRequest struct {
	TxHash string `json:"tx_hash"`
}

// verifyCryptoPaymentHandler accepts the buyer's transaction hash and answers
// immediately; on-chain finality is confirmed by the detached monitor.
func verifyCryptoPaymentHandler(chain *chainpay.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req verifyCryptoRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.TxHash == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tx_hash is required", "field": "tx_hash"})
			return
		}

		p, err := chain.SubmitTransaction(c.Request.Context(), c.Param("id"), req.TxHash)
		if err != nil {
			writeDomainErr(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"payment": p})
	}
}
