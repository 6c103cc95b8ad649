package handler

import (
	"log"
	"net/http"

	"nativeteacher/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// VerifyWebhook answers the platform's GET verification handshake. Every
// input gets a defined response: 200 with the challenge on success, 403 on a
// bad token, 400 when the query is incomplete.
func (h *Handler) VerifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "" || token == "" {
		c.String(http.StatusBadRequest, "missing hub.mode or hub.verify_token")
		return
	}

	if mode == "subscribe" && token == h.VerifyToken {
		log.Println("WEBHOOK_VERIFIED")
		c.String(http.StatusOK, challenge)
		return
	}

	c.Status(http.StatusForbidden)
}

// ReceiveWebhook accepts POST deliveries. The 200 EVENT_RECEIVED ack is
// decoupled from per-event processing: a broken entry must not make the
// platform retry-storm the whole batch.
func (h *Handler) ReceiveWebhook(c *gin.Context) {
	var body models.WebhookBody
	if err := c.ShouldBindJSON(&body); err != nil {
		log.Printf("WARN: Undecodable webhook body: %v", err)
		c.Status(http.StatusNotFound)
		return
	}

	if body.Object != "page" {
		c.Status(http.StatusNotFound)
		return
	}

	h.Dispatcher.HandleWebhookBody(body)
	c.String(http.StatusOK, "EVENT_RECEIVED")
}
