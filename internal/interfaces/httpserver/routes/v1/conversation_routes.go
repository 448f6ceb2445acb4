package v1

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zapsales/supervision-api/internal/interfaces/httpserver/handlers"
	"github.com/zapsales/supervision-api/internal/interfaces/httpserver/middlewares"
	"github.com/zapsales/supervision-api/internal/interfaces/httpserver/requests"
	"github.com/zapsales/supervision-api/internal/interfaces/httpserver/responses"
	"github.com/zapsales/supervision-api/internal/utils/platformerrors"
)

// HandshakeEvent opens every conversation stream.
const HandshakeEvent = "connected"

// RegisterConversationRoutes registers the supervision read and live-update routes.
func RegisterConversationRoutes(router gin.IRoutes, conversations *handlers.ConversationHandler, stream *handlers.StreamHandler) {
	router.GET("/conversations/tab-counts", tabCounts(conversations))
	router.GET("/conversations/:id", getConversation(conversations))
	router.GET("/conversations/:id/stream", streamConversation(stream))
	router.POST("/conversations/:id/events", publishEvent(stream))
}

// tabCounts godoc
// @Summary      Count conversations per supervision tab
// @Tags         Supervision API
// @Produce      json
// @Param        instance_id query string false "Messaging instance"
// @Success      200 {object} triage.TabCounts
// @Router       /conversations/tab-counts [get]
func tabCounts(handler *handlers.ConversationHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := handler.TabCounts(c.Request.Context(), c.Query("instance_id"))
		c.Header(middlewares.TabCountsSourceHeader, string(result.Source))
		c.JSON(http.StatusOK, result.Counts)
	}
}

// getConversation godoc
// @Summary      Get a conversation with its supervision queue
// @Tags         Supervision API
// @Produce      json
// @Param        id path string true "Conversation ID"
// @Success      200 {object} triage.Detail
// @Failure      404 {object} platformerrors.HTTPErrorResponse
// @Router       /conversations/{id} [get]
func getConversation(handler *handlers.ConversationHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		detail, err := handler.Detail(c.Request.Context(), c.Param("id"))
		if err != nil {
			responses.HandleError(c, err, "conversation not found")
			return
		}
		c.JSON(http.StatusOK, detail)
	}
}

// streamConversation godoc
// @Summary      Stream live events of a conversation
// @Tags         Supervision API
// @Produce      text/event-stream
// @Param        id path string true "Conversation ID"
// @Router       /conversations/{id}/stream [get]
func streamConversation(handler *handlers.StreamHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		conversationID := c.Param("id")
		flusher, ok := middlewares.PrepareSSE(c)
		if !ok {
			platformerrors.WriteInternalError(c, "streaming not supported")
			return
		}

		events, cancel := handler.Subscribe(conversationID)
		defer cancel()

		c.Status(http.StatusOK)
		handshake, _ := json.Marshal(responses.StreamHandshake{
			ConversationID: conversationID,
			HeartbeatMs:    handler.Heartbeat().Milliseconds(),
		})
		if err := writeEvent(c.Writer, "", HandshakeEvent, handshake); err != nil {
			return
		}
		flusher.Flush()

		ticker := time.NewTicker(handler.Heartbeat())
		defer ticker.Stop()

		ctx := c.Request.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case event, open := <-events:
				if !open {
					return
				}
				if err := writeEvent(c.Writer, event.ID, string(event.Type), event.Data); err != nil {
					return
				}
				flusher.Flush()
			case <-ticker.C:
				if _, err := io.WriteString(c.Writer, ": ping\n\n"); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

// publishEvent godoc
// @Summary      Publish a live event for a conversation
// @Tags         Supervision API
// @Accept       json
// @Produce      json
// @Param        id path string true "Conversation ID"
// @Param        request body requests.PublishEventRequest true "Event"
// @Success      202 {object} responses.EventAcceptedResponse
// @Failure      400 {object} platformerrors.HTTPErrorResponse
// @Router       /conversations/{id}/events [post]
func publishEvent(handler *handlers.StreamHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req requests.PublishEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			platformerrors.WriteValidationError(c, "invalid request body")
			return
		}

		conversationID := c.Param("id")
		event, err := handler.PublishRequest(c.Request.Context(), conversationID, &req)
		if err != nil {
			responses.HandleError(c, err, "failed to publish event")
			return
		}

		c.JSON(http.StatusAccepted, responses.EventAcceptedResponse{
			ID:             event.ID,
			ConversationID: conversationID,
			Type:           event.Type,
			Status:         "accepted",
		})
	}
}

// writeEvent writes one SSE frame. Payloads are compacted onto a single data line.
func writeEvent(w io.Writer, id, name string, data []byte) error {
	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return err
	}
	if id != "" {
		if _, err := fmt.Fprintf(w, "id: %s\n", id); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, compact.Bytes())
	return err
}
