package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/pi-broker-gateway/internal/auth"
	"github.com/PratikDhanave/pi-broker-gateway/internal/logx"
	"github.com/PratikDhanave/pi-broker-gateway/internal/metrics"
	"github.com/PratikDhanave/pi-broker-gateway/internal/models"
	"github.com/PratikDhanave/pi-broker-gateway/internal/publisher"
	"github.com/PratikDhanave/pi-broker-gateway/internal/submission"
)

// Publisher sends one message to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, body []byte) error
}

// RegisterSubmitRoutes registers the forwarding endpoints.
//
// POST /api/submit-telemetry -> topic Telemetry
// POST /api/submit-action    -> topic Action
//
// The getTelemetry/sendAction paths serve clients still using the function-app routes.
func RegisterSubmitRoutes(r gin.IRoutes, pub Publisher) {
	telemetry := submitHandler(submission.Telemetry, pub)
	r.POST("/api/submit-telemetry", telemetry)
	r.POST("/api/getTelemetry", telemetry)
	r.POST("/api/GetTelemetry", telemetry)

	action := submitHandler(submission.Action, pub)
	r.POST("/api/submit-action", action)
	r.POST("/api/sendAction", action)
	r.POST("/api/SendAction", action)
}

// submitHandler validates the body for kind and forwards it verbatim.
// 400 on a missing field, 500 when the broker is not configured or the send fails.
func submitHandler(kind submission.Kind, pub Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			fail(c, kind, err)
			return
		}

		fields, err := kind.Parse(body)
		if err != nil {
			fail(c, kind, err)
			return
		}
		if !kind.Valid(fields) {
			metrics.RecordSubmission(kind.Topic, metrics.OutcomeInvalid)
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: kind.InvalidMessage()})
			return
		}

		err = pub.Publish(c.Request.Context(), kind.Topic, body)
		switch {
		case errors.Is(err, publisher.ErrNotConfigured):
			logx.Log.Error().Str("topic", kind.Topic).Str("key_name", auth.KeyName(c)).Msg("broker connection string is not configured")
			metrics.RecordSubmission(kind.Topic, metrics.OutcomeUnconfigured)
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: submission.NotConfiguredMessage})
		case err != nil:
			fail(c, kind, err)
		default:
			logx.Log.Info().
				Str("topic", kind.Topic).
				Str("key_name", auth.KeyName(c)).
				Str(kind.KeyField, kind.Key(fields)).
				Msgf("message sent to %s topic", kind.Topic)
			metrics.RecordSubmission(kind.Topic, metrics.OutcomeSuccess)
			c.JSON(http.StatusOK, models.SubmitResponse{Success: true, Message: kind.SuccessMessage})
		}
	}
}

func fail(c *gin.Context, kind submission.Kind, err error) {
	logx.Log.Error().Err(err).Str("topic", kind.Topic).Str("key_name", auth.KeyName(c)).Msgf("error processing %s request", kind.Name)
	metrics.RecordSubmission(kind.Topic, metrics.OutcomeError)
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   kind.FailureMessage(),
		Details: err.Error(),
	})
}
