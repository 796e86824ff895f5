// File: internal/handler/enrollments/signup.go
package enrollments

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"alcovian/internal/api"
	"alcovian/internal/cache"
	"alcovian/internal/database"
	"alcovian/internal/dto"
	"alcovian/internal/events"
	"alcovian/internal/handler"
	"alcovian/internal/logger"
	"alcovian/internal/mailaddr"
	"alcovian/internal/metrics"
	"alcovian/internal/model"
	"alcovian/internal/store"
	"alcovian/internal/validation"

	"github.com/labstack/echo/v4"
)

const (
	msgSubmitted    = "Enrollment submitted successfully"
	msgMissingName  = "Name is required"
	msgMissingEmail = "Valid email is required"
	msgSubmitFailed = "Failed to process enrollment. Please try again later."
)

var createEnrollment = store.CreateEnrollment

// SignupHandler records an enrollment interest form.
// @Summary     Submit an enrollment
// @Description Validates name and email, stores the enrollment and returns its id. Email addresses with repeated or non-letter TLDs are rejected.
// @Tags        enrollments
// @Accept      json
// @Produce     json
// @Param       body body     api.SignupRequest true "Enrollment form"
// @Success     200  {object} dto.SignupResponse
// @Failure     400  {object} dto.HTTPError
// @Failure     429  {object} dto.HTTPError
// @Failure     500  {object} dto.HTTPError
// @Failure     503  {object} dto.HTTPError
// @Router      /signup [post]
func SignupHandler(db database.DB, cch cache.Cache, notifier events.Notifier, timeout time.Duration) echo.HandlerFunc {
	if notifier == nil {
		notifier = events.NopNotifier{}
	}
	return func(c echo.Context) error {
		body, ok := handler.DecodeObject(c)
		if !ok {
			metrics.EnrollmentsSubmitted.WithLabelValues("invalid").Inc()
			return c.JSON(http.StatusBadRequest, dto.HTTPError{Error: handler.MsgInvalidBody})
		}

		name, _ := handler.StringField(body, "name")
		email, _ := handler.StringField(body, "email")
		req := api.SignupRequest{
			Name:    strings.TrimSpace(name),
			Email:   email,
			Context: handler.OptionalString(body, "context"),
		}
		if err := c.Validate(&req); err != nil {
			metrics.EnrollmentsSubmitted.WithLabelValues("invalid").Inc()
			switch validation.FailedField(err) {
			case "Name":
				return c.JSON(http.StatusBadRequest, dto.HTTPError{Error: msgMissingName})
			case "Email":
				return c.JSON(http.StatusBadRequest, dto.HTTPError{Error: msgMissingEmail})
			default:
				return c.JSON(http.StatusBadRequest, dto.HTTPError{Error: handler.MsgInvalidBody})
			}
		}

		normalized, err := mailaddr.Validate(req.Email)
		if err != nil {
			metrics.EnrollmentsSubmitted.WithLabelValues("invalid").Inc()
			metrics.EmailValidationFailures.WithLabelValues(mailaddr.Kind(err)).Inc()
			return c.JSON(http.StatusBadRequest, dto.HTTPError{Error: mailaddr.Message(err)})
		}

		requestID := handler.RequestID(c)
		log := logger.WithRequestID(requestID)

		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		defer cancel()

		created, err := createEnrollment(ctx, db, &model.Enrollment{
			Name:    req.Name,
			Email:   normalized,
			Context: req.Context,
		})
		if err != nil {
			if errors.Is(err, database.ErrUnconfigured) {
				metrics.EnrollmentsSubmitted.WithLabelValues("unavailable").Inc()
				log.Error().Err(err).Msg("enrollment storage not configured")
				return c.JSON(http.StatusServiceUnavailable, dto.HTTPError{Error: handler.MsgUnavailable})
			}
			metrics.EnrollmentsSubmitted.WithLabelValues("error").Inc()
			log.Error().Err(err).Str("email_fp", logger.EmailFingerprint(normalized)).Msg("create enrollment failed")
			return c.JSON(http.StatusInternalServerError, dto.HTTPError{Error: msgSubmitFailed})
		}

		if cch != nil {
			if err := cch.Incr(ctx, listVersionKey).Err(); err != nil {
				log.Warn().Err(err).Msg("invalidate enrollment list cache")
			}
		}
		notifier.Notify(events.WithRequestID(c.Request().Context(), requestID), events.RoutingEnrollmentCreated, events.EnrollmentCreated{
			ID:        created.ID,
			Email:     created.Email,
			CreatedAt: created.CreatedAt,
		})
		metrics.EnrollmentsSubmitted.WithLabelValues("created").Inc()
		log.Info().
			Int64("enrollment_id", created.ID).
			Str("email_fp", logger.EmailFingerprint(created.Email)).
			Bool("has_context", created.Context != nil).
			Msg("enrollment submitted")

		return c.JSON(http.StatusOK, dto.SignupResponse{
			OK:        true,
			Message:   msgSubmitted,
			ID:        created.ID,
			Email:     created.Email,
			CreatedAt: created.CreatedAt,
		})
	}
}
