package users

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"alcovian/internal/api"
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
	msgSaved             = "User saved successfully"
	msgExists            = "User already exists"
	msgMissingExternalID = "Clerk ID is required"
	msgMissingEmail      = "Email is required"
	msgBadCreatedAt      = "createdAt must be an RFC 3339 timestamp"
	msgSaveFailed        = "Failed to save user. Please try again later."
)

var (
	createUser          = store.CreateUser
	getUserByExternalID = store.GetUserByExternalID
	now                 = time.Now
)

// UpsertUserHandler mirrors an identity provider user into local storage.
// Repeating the call for a known clerkId succeeds with existed=true.
// With strictEmail the address must pass the same checks as a signup;
// otherwise it is only trimmed and lower-cased.
// @Summary     Save the signed-in user
// @Description Stores the identity provider's user once; duplicate calls report existed=true
// @Tags        users
// @Accept      json
// @Produce     json
// @Param       body body     api.UpsertUserRequest true "User"
// @Success     200  {object} dto.UpsertUserResponse
// @Failure     400  {object} dto.HTTPError
// @Failure     500  {object} dto.HTTPError
// @Failure     503  {object} dto.HTTPError
// @Router      /users [post]
func UpsertUserHandler(db database.DB, notifier events.Notifier, strictEmail bool, timeout time.Duration) echo.HandlerFunc {
	if notifier == nil {
		notifier = events.NopNotifier{}
	}
	return func(c echo.Context) error {
		body, ok := handler.DecodeObject(c)
		if !ok {
			metrics.UsersUpserted.WithLabelValues("invalid").Inc()
			return c.JSON(http.StatusBadRequest, dto.HTTPError{Error: handler.MsgInvalidBody})
		}

		externalID, _ := handler.StringField(body, "clerkId")
		email, _ := handler.StringField(body, "email")
		req := api.UpsertUserRequest{
			ClerkID:   strings.TrimSpace(externalID),
			Email:     strings.TrimSpace(email),
			FirstName: handler.OptionalString(body, "firstName"),
			LastName:  handler.OptionalString(body, "lastName"),
			CreatedAt: handler.OptionalString(body, "createdAt"),
		}
		if err := c.Validate(&req); err != nil {
			metrics.UsersUpserted.WithLabelValues("invalid").Inc()
			switch validation.FailedField(err) {
			case "ClerkID":
				return c.JSON(http.StatusBadRequest, dto.HTTPError{Error: msgMissingExternalID})
			case "Email":
				return c.JSON(http.StatusBadRequest, dto.HTTPError{Error: msgMissingEmail})
			case "CreatedAt":
				return c.JSON(http.StatusBadRequest, dto.HTTPError{Error: msgBadCreatedAt})
			default:
				return c.JSON(http.StatusBadRequest, dto.HTTPError{Error: handler.MsgInvalidBody})
			}
		}
		// OptionalString drops non-string values, so the validator never sees them
		if raw, present := body["createdAt"]; present && raw != nil {
			if _, isString := raw.(string); !isString {
				metrics.UsersUpserted.WithLabelValues("invalid").Inc()
				return c.JSON(http.StatusBadRequest, dto.HTTPError{Error: msgBadCreatedAt})
			}
		}

		normalized := mailaddr.Normalize(req.Email)
		if strictEmail {
			var err error
			if normalized, err = mailaddr.Validate(req.Email); err != nil {
				metrics.UsersUpserted.WithLabelValues("invalid").Inc()
				metrics.EmailValidationFailures.WithLabelValues(mailaddr.Kind(err)).Inc()
				return c.JSON(http.StatusBadRequest, dto.HTTPError{Error: mailaddr.Message(err)})
			}
		}

		requestID := handler.RequestID(c)
		log := logger.WithRequestID(requestID)

		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		defer cancel()

		user, err := createUser(ctx, db, &model.User{
			ExternalID: req.ClerkID,
			Email:      normalized,
			FirstName:  req.FirstName,
			LastName:   req.LastName,
			CreatedAt:  createdAt(req.CreatedAt),
		})
		switch {
		case errors.Is(err, store.ErrConflict):
			resp := dto.UpsertUserResponse{OK: true, Message: msgExists, Existed: true}
			if existing, err := getUserByExternalID(ctx, db, req.ClerkID); err == nil {
				resp.ID = &existing.ID
			} else {
				log.Warn().Err(err).Str("external_id", req.ClerkID).Msg("lookup existing user failed")
			}
			metrics.UsersUpserted.WithLabelValues("existed").Inc()
			return c.JSON(http.StatusOK, resp)
		case errors.Is(err, database.ErrUnconfigured):
			metrics.UsersUpserted.WithLabelValues("unavailable").Inc()
			log.Error().Err(err).Msg("user storage not configured")
			return c.JSON(http.StatusServiceUnavailable, dto.HTTPError{Error: handler.MsgUnavailable})
		case err != nil:
			metrics.UsersUpserted.WithLabelValues("error").Inc()
			log.Error().Err(err).Str("external_id", req.ClerkID).Msg("create user failed")
			return c.JSON(http.StatusInternalServerError, dto.HTTPError{Error: msgSaveFailed})
		}

		notifier.Notify(events.WithRequestID(c.Request().Context(), requestID), events.RoutingUserCreated, events.UserCreated{
			ID:         user.ID,
			ExternalID: user.ExternalID,
			Email:      user.Email,
		})
		metrics.UsersUpserted.WithLabelValues("created").Inc()
		log.Info().
			Int64("user_id", user.ID).
			Str("external_id", user.ExternalID).
			Str("email_fp", logger.EmailFingerprint(user.Email)).
			Msg("user saved")

		return c.JSON(http.StatusOK, dto.UpsertUserResponse{
			OK:      true,
			Message: msgSaved,
			ID:      &user.ID,
		})
	}
}

// createdAt returns the validated timestamp in UTC, or now when the
// request left it out.
func createdAt(s *string) time.Time {
	if s == nil {
		return now().UTC()
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return now().UTC()
	}
	return t.UTC()
}
