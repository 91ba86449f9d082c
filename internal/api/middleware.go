package api

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	apperrors "github.com/gmsas95/idscan/internal/errors"
	"github.com/gmsas95/idscan/internal/security"
)

func (s *Server) authMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth := c.Get("Authorization")
		if auth == "" {
			return c.Status(401).JSON(fiber.Map{"error": "missing authorization header", "code": apperrors.ErrUnauthorized.Code})
		}

		tokenString := strings.TrimPrefix(auth, "Bearer ")
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			return []byte(s.config.Security.JWTSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

		if err != nil || !token.Valid {
			return c.Status(401).JSON(fiber.Map{"error": "invalid token", "code": apperrors.ErrUnauthorized.Code})
		}

		if sub, err := token.Claims.GetSubject(); err == nil {
			c.Locals("subject", sub)
		}
		return c.Next()
	}
}

// checkPassword accepts any password when none is configured
func (s *Server) checkPassword(given string) bool {
	want := s.config.Security.AdminPassword
	if want == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(want)) == 1
}

func (s *Server) metricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			} else {
				status = statusFor(err)
			}
		}
		s.metrics.RecordRequest(status < 500)
		return err
	}
}

// errorHandler renders AppErrors as {"error", "code"} with a matching status
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	status := statusFor(err)
	if status >= 500 {
		s.logger.Error("Request failed",
			zap.String("path", c.Path()),
			zap.String("error", security.RedactPII(err.Error())),
		)
	}

	msg := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	return c.Status(status).JSON(fiber.Map{"error": msg, "code": apperrors.GetCode(err)})
}

func statusFor(err error) int {
	switch apperrors.GetCode(err) {
	case apperrors.ErrNotFound.Code:
		return fiber.StatusNotFound
	case apperrors.ErrBadRequest.Code:
		return fiber.StatusBadRequest
	case apperrors.ErrImageUnreadable.Code:
		return fiber.StatusUnprocessableEntity
	case apperrors.ErrUnauthorized.Code:
		return fiber.StatusUnauthorized
	case apperrors.ErrOCRUnavailable.Code, apperrors.ErrOCRCircuitOpen.Code:
		return fiber.StatusServiceUnavailable
	case apperrors.ErrOCRFailed.Code:
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

// zapWriter sends fiber access logs through zap
type zapWriter struct {
	logger *zap.Logger
}

func (w zapWriter) Write(p []byte) (int, error) {
	w.logger.Debug(strings.TrimSpace(string(p)))
	return len(p), nil
}
