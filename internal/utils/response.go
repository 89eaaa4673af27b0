package utils

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ErrorResponse is the error envelope shared by every chat API endpoint.
type ErrorResponse struct {
	Message        string   `json:"message"`
	Issues         []string `json:"issues,omitempty"`
	Details        string   `json:"details,omitempty"`
	RequiredHeader string   `json:"requiredHeader,omitempty"`
}

// SendError sends an error response with the given status and message.
func SendError(c *fiber.Ctx, status int, message string) error {
	if message == "" {
		message = "error"
	}
	return c.Status(status).JSON(ErrorResponse{Message: message})
}

// SendValidationError sends a 400 "Invalid request" response carrying the
// individual validation failures.
func SendValidationError(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Message: "Invalid request",
		Issues:  ValidationIssues(err),
	})
}

// SendRouterError sends the terminal 500 response for upstream failures. The
// details string is surfaced without further interpretation.
func SendRouterError(c *fiber.Ctx, details string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Message: "Chat router error",
		Details: details,
	})
}

// SendMissingAuth sends the 401 response naming the header the caller must
// supply.
func SendMissingAuth(c *fiber.Ctx, requiredHeader string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
		Message:        "Missing authentication header",
		RequiredHeader: requiredHeader,
	})
}

// ValidationIssues flattens validator errors into field/rule strings.
func ValidationIssues(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	issues := make([]string, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		issues = append(issues, fmt.Sprintf("%s failed on the %q rule", fieldError.Field(), fieldError.Tag()))
	}
	return issues
}
