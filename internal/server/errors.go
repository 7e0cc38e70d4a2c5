package server

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/raysh454/shieldsuite/internal/alerts"
	"github.com/raysh454/shieldsuite/internal/app"
	"github.com/raysh454/shieldsuite/internal/apps"
	"github.com/raysh454/shieldsuite/internal/device"
	"github.com/raysh454/shieldsuite/internal/malwaredb"
	"github.com/raysh454/shieldsuite/internal/riskscore"
	"github.com/raysh454/shieldsuite/internal/virustotal"
	"github.com/raysh454/shieldsuite/internal/vpn"
)

var badRequest = []error{
	riskscore.ErrInvalidInput,
	alerts.ErrMissingFields,
	alerts.ErrStatusRequired,
	malwaredb.ErrEmptyHash,
	vpn.ErrDomainRequired,
	device.ErrPINRequired,
	device.ErrConfirmationRequired,
	device.ErrCoordinatesRequired,
	device.ErrInvalidCoordinates,
	apps.ErrNameVersionRequired,
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	for _, target := range badRequest {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	switch {
	case errors.Is(err, device.ErrInvalidConfirmation):
		return http.StatusForbidden
	case errors.Is(err, alerts.ErrAlertNotFound), errors.Is(err, virustotal.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, virustotal.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, vpn.ErrNotImplemented):
		return http.StatusNotImplemented
	case errors.Is(err, virustotal.ErrNoAPIKey), errors.Is(err, app.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, virustotal.ErrUnauthorized):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", fe.Field())
	case "max":
		return fmt.Sprintf("%s exceeds the maximum of %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag())
	}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
