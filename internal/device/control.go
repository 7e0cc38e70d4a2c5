// Package device implements the anti-theft and device-health endpoints:
// remote commands, location tracking, simulated metrics and network info.
package device

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/raysh454/shieldsuite/internal/logging"
)

var (
	ErrPINRequired          = errors.New("PIN is required")
	ErrConfirmationRequired = errors.New("confirmation code is required")
	ErrInvalidConfirmation  = errors.New("invalid confirmation code")
)

// Controller issues anti-theft commands. The backend has no device channel,
// so commands are recorded in the log only.
type Controller struct {
	wipeCode string
	logger   logging.Logger
}

// NewController builds a controller. An empty wipeCode disables RemoteWipe.
func NewController(wipeCode string, logger logging.Logger) *Controller {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Controller{
		wipeCode: wipeCode,
		logger:   logger.With(logging.Field{Key: "component", Value: "device-control"}),
	}
}

func (c *Controller) Lock(_ context.Context, pin string) error {
	if pin == "" {
		return ErrPINRequired
	}
	c.logger.Info("device locked")
	return nil
}

func (c *Controller) Wipe(_ context.Context, code string) error {
	if code == "" {
		return ErrConfirmationRequired
	}
	c.logger.Warn("device wipe requested")
	return nil
}

// RemoteWipe requires code to match the configured remote wipe code.
func (c *Controller) RemoteWipe(_ context.Context, code string) error {
	if code == "" || c.wipeCode == "" ||
		subtle.ConstantTimeCompare([]byte(code), []byte(c.wipeCode)) != 1 {
		c.logger.Warn("remote wipe rejected")
		return ErrInvalidConfirmation
	}
	c.logger.Warn("remote wipe initiated")
	return nil
}

func (c *Controller) PlaySound(_ context.Context) error {
	c.logger.Info("playing alarm sound")
	return nil
}
