package server

import (
	"time"

	"github.com/raysh454/shieldsuite/internal/app"
	"github.com/raysh454/shieldsuite/internal/logging"
)

type Config struct {
	// ListenAddr overrides AppConfig.Server.Addr when set.
	ListenAddr string

	AppConfig *app.Config
	Logger    logging.Logger

	// Deps are handed to the orchestrator. When Deps.DB is nil the server
	// opens (and owns) the database under the storage root.
	Deps app.Deps

	// KeepAlive is the comment interval on idle alert streams.
	KeepAlive time.Duration
}
