package http

import (
	"github.com/nats-io/nats.go"

	"github.com/adierro/courtscan/internal/adapters/postgres"
	"github.com/adierro/courtscan/internal/adapters/valkey"
	"github.com/adierro/courtscan/internal/core/usecases"
	"github.com/adierro/courtscan/internal/pkg/compositor"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Courts     *usecases.CourtService
	Feedback   *usecases.FeedbackService
	Scans      *usecases.ScanService
	Compositor *compositor.Compositor
	NATS       *nats.Conn
	DB         *postgres.DB
	Cache      *valkey.Cache
}
