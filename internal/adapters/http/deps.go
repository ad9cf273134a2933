package http

import (
	"github.com/nats-io/nats.go"

	"github.com/gorosabel/shapeline/internal/adapters/postgres"
	"github.com/gorosabel/shapeline/internal/adapters/valkey"
	"github.com/gorosabel/shapeline/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Codec  *usecases.CodecService
	Shapes *usecases.ShapeService
	Tracks *usecases.TrackService
	NATS   *nats.Conn
	DB     *postgres.DB
	Cache  *valkey.Cache
}
