//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"quickassist/config"
	"quickassist/infras/geo"
	"quickassist/infras/jwt"
	"quickassist/infras/otel"
	"quickassist/infras/rest"
	"quickassist/infras/ws"
	bookingRepository "quickassist/internal/domains/booking/repository"
	bookingService "quickassist/internal/domains/booking/service"
	"quickassist/internal/domains/realtime"
	sessionRepository "quickassist/internal/domains/session/repository"
	sessionService "quickassist/internal/domains/session/service"
	"quickassist/permissions"
	"quickassist/shared/credentials"
	"quickassist/transport/console"
)

var configurations = wire.NewSet(
	config.Get,
)

var infrastructures = wire.NewSet(
	otel.New,
	jwt.New,
	credentials.NewFileStore,
	rest.New,
	ws.NewDialer,
	geo.NewSimulated,
)

var sessionDomain = wire.NewSet(
	sessionRepository.New,
	sessionService.New,
)

var bookingDomain = wire.NewSet(
	bookingRepository.New,
	realtime.New,
	permissions.Get,
	bookingService.New,
)

var domains = wire.NewSet(
	sessionDomain,
	bookingDomain,
)

func InitializeConsole() *console.Console {
	wire.Build(
		configurations,
		infrastructures,
		domains,
		console.New,
	)

	return &console.Console{}
}
