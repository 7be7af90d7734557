//go:build wireinject
// +build wireinject

package di

import (
	"QuantPulse/internal/usecase"
	"QuantPulse/pkg/config"
	"QuantPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(ServerSet)
	return &server.App{}, nil, nil
}

// InitializeEnsemble wires the ensemble service alone, for one-off predictions.
func InitializeEnsemble(cfg *config.Config) (*usecase.EnsembleService, func(), error) {
	wire.Build(CoreSet)
	return &usecase.EnsembleService{}, nil, nil
}
