package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"fmt"
	"net/http"

	"quickassist/infras/otel"
	"quickassist/infras/rest"
	"quickassist/internal/domains/session/model/dto"
	"quickassist/shared/constant"
)

const (
	pathToken = "/auth/token/"
	pathMe    = "/users/me/"
)

// Session talks to the backend's auth and identity endpoints.
type Session interface {
	ObtainToken(ctx context.Context, req dto.LoginRequest) (dto.TokenPairResponse, error)
	Me(ctx context.Context) (dto.IdentityResponse, error)
}

type repositoryImpl struct {
	rest rest.Client
	otel otel.Otel
}

func New(rest rest.Client, otel otel.Otel) Session {
	return &repositoryImpl{
		rest: rest,
		otel: otel,
	}
}

func (r *repositoryImpl) ObtainToken(ctx context.Context, req dto.LoginRequest) (res dto.TokenPairResponse, err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".ObtainToken")
	defer scope.End()
	defer scope.TraceIfError(err)

	if err = r.rest.Do(ctx, http.MethodPost, pathToken, req, &res); err != nil {
		return res, fmt.Errorf("failed to obtain token pair: %w", err)
	}

	return res, nil
}

func (r *repositoryImpl) Me(ctx context.Context) (res dto.IdentityResponse, err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".Me")
	defer scope.End()
	defer scope.TraceIfError(err)

	if err = r.rest.Do(ctx, http.MethodGet, pathMe, nil, &res); err != nil {
		return res, fmt.Errorf("failed to fetch identity: %w", err)
	}

	return res, nil
}
