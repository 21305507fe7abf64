package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"fmt"
	"net/http"

	"quickassist/infras/otel"
	"quickassist/infras/rest"
	"quickassist/internal/domains/booking/model"
	"quickassist/internal/domains/booking/model/dto"
	"quickassist/shared/constant"
)

// Booking consumes the backend's booking endpoints. Every status
// action returns the server's updated snapshot, which is the sole
// source of truth for booking state.
type Booking interface {
	Get(ctx context.Context, id string) (model.Booking, error)
	History(ctx context.Context) ([]model.Booking, error)
	Create(ctx context.Context, req dto.CreateBookingRequest) (model.Booking, error)
	Accept(ctx context.Context, id string) (model.Booking, error)
	Decline(ctx context.Context, id string) (model.Booking, error)
	StartJob(ctx context.Context, id string) (model.Booking, error)
	CompleteJob(ctx context.Context, id string) (model.Booking, error)
	Pay(ctx context.Context, id string, req dto.PayRequest) (model.Booking, error)
	Rate(ctx context.Context, id string, req dto.RateRequest) (model.Booking, error)
}

type repositoryImpl struct {
	rest rest.Client
	otel otel.Otel
}

func New(rest rest.Client, otel otel.Otel) Booking {
	return &repositoryImpl{
		rest: rest,
		otel: otel,
	}
}

func (r *repositoryImpl) Get(ctx context.Context, id string) (model.Booking, error) {
	return r.snapshot(ctx, "Get", http.MethodGet, fmt.Sprintf("/bookings/%s/", id), nil)
}

func (r *repositoryImpl) History(ctx context.Context) (res []model.Booking, err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".History")
	defer scope.End()
	defer scope.TraceIfError(err)

	var responses []dto.BookingResponse
	if err = r.rest.Do(ctx, http.MethodGet, "/bookings/history/", nil, &responses); err != nil {
		return nil, fmt.Errorf("failed to fetch booking history: %w", err)
	}

	bookings := make([]model.Booking, 0, len(responses))
	for i := range responses {
		bookings = append(bookings, responses[i].ToModel())
	}

	return bookings, nil
}

func (r *repositoryImpl) Create(ctx context.Context, req dto.CreateBookingRequest) (model.Booking, error) {
	return r.snapshot(ctx, "Create", http.MethodPost, "/bookings/", req)
}

func (r *repositoryImpl) Accept(ctx context.Context, id string) (model.Booking, error) {
	return r.snapshot(ctx, "Accept", http.MethodPost, fmt.Sprintf("/bookings/%s/accept/", id), nil)
}

func (r *repositoryImpl) Decline(ctx context.Context, id string) (model.Booking, error) {
	return r.snapshot(ctx, "Decline", http.MethodPost, fmt.Sprintf("/bookings/%s/decline/", id), nil)
}

func (r *repositoryImpl) StartJob(ctx context.Context, id string) (model.Booking, error) {
	return r.snapshot(ctx, "StartJob", http.MethodPatch, fmt.Sprintf("/bookings/%s/start_job/", id), nil)
}

func (r *repositoryImpl) CompleteJob(ctx context.Context, id string) (model.Booking, error) {
	return r.snapshot(ctx, "CompleteJob", http.MethodPatch, fmt.Sprintf("/bookings/%s/complete_job/", id), nil)
}

func (r *repositoryImpl) Pay(ctx context.Context, id string, req dto.PayRequest) (model.Booking, error) {
	return r.snapshot(ctx, "Pay", http.MethodPost, fmt.Sprintf("/bookings/%s/pay/", id), req)
}

func (r *repositoryImpl) Rate(ctx context.Context, id string, req dto.RateRequest) (model.Booking, error) {
	return r.snapshot(ctx, "Rate", http.MethodPost, fmt.Sprintf("/bookings/%s/rate/", id), req)
}

func (r *repositoryImpl) snapshot(ctx context.Context, op, method, path string, body any) (res model.Booking, err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+"."+op)
	defer scope.End()
	defer scope.TraceIfError(err)

	scope.SetAttribute("booking.path", path)

	var response dto.BookingResponse
	if err = r.rest.Do(ctx, method, path, body, &response); err != nil {
		return res, fmt.Errorf("booking %s failed: %w", op, err)
	}

	return response.ToModel(), nil
}
