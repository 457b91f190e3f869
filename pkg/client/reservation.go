package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"parkslot/pkg/model"
)

type ReservationClient struct {
	httpClient *HttpClient
}

func NewReservationClient(baseURL, token string) *ReservationClient {
	return &ReservationClient{
		httpClient: NewHttpClient(baseURL, token),
	}
}

func (c *ReservationClient) RequestSlots(ctx context.Context, vehicleType model.VehicleType, start, end time.Time) (*model.OfferResponse, error) {
	body := map[string]string{
		"vehicle_type": string(vehicleType),
		"start_time":   start.Format(time.RFC3339),
		"end_time":     end.Format(time.RFC3339),
	}
	resp, err := c.httpClient.POST(ctx, "/api/v1/reservations/availability", body)
	if err != nil {
		return nil, err
	}
	if err := Check(resp); err != nil {
		return nil, err
	}
	var offer model.OfferResponse
	if err := resp.DecodeData(&offer); err != nil {
		return nil, fmt.Errorf("failed to decode offer: %w", err)
	}
	return &offer, nil
}

// Confirm commits the chosen slot. A non-empty idempotencyKey makes retries safe.
func (c *ReservationClient) Confirm(ctx context.Context, token, slotID, idempotencyKey string) (*model.Booking, error) {
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{"Idempotency-Key": idempotencyKey}
	}
	resp, err := c.httpClient.POSTWithHeaders(ctx, "/api/v1/reservations/confirm",
		model.ConfirmRequest{Token: token, SlotID: slotID}, headers)
	if err != nil {
		return nil, err
	}
	if err := Check(resp); err != nil {
		return nil, err
	}
	var confirmed model.ConfirmResponse
	if err := resp.DecodeData(&confirmed); err != nil {
		return nil, fmt.Errorf("failed to decode confirmation: %w", err)
	}
	return confirmed.Booking, nil
}

func (c *ReservationClient) Abandon(ctx context.Context, token string) error {
	resp, err := c.httpClient.DELETE(ctx, "/api/v1/reservations/offers/"+url.PathEscape(token))
	if err != nil {
		return err
	}
	return Check(resp)
}

func (c *ReservationClient) ListMine(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	resp, err := c.httpClient.GET(ctx, fmt.Sprintf("/api/v1/bookings/mine?limit=%d&offset=%d", limit, offset))
	if err != nil {
		return nil, err
	}
	if err := Check(resp); err != nil {
		return nil, err
	}
	var bookings []*model.Booking
	if err := resp.DecodeData(&bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

func (c *ReservationClient) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	resp, err := c.httpClient.GET(ctx, "/api/v1/bookings/id/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	if err := Check(resp); err != nil {
		return nil, err
	}
	var booking model.Booking
	if err := resp.DecodeData(&booking); err != nil {
		return nil, fmt.Errorf("failed to decode booking: %w", err)
	}
	return &booking, nil
}
