package client

import (
	"context"
	"fmt"
	"net/url"

	"parkslot/pkg/model"
)

// SlotClient manages the catalog through the admin routes; its token must carry the admin role.
type SlotClient struct {
	httpClient *HttpClient
}

func NewSlotClient(baseURL, token string) *SlotClient {
	return &SlotClient{
		httpClient: NewHttpClient(baseURL, token),
	}
}

func (c *SlotClient) Create(ctx context.Context, vehicleType model.VehicleType, number string) (*model.Slot, error) {
	resp, err := c.httpClient.POST(ctx, "/api/v1/admin/slots", model.Slot{Type: vehicleType, Number: number})
	if err != nil {
		return nil, err
	}
	if err := Check(resp); err != nil {
		return nil, err
	}
	var slot model.Slot
	if err := resp.DecodeData(&slot); err != nil {
		return nil, fmt.Errorf("failed to decode slot: %w", err)
	}
	return &slot, nil
}

func (c *SlotClient) Delete(ctx context.Context, id string) error {
	resp, err := c.httpClient.DELETE(ctx, "/api/v1/admin/slots/id/"+url.PathEscape(id))
	if err != nil {
		return err
	}
	return Check(resp)
}
