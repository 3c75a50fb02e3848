package gateway

import (
	"context"
	"fmt"
	"net/http"

	"unidelas/safety-agent/internal/model"
)

// CreateAlert submits an emergency alert for the authenticated user and
// returns the WhatsApp deep links addressed to each trusted contact.
func (c *Client) CreateAlert(ctx context.Context, coords model.Coordinates) ([]model.WhatsAppLink, error) {
	if !coords.Valid() {
		return nil, fmt.Errorf("invalid alert coordinates (%f, %f)", coords.Latitude, coords.Longitude)
	}

	var resp struct {
		WhatsAppLinks []model.WhatsAppLink `json:"whatsappLinks"`
	}

	if err := c.do(ctx, http.MethodPost, "/alertas-emergencia", coords, &resp); err != nil {
		return nil, err
	}
	return resp.WhatsAppLinks, nil
}

// ReceivedAlerts returns the emergency records addressed to the current actor.
func (c *Client) ReceivedAlerts(ctx context.Context) ([]model.ReceivedAlert, error) {
	var alerts []model.ReceivedAlert
	if err := c.do(ctx, http.MethodGet, "/alertas-emergencia/recebidos", nil, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}
