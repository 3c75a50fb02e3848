package gateway

import (
	"context"
	"net/http"

	"unidelas/safety-agent/internal/model"
)

// PendingRequests lists support-network solicitations awaiting a decision
// from the current actor.
func (c *Client) PendingRequests(ctx context.Context) ([]model.SupportRequest, error) {
	var pending []model.SupportRequest
	if err := c.do(ctx, http.MethodGet, "/rede-apoio/solicitacao/pendentes", nil, &pending); err != nil {
		return nil, err
	}
	return pending, nil
}

// SendSupportRequest asks another user to join the actor's support network.
func (c *Client) SendSupportRequest(ctx context.Context, requestedID string) error {
	body := struct {
		RequestedID string `json:"solicitadoId"`
	}{RequestedID: requestedID}
	return c.do(ctx, http.MethodPost, "/rede-apoio/solicitacao", body, nil)
}

// AcceptSupportRequest accepts a pending solicitation.
func (c *Client) AcceptSupportRequest(ctx context.Context, requestID string) error {
	return c.do(ctx, http.MethodPut, "/rede-apoio/solicitacao/"+requestID+"/aceitar", nil, nil)
}

// RejectSupportRequest declines and removes a pending solicitation.
func (c *Client) RejectSupportRequest(ctx context.Context, requestID string) error {
	return c.do(ctx, http.MethodDelete, "/rede-apoio/solicitacao/"+requestID, nil, nil)
}

// TrustedContacts lists the users eligible to receive the actor's
// emergency notifications.
func (c *Client) TrustedContacts(ctx context.Context) ([]model.TrustedContact, error) {
	var contacts []model.TrustedContact
	if err := c.do(ctx, http.MethodGet, "/contatos-confianca/meus-contatos", nil, &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}
