package webvoice

import (
	"context"
	"errors"
	"net"
	"net/url"
)

// StartRequest asks the backend to provision a voice session.
type StartRequest struct {
	// Token is the caller's bearer token.
	Token string

	// TenantID is the validated organization id.
	TenantID string
}

// StartResponse is the initiation result.
type StartResponse struct {
	Success            bool   `json:"success"`
	BridgeWebsocketURL string `json:"bridgeWebsocketUrl"`
	TrackingID         string `json:"trackingId"`
	Error              string `json:"error,omitempty"`
}

// startBody carries the tenant id twice: the agent runtime reads it from
// variables, the session router from metadata.
type startBody struct {
	Metadata  tenantFields `json:"metadata"`
	Variables tenantFields `json:"variables"`
}

type tenantFields struct {
	OrgID string `json:"org_id"`
}

type endBody struct {
	TrackingID string `json:"trackingId"`
}

// StartSession provisions a session. Non-2xx responses are returned as
// *Error. A 2xx response is returned as-is even when Success is false; the
// caller decides how to report it.
//
// The bridge URL in the response has the local dev port rewrite applied.
func (c *Client) StartSession(ctx context.Context, req *StartRequest) (*StartResponse, error) {
	if req.TenantID == "" {
		return nil, errors.New("webvoice: tenant id is required")
	}
	body := startBody{
		Metadata:  tenantFields{OrgID: req.TenantID},
		Variables: tenantFields{OrgID: req.TenantID},
	}

	var resp StartResponse
	if err := c.http.post(ctx, c.config.startPath, req.Token, body, &resp, 0, 0); err != nil {
		return nil, err
	}
	if resp.BridgeWebsocketURL != "" {
		rewritten := RewriteDevBridgeURL(resp.BridgeWebsocketURL, c.config.frontendPort, c.config.backendPort)
		if rewritten != resp.BridgeWebsocketURL {
			c.config.logger.Debug("webvoice: rewrote local bridge port", "from", resp.BridgeWebsocketURL, "to", rewritten)
		}
		resp.BridgeWebsocketURL = rewritten
	}
	return &resp, nil
}

// EndSession tells the backend the session identified by trackingID is
// over. Each attempt is bounded by the configured end timeout and failures
// are retried once by default.
func (c *Client) EndSession(ctx context.Context, token, trackingID string) error {
	if trackingID == "" {
		return errors.New("webvoice: tracking id is required")
	}
	body := endBody{TrackingID: trackingID}
	return c.http.post(ctx, c.config.endPath, token, body, nil, c.config.maxRetries, c.config.endTimeout)
}

// RewriteDevBridgeURL swaps frontendPort for backendPort when raw points at
// a loopback host. Locally the bridge and the web app listen on different
// ports, and the backend echoes the port the request arrived on.
func RewriteDevBridgeURL(raw, frontendPort, backendPort string) string {
	if frontendPort == "" || backendPort == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	host := u.Hostname()
	if host != "localhost" && host != "127.0.0.1" {
		return raw
	}
	if u.Port() != frontendPort {
		return raw
	}
	u.Host = net.JoinHostPort(host, backendPort)
	return u.String()
}
