// Package mt4token implements the HTTP half of the two-phase handshake:
// exchanging login credentials for a session token and the trade/signal
// server addresses to open the WebSocket to.
package mt4token

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"mt4adapter/internal/mt4errors"
)

// defaultBaseURL is the public token endpoint used when config does not
// override it.
const defaultBaseURL = "https://metatraderweb.app"

// Response is the token endpoint's reply. Fields mirror the upstream
// service's JSON exactly; Go zero values distinguish "absent" from "0"
// for the optional integer/bool fields the service sometimes omits.
type Response struct {
	SignalServer string  `json:"signal_server"`
	TradeServer  string  `json:"trade_server"`
	Login        string  `json:"login"`
	Company      string  `json:"company,omitempty"`
	Ping         int     `json:"ping,omitempty"`
	Key          string  `json:"key"`
	Token        string  `json:"token"`
	Version      string  `json:"version,omitempty"`
	Enabled      bool    `json:"enabled"`
	GWTServers   string  `json:"gwt_servers,omitempty"`
	SSL          *bool   `json:"ssl,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// Client requests session tokens from the Web Terminal gateway.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

// NewClient builds a Client against baseURL (or the public default when
// empty), with the retry-on-5xx policy the rest of this codebase uses for
// outbound HTTP.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		})

	return &Client{http: httpClient, logger: logger}
}

// GetToken exchanges login/server/gateway for a session token. It
// validates that the response carries no error, is enabled, names a
// trade server, and that the trade server it names matches the one
// requested — a mismatch means the gateway silently routed the login to
// a different broker environment than the caller asked for, and must not
// be treated as a successful auth (spec.md §4.3, §8 scenario S2).
func (c *Client) GetToken(ctx context.Context, login, server, gateway string) (*Response, error) {
	var result Response
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"login":        login,
			"trade_server": server,
			"gwt":          gateway,
		}).
		SetResult(&result).
		Post("/trade/json")
	if err != nil {
		return nil, fmt.Errorf("mt4token: request token: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("mt4token: status %d: %s", resp.StatusCode(), resp.String())
	}
	if result.Error != "" {
		return nil, fmt.Errorf("mt4token: %w: %s", mt4errors.ErrServerRejected, result.Error)
	}
	if !result.Enabled {
		return nil, fmt.Errorf("mt4token: %w: account not enabled for web terminal", mt4errors.ErrServerRejected)
	}
	if result.TradeServer == "" {
		return nil, fmt.Errorf("mt4token: %w: response missing trade_server", mt4errors.ErrServerRejected)
	}
	if result.TradeServer != server {
		return nil, fmt.Errorf("mt4token: %w: requested %q, got %q", mt4errors.ErrServerRejected, server, result.TradeServer)
	}

	c.logger.Info("token acquired", "login", login, "trade_server", result.TradeServer)
	return &result, nil
}

// WebSocketURL derives the ws:// or wss:// endpoint to open the duplex
// frame channel against. Per spec.md §2, the Handshake Driver opens the
// socket to the Token Service's signal_host, not the trade server name —
// trade_server identifies the broker environment for the mismatch check
// above, signal_server is the network address to dial. An explicit :443
// suffix is stripped (the gateway always terminates TLS on 443 and omits
// the port from the scheme-relative host it hands back); scheme follows
// SSL (default true).
func (r *Response) WebSocketURL() string {
	host := strings.TrimSuffix(r.SignalServer, ":443")
	scheme := "wss"
	if r.SSL != nil && !*r.SSL {
		scheme = "ws"
	}
	return fmt.Sprintf("%s://%s", scheme, host)
}
