package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okatkov/mxkeeper/internal/client/models"
)

const (
	apiPrefix      = "/_matrix/client/v3"
	defaultTimeout = 30 * time.Second
)

// HTTPClient implements AuthClient over the Matrix client-server HTTP API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient returns an AuthClient bound to the homeserver in cfg.
func NewHTTPClient(cfg models.HomeServerConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &HTTPClient{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// DefaultFactory builds HTTP clients; it is the Factory used outside tests.
func DefaultFactory(cfg models.HomeServerConfig) AuthClient {
	return NewHTTPClient(cfg)
}

// Wire types.

type loginIdentifier struct {
	Type string `json:"type"`
	User string `json:"user"`
}

type loginRequest struct {
	Type       string           `json:"type"`
	Identifier *loginIdentifier `json:"identifier,omitempty"`
	Password   string           `json:"password,omitempty"`
	Token      string           `json:"token,omitempty"`
	DeviceID   string           `json:"device_id,omitempty"`
}

type loginResponse struct {
	UserID       string `json:"user_id"`
	AccessToken  string `json:"access_token"`
	DeviceID     string `json:"device_id"`
	HomeServer   string `json:"home_server"`
	RefreshToken string `json:"refresh_token"`
}

type matrixError struct {
	ErrCode string `json:"errcode"`
	Error   string `json:"error"`
}

type flowResponse struct {
	Session string `json:"session"`
	Flows   []struct {
		Stages []string `json:"stages"`
	} `json:"flows"`
}

func (c *HTTPClient) LoginByPassword(ctx context.Context, username, password, deviceID string) (*models.Credentials, error) {
	body := loginRequest{
		Type:       LoginTypePassword,
		Identifier: &loginIdentifier{Type: IdentifierUser, User: username},
		Password:   password,
		DeviceID:   deviceID,
	}
	return c.login(ctx, body)
}

func (c *HTTPClient) LoginByToken(ctx context.Context, token string) (*models.Credentials, error) {
	return c.login(ctx, loginRequest{Type: LoginTypeToken, Token: token})
}

func (c *HTTPClient) login(ctx context.Context, body loginRequest) (*models.Credentials, error) {
	resp, raw, err := c.postJSON(ctx, apiPrefix+"/login", body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeServerError(resp.StatusCode, raw)
	}

	var lr loginResponse
	if err := json.Unmarshal(raw, &lr); err != nil {
		return nil, fmt.Errorf("parse login response: %w", err)
	}
	return credentialsFromLogin(&lr), nil
}

// Register attempts registration once with the supplied params. When the
// server answers with an interactive-auth flow carrying a session id, the
// call is repeated with only {type: m.login.dummy, session} as auth and no
// other fields from the original params. A second flow-required answer is
// surfaced as the server's error.
func (c *HTTPClient) Register(ctx context.Context, params models.RegistrationParams) (*models.Credentials, error) {
	creds, flow, err := c.register(ctx, params)
	if err != nil {
		return nil, err
	}
	if flow == nil {
		return creds, nil
	}

	retry := models.RegistrationParams{
		Auth: &models.AuthParams{Type: LoginTypeDummy, Session: flow.Session},
	}
	creds, flow, err = c.register(ctx, retry)
	if err != nil {
		return nil, err
	}
	if flow != nil {
		return nil, fmt.Errorf("%w: stages still required after dummy auth", ErrRegistrationFlowFailed)
	}
	return creds, nil
}

func (c *HTTPClient) register(ctx context.Context, params models.RegistrationParams) (*models.Credentials, *flowResponse, error) {
	resp, raw, err := c.postJSON(ctx, apiPrefix+"/register", params)
	if err != nil {
		return nil, nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var lr loginResponse
		if err := json.Unmarshal(raw, &lr); err != nil {
			return nil, nil, fmt.Errorf("parse register response: %w", err)
		}
		return credentialsFromLogin(&lr), nil, nil

	case http.StatusUnauthorized:
		// 401 carries either an interactive-auth negotiation or a plain error.
		var flow flowResponse
		if err := json.Unmarshal(raw, &flow); err == nil && flow.Session != "" {
			return nil, &flow, nil
		}
		return nil, nil, decodeServerError(resp.StatusCode, raw)

	default:
		return nil, nil, decodeServerError(resp.StatusCode, raw)
	}
}

func (c *HTTPClient) GetProfile(ctx context.Context, userID string) (map[string]any, error) {
	endpoint := c.baseURL + apiPrefix + "/profile/" + url.PathEscape(userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeServerError(resp.StatusCode, raw)
	}

	var profile map[string]any
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("parse profile response: %w", err)
	}
	return profile, nil
}

// postJSON issues a POST and returns the response plus its fully read body.
// Transport failures wrap ErrUnavailable.
func (c *HTTPClient) postJSON(ctx context.Context, path string, body any) (*http.Response, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, raw, nil
}

func credentialsFromLogin(lr *loginResponse) *models.Credentials {
	return &models.Credentials{
		UserID:       lr.UserID,
		DeviceID:     lr.DeviceID,
		HomeServer:   lr.HomeServer,
		AccessToken:  lr.AccessToken,
		RefreshToken: lr.RefreshToken,
	}
}
