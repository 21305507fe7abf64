package rest

//go:generate go run go.uber.org/mock/mockgen -source=./rest.go -destination=./mocks/rest_mock.go -package=mocks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"quickassist/config"
	"quickassist/infras/otel"
	"quickassist/shared/constant"
	"quickassist/shared/credentials"
	"quickassist/shared/failure"
)

const refreshPath = "/auth/token/refresh/"

// Client issues REST calls against the backend with automatic bearer
// attachment and a single transparent refresh-and-retry on 401. It is
// the only component besides login/logout allowed to write the
// credentials store.
type Client interface {
	Do(ctx context.Context, method, path string, body any, out any) error
}

type clientImpl struct {
	http    *http.Client
	baseURL string
	creds   credentials.Store
	otel    otel.Otel
}

func New(cfg *config.Config, creds credentials.Store, ot otel.Otel) Client {
	return &clientImpl{
		http: &http.Client{
			Timeout: time.Duration(cfg.API.TimeoutSeconds) * time.Second,
		},
		baseURL: strings.TrimRight(cfg.API.BaseURL, "/"),
		creds:   creds,
		otel:    ot,
	}
}

func (c *clientImpl) Do(ctx context.Context, method, path string, body any, out any) (err error) {
	ctx, scope := c.otel.NewScope(ctx, constant.OtelRestScopeName, constant.OtelRestScopeName+".Do")
	defer scope.End()
	defer scope.TraceIfError(err)

	scope.SetAttribute("http.method", method)
	scope.SetAttribute("http.path", path)

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	status, raw, err := c.issue(ctx, method, path, payload, true)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		// One refresh attempt per failing request, then one retry with
		// the new credential. A second 401 is surfaced as-is.
		if err = c.refresh(ctx); err != nil {
			return err
		}

		status, raw, err = c.issue(ctx, method, path, payload, true)
		if err != nil {
			return err
		}
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return responseFailure(status, raw)
	}

	if out != nil && len(raw) > 0 {
		if err = json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode response body: %w", err)
		}
	}

	return nil
}

// issue performs a single round trip. The access credential is read
// fresh from the store on every call, never cached on the request.
func (c *clientImpl) issue(ctx context.Context, method, path string, payload []byte, authenticated bool) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set(constant.RequestHeaderContentType, constant.ContentTypeJSON)
	req.Header.Set(constant.RequestHeaderRequestID, uuid.NewString())

	if authenticated {
		if access := c.creds.Access(); access != constant.Empty {
			req.Header.Set(constant.RequestHeaderAuthorization, constant.BearerPrefix+access)
		}
	}

	res, err := c.http.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("method", method).Str("path", path).Msg("request never completed")

		return 0, nil, failure.Network(err)
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, nil, failure.Network(err)
	}

	return res.StatusCode, raw, nil
}

// refresh trades the stored refresh credential for a new access
// credential. Any failure is terminal: the session is cleared and the
// caller must reauthenticate.
func (c *clientImpl) refresh(ctx context.Context) error {
	refreshToken := c.creds.Refresh()
	if refreshToken == constant.Empty {
		return c.clearSession(nil)
	}

	payload, err := json.Marshal(map[string]string{"refresh": refreshToken})
	if err != nil {
		return fmt.Errorf("failed to encode refresh request: %w", err)
	}

	status, raw, err := c.issue(ctx, http.MethodPost, refreshPath, payload, false)
	if err != nil {
		return err
	}

	if status != http.StatusOK {
		return c.clearSession(responseFailure(status, raw))
	}

	var refreshed struct {
		Access string `json:"access"`
	}
	if err := json.Unmarshal(raw, &refreshed); err != nil || refreshed.Access == constant.Empty {
		return c.clearSession(err)
	}

	if err := c.creds.SetAccess(refreshed.Access); err != nil {
		log.Error().Err(err).Msg("failed to persist refreshed access token")

		return fmt.Errorf("failed to persist refreshed access token: %w", err)
	}

	log.Debug().Msg("access token refreshed")

	return nil
}

func (c *clientImpl) clearSession(cause error) error {
	if err := c.creds.Clear(); err != nil {
		log.Error().Err(err).Msg("failed to clear credentials after refresh failure")
	}

	if cause != nil {
		log.Warn().Err(cause).Msg("token refresh failed, session cleared")
	}

	return failure.ReauthenticationRequired
}

// responseFailure maps a non-2xx response to the failure taxonomy,
// carrying the server's own message verbatim when one is present.
func responseFailure(status int, raw []byte) error {
	msg := extractMessage(raw)

	if status == http.StatusNotFound {
		return &failure.Failure{Class: failure.ClassNotFound, Code: status, Message: msg}
	}

	return failure.Server(status, msg)
}

func extractMessage(raw []byte) string {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err == nil {
		for _, key := range []string{"error", "detail", "message"} {
			if val, ok := body[key].(string); ok && val != constant.Empty {
				return val
			}
		}
	}

	if len(raw) > 0 {
		return string(raw)
	}

	return "request failed"
}
