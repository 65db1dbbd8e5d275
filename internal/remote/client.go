// Package remote talks to the storefront backend on behalf of the signed-in
// user. Every request carries the user's bearer credential; responses are
// decoded from the backend's wire shapes into domain types exactly once.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/utafrali/GameStoreGo/pkg/errors"
	"github.com/utafrali/GameStoreGo/pkg/httpclient"
	"github.com/utafrali/GameStoreGo/pkg/tracing"
)

const tracerName = "github.com/utafrali/GameStoreGo/internal/remote"

// DefaultBaseURL is the backend API root used when none is configured.
const DefaultBaseURL = "http://localhost:8080/api"

// Credentials supplies the bearer token of the current user. An empty string
// means nobody is signed in.
type Credentials interface {
	Credential() string
}

// Client is the shared transport for every backend resource.
type Client struct {
	baseURL string
	doer    httpclient.Doer
	creds   Credentials
	logger  *slog.Logger
	tracer  trace.Tracer
}

// New creates a backend client. Both httpclient.Client and
// httpclient.CircuitBreakerClient satisfy doer.
func New(baseURL string, doer httpclient.Doer, creds Credentials, logger *slog.Logger) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		doer:    doer,
		creds:   creds,
		logger:  logger,
		tracer:  tracing.Tracer(tracerName),
	}
}

// Cart returns the cart resource.
func (c *Client) Cart() *Cart { return &Cart{c: c} }

// Wishlist returns the wishlist resource.
func (c *Client) Wishlist() *Wishlist { return &Wishlist{c: c} }

// Library returns the library resource.
func (c *Client) Library() *Library { return &Library{c: c} }

// Achievements returns the achievements resource.
func (c *Client) Achievements() *Achievements { return &Achievements{c: c} }

// Orders returns the orders resource.
func (c *Client) Orders() *OrderClient { return &OrderClient{c: c} }

// call performs one authenticated request. in, when non-nil, is sent as a
// JSON body; out, when non-nil, receives the decoded response body.
func (c *Client) call(ctx context.Context, op, method, path string, in, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "backend."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		))
	defer func() { tracing.End(span, err) }()

	token := ""
	if c.creds != nil {
		token = c.creds.Credential()
	}
	if token == "" {
		return apperrors.Unauthorized("sign in required")
	}

	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return transportError(ctx, op, err)
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return httpclient.ParseResponseError(resp, "backend")
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		c.logger.WarnContext(ctx, "undecodable backend response",
			slog.String("op", op), slog.String("error", err.Error()))
		appErr := apperrors.ServiceError("")
		appErr.Err = fmt.Errorf("%w: decode %s response: %w", apperrors.ErrServiceUnavail, op, err)
		return appErr
	}
	return nil
}

// transportError keeps AppErrors and caller cancellation as they are and
// reports everything else as a ServiceError.
func transportError(ctx context.Context, op string, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}
	svcErr := apperrors.ServiceError("")
	svcErr.Err = fmt.Errorf("%w: %s: %w", apperrors.ErrServiceUnavail, op, err)
	return svcErr
}

// asConflict reclassifies the backend's "400 already in ..." reply to an add
// as a membership conflict.
func asConflict(err error) error {
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		return err
	}
	msg := apperrors.Message(err)
	if strings.Contains(strings.ToLower(msg), "already") {
		return apperrors.Conflict(msg)
	}
	return err
}
