package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/bioterms-backend/internal/platform/ctxutil"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
)

const maxErrorBodyBytes = 1024

var pointIDNamespaceUUID = uuid.MustParse("8a2f9d07-64c1-4f1e-9f52-7b1c52f6f2aa")

// Client talks to the Qdrant HTTP API. Each vocabulary prefix owns one
// collection; collections are created on demand with cosine distance.
type Client struct {
	log     *logger.Logger
	cfg     Config
	baseURL string
	http    *http.Client
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

// Point is one vector with its payload, ready for upsert.
type Point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload,omitempty"`
}

// ScrolledPoint is one record returned by a scroll page.
type ScrolledPoint struct {
	ID      json.RawMessage `json:"id"`
	Vector  []float32       `json:"vector"`
	Payload map[string]any  `json:"payload"`
}

func NewClient(log *logger.Logger, cfg Config) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("qdrant: logger required")
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	c := &Client{
		log:     log.With("client", "Qdrant"),
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	if err := c.verifyReady(context.Background()); err != nil {
		return nil, err
	}

	log.Info(
		"Qdrant client ready",
		"url", c.baseURL,
		"vector_dim", cfg.VectorDim,
	)
	return c, nil
}

// VectorDim returns the configured embedding dimension.
func (c *Client) VectorDim() int { return c.cfg.VectorDim }

// PointID derives a stable point ID from the collection and concept ID, so
// re-embedding a vocabulary overwrites instead of duplicating points.
func (c *Client) PointID(collection, conceptID string) string {
	return uuid.NewSHA1(pointIDNamespaceUUID, []byte(collection+"|"+conceptID)).String()
}

// CollectionExists reports whether the named collection is present.
func (c *Client) CollectionExists(ctx context.Context, collection string) (bool, error) {
	const op = "collection_exists"
	var result struct {
		Collections []struct {
			Name string `json:"name"`
		} `json:"collections"`
	}
	if err := c.doJSON(ctx, op, http.MethodGet, "/collections", nil, &result); err != nil {
		return false, err
	}
	for _, entry := range result.Collections {
		if entry.Name == collection {
			return true, nil
		}
	}
	return false, nil
}

// EnsureCollection creates the collection with cosine distance when it does
// not exist yet.
func (c *Client) EnsureCollection(ctx context.Context, collection string) error {
	const op = "ensure_collection"
	exists, err := c.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	req := map[string]any{
		"vectors": map[string]any{
			"size":     c.cfg.VectorDim,
			"distance": "Cosine",
		},
	}
	return c.doJSON(ctx, op, http.MethodPut, "/collections/"+collection, req, nil)
}

// DeleteCollection drops the collection. A missing collection is not an
// error.
func (c *Client) DeleteCollection(ctx context.Context, collection string) error {
	const op = "delete_collection"
	exists, err := c.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	return c.doJSON(ctx, op, http.MethodDelete, "/collections/"+collection, nil, nil)
}

// UpsertPoints writes a batch of points and waits for the operation.
func (c *Client) UpsertPoints(ctx context.Context, collection string, points []Point) error {
	const op = "upsert"
	if len(points) == 0 {
		return nil
	}
	for _, p := range points {
		if strings.TrimSpace(p.ID) == "" {
			return opErr(op, OperationErrorValidation, "point id is required", nil)
		}
		if len(p.Vector) == 0 {
			return opErr(op, OperationErrorValidation, fmt.Sprintf("point %q has empty vector", p.ID), nil)
		}
		if c.cfg.VectorDim > 0 && len(p.Vector) != c.cfg.VectorDim {
			return opErr(
				op,
				OperationErrorValidation,
				fmt.Sprintf("point %q dimension mismatch: expected=%d got=%d", p.ID, c.cfg.VectorDim, len(p.Vector)),
				nil,
			)
		}
	}

	req := map[string]any{"points": points}
	return c.doJSON(ctx, op, http.MethodPut, "/collections/"+collection+"/points?wait=true", req, nil)
}

// ScrollPoints fetches one page of points with vectors. The returned offset
// is nil when the scroll is exhausted.
func (c *Client) ScrollPoints(ctx context.Context, collection string, offset json.RawMessage, limit int) ([]ScrolledPoint, json.RawMessage, error) {
	const op = "scroll"
	if limit <= 0 {
		limit = 100
	}
	req := map[string]any{
		"limit":        limit,
		"with_payload": true,
		"with_vector":  true,
	}
	if len(offset) > 0 {
		req["offset"] = offset
	}

	var result struct {
		Points         []ScrolledPoint `json:"points"`
		NextPageOffset json.RawMessage `json:"next_page_offset"`
	}
	if err := c.doJSON(ctx, op, http.MethodPost, "/collections/"+collection+"/points/scroll", req, &result); err != nil {
		return nil, nil, err
	}

	next := result.NextPageOffset
	if string(next) == "null" {
		next = nil
	}
	return result.Points, next, nil
}

func (c *Client) verifyReady(ctx context.Context) error {
	const op = "bootstrap_verify"

	readyReq, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodGet, c.baseURL+"/readyz", nil)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build ready request failed", err)
	}
	readyResp, err := c.http.Do(readyReq)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant ready check failed", err)
	}
	_ = readyResp.Body.Close()
	if readyResp.StatusCode < 200 || readyResp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: readyResp.StatusCode,
			Message:    fmt.Sprintf("qdrant ready check returned status=%d", readyResp.StatusCode),
		}
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, c.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant request failed", err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant http status=%d body=%q", resp.StatusCode, truncateBody(raw)),
		}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant envelope failed", err)
	}
	if statusErr := parseEnvelopeStatus(env.Status); statusErr != "" {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    statusErr,
		}
	}

	if out == nil {
		return nil
	}
	if len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant result failed", err)
	}
	return nil
}

func classifyHTTPCallError(op, message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	return opErr(op, OperationErrorTransportFailed, message, err)
}

func parseEnvelopeStatus(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}

	var statusString string
	if err := json.Unmarshal(raw, &statusString); err == nil {
		if strings.EqualFold(statusString, "ok") {
			return ""
		}
		return fmt.Sprintf("qdrant status=%q", statusString)
	}

	var statusObject struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &statusObject); err == nil {
		if strings.TrimSpace(statusObject.Error) != "" {
			return strings.TrimSpace(statusObject.Error)
		}
	}

	return fmt.Sprintf("qdrant status=%s", status)
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}
