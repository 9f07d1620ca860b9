// Package client habla con el servicio de órdenes y su almacenamiento de archivos por HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"order-lifecycle-service/internal/apperr"
	"order-lifecycle-service/internal/dto"
	"order-lifecycle-service/internal/model"
	"order-lifecycle-service/internal/orderstatus"
	"order-lifecycle-service/internal/payment"
	"order-lifecycle-service/internal/upload"
)

var (
	_ orderstatus.OrderAPI = (*Client)(nil)
	_ payment.PaymentAPI   = (*Client)(nil)
	_ upload.ObjectStore   = (*Client)(nil)
)

// maxErrorBody limita lo que se lee de una respuesta de error.
const maxErrorBody = 64 << 10

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// WithToken devuelve una copia que manda el token en Authorization.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	var out model.Order
	if err := c.doJSON(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), 0, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListOrders(ctx context.Context, status model.Status) ([]*model.Order, error) {
	path := "/orders"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}
	var out []*model.Order
	if err := c.doJSON(ctx, http.MethodGet, path, 0, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateStatus(ctx context.Context, orderID string, version int64, req dto.UpdateStatusRequest) (*model.Order, error) {
	var out model.Order
	if err := c.doJSON(ctx, http.MethodPatch, "/orders/"+url.PathEscape(orderID)+"/status", version, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdatePayment(ctx context.Context, orderID string, version int64, req dto.UpdatePaymentRequest) (*model.Order, error) {
	var out model.Order
	if err := c.doJSON(ctx, http.MethodPatch, "/orders/"+url.PathEscape(orderID)+"/payment", version, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, version int64, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if version > 0 {
		req.Header.Set("If-Match", strconv.FormatInt(version, 10))
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &apperr.RemoteError{StatusCode: resp.StatusCode, Message: "invalid response from order service", Err: err}
	}
	return nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &apperr.RemoteError{Message: "network error", Err: err}
	}
	return resp, nil
}

// decodeError saca un mensaje legible de {"error": ...} o {"message": ...}.
func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		msg = payload.Error
		if msg == "" {
			msg = payload.Message
		}
	}
	if msg == "" {
		msg = fmt.Sprintf("request failed with status %d", resp.StatusCode)
	}
	return &apperr.RemoteError{StatusCode: resp.StatusCode, Message: msg, Err: errors.New(http.StatusText(resp.StatusCode))}
}
