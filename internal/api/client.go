package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/thereceipt/escpos-driver/internal/layout"
)

// DefaultServerURL is where a locally running driver listens
const DefaultServerURL = "http://localhost:8069"

// Client talks to a running driver over HTTP
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient creates a client for the driver at baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Status fetches the connection status
func (c *Client) Status(ctx context.Context) (StatusReport, error) {
	var report StatusReport
	err := c.do(ctx, http.MethodGet, "/hw_proxy/status", nil, &report)
	return report, err
}

// Devices fetches the supported and plugged in printers
func (c *Client) Devices(ctx context.Context) (DeviceReport, error) {
	var report DeviceReport
	err := c.do(ctx, http.MethodGet, "/devices", nil, &report)
	return report, err
}

// AddDevice registers a printer from an lsusb style line
func (c *Client) AddDevice(ctx context.Context, identification string) error {
	return c.do(ctx, http.MethodPost, "/devices", map[string]string{"identification": identification}, nil)
}

// PrintReceipt queues a structured receipt
func (c *Client) PrintReceipt(ctx context.Context, r *layout.Receipt) error {
	return c.do(ctx, http.MethodPost, "/hw_proxy/print_receipt", map[string]interface{}{"receipt": r}, nil)
}

// PrintXMLReceipt queues a raw markup document
func (c *Client) PrintXMLReceipt(ctx context.Context, doc string) error {
	return c.do(ctx, http.MethodPost, "/hw_proxy/print_xml_receipt", map[string]string{"receipt": doc}, nil)
}

// OpenCashbox queues a drawer kick
func (c *Client) OpenCashbox(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/hw_proxy/open_cashbox", nil, nil)
}

// PrintStatus queues the diagnostic ticket
func (c *Client) PrintStatus(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/hw_proxy/print_status", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return errors.Errorf("%s %s: %s", method, path, apiErr.Error)
		}
		return errors.Errorf("%s %s: HTTP %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return errors.Wrap(json.Unmarshal(data, out), "decode response")
}
