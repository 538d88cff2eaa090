// Package netinfo finds the public address printed on the status ticket
package netinfo

import (
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DefaultEchoURL answers a GET with the caller's public IP as plain text
const DefaultEchoURL = "https://api.ipify.org"

const (
	defaultTimeout = 5 * time.Second
	maxBody        = 256
)

// Lookup returns the host's network address
type Lookup interface {
	Address() (string, error)
}

// Public asks an IP echo service for the address the host is seen from
type Public struct {
	URL    string
	Client *http.Client
}

// NewPublic creates a lookup against url, or DefaultEchoURL when empty
func NewPublic(url string, client *http.Client) Public {
	url = strings.TrimSpace(url)
	if url == "" {
		url = DefaultEchoURL
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return Public{URL: url, Client: client}
}

// Address fetches and validates the echoed address
func (p Public) Address() (string, error) {
	if p.URL == "" || p.Client == nil {
		p = NewPublic(p.URL, p.Client)
	}

	resp, err := p.Client.Get(p.URL)
	if err != nil {
		return "", errors.Wrap(err, "call address echo")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("address echo returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", errors.Wrap(err, "read address echo")
	}

	addr := strings.TrimSpace(string(body))
	if net.ParseIP(addr) == nil {
		return "", errors.Errorf("address echo returned %q", addr)
	}
	return addr, nil
}

// Static always returns the configured address
type Static string

// Address returns s, or an error when it is empty
func (s Static) Address() (string, error) {
	if s == "" {
		return "", errors.New("no address configured")
	}
	return string(s), nil
}
