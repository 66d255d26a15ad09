package tool

import (
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

	contractx "github.com/tanpawarit/chative-waiter/agent/contract"
)

const (
	DefaultAddress       = "Avenida Paulista, 1000 - 01310-000 - São Paulo - SP"
	maxAddressBodyBytes  = 64 << 10
	defaultLookupTimeout = 10 * time.Second
)

var ErrAddressNotFound = errors.New("address not found")

// AddressResolver turns a postal code into a street address line.
type AddressResolver interface {
	Resolve(ctx context.Context, postalCode string) (string, error)
}

// StaticAddress resolves every postal code to the same address.
type StaticAddress string

func (s StaticAddress) Resolve(context.Context, string) (string, error) {
	return string(s), nil
}

type AddressConfig struct {
	URL      string        `envconfig:"URL" split_words:"true"`
	Username string        `split_words:"true"`
	Password string        `split_words:"true"`
	Timeout  time.Duration `split_words:"true" default:"10s"`
}

// NewAddressResolver returns an HTTP lookup when cfg.URL is set and the
// static address otherwise.
func NewAddressResolver(cfg AddressConfig) (AddressResolver, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return StaticAddress(DefaultAddress), nil
	}
	return NewHTTPAddressLookup(cfg)
}

// HTTPAddressLookup queries a postal-code service protected by basic auth.
// The service answers GET <url>?cep=<code> with {"frase": "<address>"}.
type HTTPAddressLookup struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

type addressResponse struct {
	Frase string `json:"frase"`
}

func NewHTTPAddressLookup(cfg AddressConfig) (*HTTPAddressLookup, error) {
	baseURL := strings.TrimSpace(cfg.URL)
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid address lookup url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}
	return &HTTPAddressLookup{
		baseURL:  baseURL,
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func (h *HTTPAddressLookup) Resolve(ctx context.Context, postalCode string) (string, error) {
	u, err := url.Parse(h.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse address lookup url: %w", err)
	}
	q := u.Query()
	q.Set("cep", postalCode)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build address request: %w", err)
	}
	if h.username != "" || h.password != "" {
		req.SetBasicAuth(h.username, h.password)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute address request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxAddressBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read address response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return "", ErrAddressNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("address http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed addressResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode address response: %w", err)
	}
	if strings.TrimSpace(parsed.Frase) == "" {
		return "", ErrAddressNotFound
	}
	return strings.TrimSpace(parsed.Frase), nil
}

type DeliveryAddressOutput struct {
	PostalCode string `json:"postal_code"`
	Address    string `json:"address"`
}

// Lookup failures are reported to the model, not raised: the order is
// untouched and the customer can give another code.
func executeDeliveryAddress(ctx context.Context, resolver AddressResolver, tool string, args map[string]any) (contractx.ToolResult, error) {
	postalCode, err := stringArg(args, "postal_code", true)
	if err != nil {
		return invalidArgs(tool, err), nil
	}
	number, err := stringArg(args, "number", false)
	if err != nil {
		return invalidArgs(tool, err), nil
	}
	complement, err := stringArg(args, "complement", false)
	if err != nil {
		return invalidArgs(tool, err), nil
	}

	street, err := resolver.Resolve(ctx, postalCode)
	if err != nil {
		return contractx.ToolResult{
			Tool:  tool,
			Error: fmt.Sprintf("address lookup failed: %v", err),
		}, nil
	}

	return contractx.ToolResult{
		Tool: tool,
		Result: DeliveryAddressOutput{
			PostalCode: postalCode,
			Address:    formatAddress(street, number, complement),
		},
	}, nil
}

func formatAddress(street, number, complement string) string {
	var b strings.Builder
	b.WriteString(street)
	if number != "" {
		b.WriteString(", Number: ")
		b.WriteString(number)
	}
	if complement != "" {
		b.WriteString(", Complement: ")
		b.WriteString(complement)
	}
	return b.String()
}

func stringArg(args map[string]any, key string, required bool) (string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		if required {
			return "", fmt.Errorf("%w: %s is required", contractx.ErrInvalidToolArgs, key)
		}
		return "", nil
	}
	var s string
	switch v := raw.(type) {
	case string:
		s = strings.TrimSpace(v)
	case float64:
		// models often send building numbers as JSON numbers
		s = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return "", fmt.Errorf("%w: %s must be a string", contractx.ErrInvalidToolArgs, key)
	}
	if required && s == "" {
		return "", fmt.Errorf("%w: %s is empty", contractx.ErrInvalidToolArgs, key)
	}
	return s, nil
}
