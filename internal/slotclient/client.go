package slotclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/adslot-experiment/adslot/internal/protocol"
)

// Client is a typed client for the slot service HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Options tunes the underlying HTTP client. The latency simulation adds
// a random delay per request, useful when demoing decay against a
// wall-clock slotd.
type Options struct {
	Timeout      time.Duration
	DelayEnabled bool
	MinDelay     time.Duration
	MaxDelay     time.Duration
}

// New creates a client for the slot service at baseURL.
func New(baseURL string, opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}

	transport := http.DefaultTransport
	if opts.DelayEnabled {
		transport = &delayedRoundTripper{
			base: http.DefaultTransport,
			min:  opts.MinDelay,
			max:  opts.MaxDelay,
			rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
		}
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
	}
}

// delayedRoundTripper adds a random delay before each request.
type delayedRoundTripper struct {
	base http.RoundTripper
	min  time.Duration
	max  time.Duration
	rng  *rand.Rand
}

func (d *delayedRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	delay := d.min
	if d.max > d.min {
		delay += time.Duration(d.rng.Int63n(int64(d.max - d.min)))
	}
	time.Sleep(delay)
	return d.base.RoundTrip(req)
}

func (c *Client) get(path string, out interface{}) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("GET %s failed: %w", path, err)
	}
	return decodeResponse(resp, out)
}

func (c *Client) post(path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Post(c.baseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("POST %s failed: %w", path, err)
	}
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out interface{}) error {
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		var errResp protocol.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("service returned %d: %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("service returned %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}
	return nil
}

// Price fetches the current take-over quote.
func (c *Client) Price() (*protocol.QuoteResponse, error) {
	var resp protocol.QuoteResponse
	if err := c.get("/price", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Slot fetches the full slot view.
func (c *Client) Slot() (*protocol.SlotResponse, error) {
	var resp protocol.SlotResponse
	if err := c.get("/slot", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Set performs a take-over.
func (c *Client) Set(caller, payment, title, body string) (*protocol.SettlementResponse, error) {
	req := protocol.SetRequest{
		Caller:  caller,
		Payment: payment,
		Content: protocol.ContentPayload{Title: title, Body: body},
	}
	var resp protocol.SettlementResponse
	if err := c.post("/slot/set", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Reclaim empties the slot (admin only).
func (c *Client) Reclaim(caller string) (*protocol.SettlementResponse, error) {
	var resp protocol.SettlementResponse
	if err := c.post("/slot/reclaim", protocol.ReclaimRequest{Caller: caller}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Balance fetches a ledger account balance.
func (c *Client) Balance(address string) (*protocol.BalanceResponse, error) {
	var resp protocol.BalanceResponse
	if err := c.get("/balance/"+address, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Faucet credits an account (demo ledgers only).
func (c *Client) Faucet(address, amount string) error {
	return c.post("/faucet", protocol.FaucetRequest{Address: address, Amount: amount}, nil)
}
