package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"cachet/internal/domain"
)

// HTTPClient talks to the relay daemon.
type HTTPClient struct {
	Base string
	HTTP *http.Client
}

// NewHTTP returns a client for the relay at base.
func NewHTTP(base string, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &HTTPClient{Base: base, HTTP: hc}
}

func (c *HTTPClient) PublishCertificate(ctx context.Context, rec domain.CertificateRecord) error {
	return c.post(ctx, "/certs", rec, nil)
}

func (c *HTTPClient) FetchCertificate(ctx context.Context, username domain.Username) (domain.CertificateRecord, error) {
	var out domain.CertificateRecord
	if err := c.getJSON(ctx, "/certs/"+url.PathEscape(username), &out); err != nil {
		return domain.CertificateRecord{}, err
	}
	return out, nil
}

func (c *HTTPClient) SendEnvelope(ctx context.Context, env domain.Envelope) error {
	return c.post(ctx, "/msgs/"+url.PathEscape(env.To), env, nil)
}

func (c *HTTPClient) FetchEnvelopes(ctx context.Context, username domain.Username, limit int) ([]domain.Envelope, error) {
	p := "/msgs/" + url.PathEscape(username)
	if limit > 0 {
		p += "?limit=" + strconv.Itoa(limit)
	}
	var envs []domain.Envelope
	if err := c.getJSON(ctx, p, &envs); err != nil {
		return nil, err
	}
	return envs, nil
}

func (c *HTTPClient) AckEnvelopes(ctx context.Context, username domain.Username, count int) error {
	return c.post(ctx, "/msgs/"+url.PathEscape(username)+"/ack", struct {
		Count int `json:"count"`
	}{Count: count}, nil)
}

func (c *HTTPClient) post(ctx context.Context, path string, in, out any) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("relay post %s: %s", path, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("relay get %s: %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Compile-time assertion that HTTPClient implements domain.RelayClient.
var _ domain.RelayClient = (*HTTPClient)(nil)
