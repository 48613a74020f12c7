package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const DefaultLookupURL = "https://api.ipify.org?format=json"

// Locator resolves an approximate public address.
type Locator interface {
	Lookup(ctx context.Context) (string, error)
}

// IpifyLocator queries an ipify-compatible endpoint returning {"ip": "..."}.
type IpifyLocator struct {
	URL    string
	Client *http.Client
}

func NewIpifyLocator(url string) *IpifyLocator {
	if url == "" {
		url = DefaultLookupURL
	}
	return &IpifyLocator{URL: url, Client: &http.Client{Timeout: 5 * time.Second}}
}

func (l *IpifyLocator) Lookup(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
	if err != nil {
		return "", err
	}
	resp, err := l.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ip lookup: status %d", resp.StatusCode)
	}
	var body struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.IP, nil
}
