package efd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultSecretsEndpoint is the segwarides credential service.
const DefaultSecretsEndpoint = "https://roundtable.lsst.codes/segwarides/"

// credentialTimeout bounds the single credential fetch. No retries.
const credentialTimeout = 30 * time.Second

// Credentials are the connection parameters for one EFD instance, as
// returned by the secrets service. Immutable after resolution; extra keys
// in the response are ignored.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Path     string `json:"path"`
}

// Resolver fetches EFD connection credentials for an instance alias from
// the secrets service.
type Resolver struct {
	endpoint string
	client   *http.Client
}

// NewResolver creates a Resolver against the given secrets endpoint.
// An empty endpoint selects DefaultSecretsEndpoint.
func NewResolver(endpoint string) *Resolver {
	if endpoint == "" {
		endpoint = DefaultSecretsEndpoint
	}
	return &Resolver{
		endpoint: endpoint,
		client:   &http.Client{Timeout: credentialTimeout},
	}
}

// Resolve fetches the credentials for alias with a single GET request.
// A transport failure or any non-200 status returns a *ConnectionError
// naming the failing URL; the response body is not inspected on failure.
func (r *Resolver) Resolve(ctx context.Context, alias string) (Credentials, error) {
	url := strings.TrimSuffix(r.endpoint, "/") + "/creds/" + alias

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Credentials{}, fmt.Errorf("efd: build credentials request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return Credentials{}, &ConnectionError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Credentials{}, &ConnectionError{URL: url, Status: resp.StatusCode}
	}

	var creds Credentials
	if err := json.NewDecoder(resp.Body).Decode(&creds); err != nil {
		return Credentials{}, fmt.Errorf("efd: decode credentials from %s: %w", url, err)
	}
	return creds, nil
}
