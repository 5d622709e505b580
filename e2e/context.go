// Package e2e drives a running ledger over HTTP with godog scenarios.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default actors match configs/program.yaml.
var defaultActors = map[string]string{
	"admin":              "0x1000000000000000000000000000000000000001",
	"compliance_officer": "0x1000000000000000000000000000000000000002",
	"operator":           "0x1000000000000000000000000000000000000003",
	"treasury":           "0x1000000000000000000000000000000000000004",
	"keeper":             "0x5e0000000000000000000000000000000000aa03",
	"pauser":             "0x1000000000000000000000000000000000000001",
}

// TestContext holds the per-scenario HTTP state: the acting address, its
// bearer token and the last response.
type TestContext struct {
	BaseURL    string
	HTTPClient *http.Client

	signingKey []byte
	issuer     string
	audience   string

	actors      map[string]string
	actor       string
	accessToken string

	lastResponse     *http.Response
	lastResponseBody []byte
}

// NewTestContext reads AURUM_E2E_URL and the JWT settings the server was
// started with.
func NewTestContext() *TestContext {
	actors := make(map[string]string, len(defaultActors))
	for k, v := range defaultActors {
		actors[k] = v
	}
	return &TestContext{
		BaseURL:    strings.TrimRight(envOr("AURUM_E2E_URL", "http://localhost:8080"), "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		signingKey: []byte(envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production")),
		issuer:     envOr("JWT_ISSUER", "aurum"),
		audience:   envOr("JWT_AUDIENCE", "aurum-ledger"),
		actors:     actors,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Reset clears the actor and the last response between scenarios.
func (tc *TestContext) Reset() {
	tc.actor = ""
	tc.accessToken = ""
	tc.lastResponse = nil
	tc.lastResponseBody = nil
}

// ActAs signs a short-lived token for a role name or a literal address.
func (tc *TestContext) ActAs(actor string) error {
	addr, ok := tc.actors[actor]
	if !ok {
		addr = actor
	}
	token, err := tc.sign(addr, time.Hour)
	if err != nil {
		return err
	}
	tc.actor = addr
	tc.accessToken = token
	return nil
}

// ActWithExpiredToken signs a token that expired a minute ago.
func (tc *TestContext) ActWithExpiredToken(actor string) error {
	addr, ok := tc.actors[actor]
	if !ok {
		addr = actor
	}
	token, err := tc.sign(addr, -time.Minute)
	if err != nil {
		return err
	}
	tc.actor = addr
	tc.accessToken = token
	return nil
}

func (tc *TestContext) Anonymous() {
	tc.actor = ""
	tc.accessToken = ""
}

func (tc *TestContext) Actor() string { return tc.actor }

// Address resolves a role name to its address; anything else is returned
// unchanged.
func (tc *TestContext) Address(actor string) string {
	if addr, ok := tc.actors[actor]; ok {
		return addr
	}
	return actor
}

func (tc *TestContext) sign(actor string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"actor": actor,
		"sub":   actor,
		"iss":   tc.issuer,
		"aud":   []string{tc.audience},
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tc.signingKey)
}

func (tc *TestContext) Do(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			raw, err := json.Marshal(b)
			if err != nil {
				return err
			}
			reader = bytes.NewReader(raw)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), tc.HTTPClient.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, method, tc.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+tc.accessToken)
	}
	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	tc.lastResponse = resp
	tc.lastResponseBody, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) GET(path string) error { return tc.Do(http.MethodGet, path, nil) }

func (tc *TestContext) POST(path string, body any) error { return tc.Do(http.MethodPost, path, body) }

func (tc *TestContext) GetLastResponseStatus() int {
	if tc.lastResponse == nil {
		return 0
	}
	return tc.lastResponse.StatusCode
}

func (tc *TestContext) GetLastResponseBody() []byte { return tc.lastResponseBody }

// GetResponseField reads a top-level field of the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var data map[string]any
	if err := json.Unmarshal(tc.lastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}
	v, ok := data[field]
	if !ok {
		return nil, fmt.Errorf("field %q not found in response: %s", field, tc.lastResponseBody)
	}
	return v, nil
}
