package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// apiError is the error body the server returns
type apiError struct {
	Error string `json:"error"`
}

// apiClient talks to the companyhub HTTP API
type apiClient struct {
	http *resty.Client
}

func newAPIClient(baseURL, token string) *apiClient {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json").
		SetError(&apiError{})
	if token != "" {
		c.SetAuthToken(token)
	}
	return &apiClient{http: c}
}

// do sends a request and decodes a 2xx body into result
func (c *apiClient) do(method, path string, body, result any) error {
	req := c.http.R()
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return err
	}
	return checkResponse(resp)
}

func (c *apiClient) login(username, password string) (*tokenResponse, error) {
	var tok tokenResponse
	resp, err := c.http.R().
		SetFormData(map[string]string{"username": username, "password": password}).
		SetResult(&tok).
		Post("/api/v1/auth/token")
	if err != nil {
		return nil, err
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	return &tok, nil
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func checkResponse(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}
	if e, ok := resp.Error().(*apiError); ok && e.Error != "" {
		return fmt.Errorf("%s: %s", resp.Status(), e.Error)
	}
	return fmt.Errorf("%s", resp.Status())
}

// Helper functions
func getAPIURL() string {
	if url := os.Getenv("COMPANYHUB_API"); url != "" {
		return url
	}
	return "http://localhost:8080"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".companyhub", "token")
}

func saveToken(token string) error {
	if err := os.MkdirAll(filepath.Dir(tokenFile()), 0o700); err != nil {
		return err
	}
	return os.WriteFile(tokenFile(), []byte(token), 0o600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return strings.TrimSpace(string(data))
}
