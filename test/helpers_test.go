//go:build integration

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/2beens/dailyfit/internal/auth"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
)

const testPassword = "testpass-long-enough"

func (s *IntegrationTestSuite) request(ctx context.Context, method, path, token string, body any) *http.Response {
	t := s.T()

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, reqBody)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.httpClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(bytes.TrimSpace(respBytes))
}

// signUpAndIn registers a fresh user and returns its bearer token.
func (s *IntegrationTestSuite) signUpAndIn(ctx context.Context) (string, auth.SignInResponse) {
	t := s.T()
	creds := auth.Credentials{
		Email:    fmt.Sprintf("%d.%s", gofakeit.Number(1000, 9999), gofakeit.Email()),
		Password: testPassword,
	}

	resp := s.request(ctx, http.MethodPost, "/auth/signup", "", creds)
	require.Equal(t, http.StatusCreated, resp.StatusCode, readBody(t, resp))
	resp.Body.Close()

	resp = s.request(ctx, http.MethodPost, "/auth/signin", "", creds)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	signIn := decodeBody[auth.SignInResponse](t, resp)
	require.NotEmpty(t, signIn.Token)

	return signIn.Token, signIn
}
