//go:build integration

package test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/2beens/dailyfit/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) TestAuth_SignUpSignInSignOut() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token, signIn := s.signUpAndIn(ctx)
	assert.NotEmpty(t, signIn.UserID)
	assert.True(t, signIn.ExpiresAt.After(time.Now()))

	resp := s.request(ctx, http.MethodGet, "/profile", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var count int
	require.NoError(t, s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM app_user WHERE email = $1`, signIn.Email,
	).Scan(&count))
	assert.Equal(t, 1, count)

	resp = s.request(ctx, http.MethodPost, "/auth/signout", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "signed out", readBody(t, resp))

	// token is revoked now
	resp = s.request(ctx, http.MethodGet, "/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = s.request(ctx, http.MethodPost, "/auth/signout", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func (s *IntegrationTestSuite) TestAuth_Errors() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, signIn := s.signUpAndIn(ctx)

	cases := map[string]struct {
		path               string
		creds              auth.Credentials
		expectedStatusCode int
	}{
		"email taken": {
			path:               "/auth/signup",
			creds:              auth.Credentials{Email: signIn.Email, Password: testPassword},
			expectedStatusCode: http.StatusConflict,
		},
		"weak password": {
			path:               "/auth/signup",
			creds:              auth.Credentials{Email: "weak@dailyfit.test", Password: "short"},
			expectedStatusCode: http.StatusBadRequest,
		},
		"invalid email": {
			path:               "/auth/signup",
			creds:              auth.Credentials{Email: "not-an-email", Password: testPassword},
			expectedStatusCode: http.StatusBadRequest,
		},
		"wrong password": {
			path:               "/auth/signin",
			creds:              auth.Credentials{Email: signIn.Email, Password: "wrong-password"},
			expectedStatusCode: http.StatusUnauthorized,
		},
		"unknown user": {
			path:               "/auth/signin",
			creds:              auth.Credentials{Email: "nobody@dailyfit.test", Password: testPassword},
			expectedStatusCode: http.StatusUnauthorized,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			resp := s.request(ctx, http.MethodPost, tc.path, "", tc.creds)
			defer resp.Body.Close()
			assert.Equal(t, tc.expectedStatusCode, resp.StatusCode)
		})
	}
}
