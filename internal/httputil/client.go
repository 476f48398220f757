// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"fmt"
	"net/http"
)

// Credentials holds basic HTTP authentication. The zero value sends no
// Authorization header.
type Credentials struct {
	Username string
	Password string
}

// Empty reports whether no credentials are set.
func (c Credentials) Empty() bool {
	return c.Username == "" && c.Password == ""
}

// NewRequest builds a GET request carrying the User-Agent, Accept and
// optional basic auth headers used by every stage.
func NewRequest(ctx context.Context, rawURL, userAgent, accept string, creds Credentials) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if !creds.Empty() {
		req.SetBasicAuth(creds.Username, creds.Password)
	}
	return req, nil
}
