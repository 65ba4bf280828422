package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/larimar/onboarding-bfa-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// IdentityProvider implementation — Supabase Auth (GoTrue)
// ============================================================

// doAuthRequest executes one request against the GoTrue API. Auth errors
// have their own payload shape, so they are not run through classify.
func (c *Client) doAuthRequest(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	u := fmt.Sprintf("%s/auth/v1/%s", c.baseURL, path)

	var reqBody io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return 0, nil, err
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase auth: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

// GetUserByEmail looks up an identity user. Not-found returns (nil, nil)
// so the validator can distinguish "available" from "lookup failed".
func (c *Client) GetUserByEmail(ctx context.Context, email string) (*domain.IdentityUser, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetUserByEmail")
	defer span.End()

	status, body, err := c.doAuthRequest(ctx, http.MethodGet, "admin/users?email="+url.QueryEscape(email), nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &domain.ErrExternalService{Service: "supabase/auth", Err: fmt.Errorf("admin user lookup returned %d: %s", status, body)}
	}

	var page struct {
		Users []domain.IdentityUser `json:"users"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode admin users: %w", err)
	}
	for i := range page.Users {
		if strings.EqualFold(page.Users[i].Email, email) {
			return &page.Users[i], nil
		}
	}
	return nil, nil
}

// gotrueError is the error payload GoTrue returns.
type gotrueError struct {
	Msg       string `json:"msg"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code"`
}

// SignUp registers a new identity user. An already-registered email maps
// to *domain.ErrDuplicate so the service renders the same conflict shape
// as the RNC check.
func (c *Client) SignUp(ctx context.Context, email, password string) (*domain.IdentitySession, error) {
	ctx, span := tracer.Start(ctx, "Supabase.SignUp")
	defer span.End()

	status, body, err := c.doAuthRequest(ctx, http.MethodPost, "signup", map[string]any{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	if status < 200 || status >= 300 {
		var ge gotrueError
		_ = json.Unmarshal(body, &ge)
		msg := ge.Msg
		if msg == "" {
			msg = ge.Message
		}
		if ge.ErrorCode == "user_already_exists" || ge.ErrorCode == "email_exists" ||
			strings.Contains(strings.ToLower(msg), "already registered") {
			return nil, &domain.ErrDuplicate{Key: "email"}
		}
		c.logger.Warn("supabase auth: signup failed",
			zap.Int("status", status),
			zap.String("body", string(body)),
		)
		return nil, &domain.ErrExternalService{Service: "supabase/auth", Err: fmt.Errorf("signup returned %d: %s", status, msg)}
	}

	var resp struct {
		ID           string `json:"id"`
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		User         struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode signup response: %w", err)
	}

	userID := resp.User.ID
	if userID == "" {
		// Without email confirmation GoTrue returns the bare user object.
		userID = resp.ID
	}
	return &domain.IdentitySession{
		UserID:       userID,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}, nil
}
