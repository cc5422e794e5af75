package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/voxbridge/customer-portal/internal/models"
)

// Login starts a customer login. The result carries either a token or an MFA
// session to continue with SetupMFA.
func (c *PortalClient) Login(ctx context.Context, req models.LoginRequest) (models.LoginResult, error) {
	var result models.LoginResult
	if err := c.ready(); err != nil {
		return result, err
	}
	if err := models.Validate(req); err != nil {
		return result, err
	}
	body, err := c.sendJSON(ctx, http.MethodPost, c.resolvePath(c.paths.Login), req, false)
	if err != nil {
		return result, fmt.Errorf("login failed: %w", err)
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return result, fmt.Errorf("decode login response: %w", err)
	}
	return result, nil
}

// SetupMFA continues a login that returned an MFA session.
func (c *PortalClient) SetupMFA(ctx context.Context, sessionID string) (models.LoginResult, error) {
	var result models.LoginResult
	if err := c.ready(); err != nil {
		return result, err
	}
	if sessionID == "" {
		return result, fmt.Errorf("mfa session is required")
	}
	payload := map[string]string{"session": sessionID}
	body, err := c.sendJSON(ctx, http.MethodPost, c.resolvePath(c.paths.SetupMFA), payload, false)
	if err != nil {
		return result, fmt.Errorf("mfa setup failed: %w", err)
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return result, fmt.Errorf("decode mfa response: %w", err)
	}
	return result, nil
}

// ConfirmForgotPassword completes a password reset with the emailed code.
func (c *PortalClient) ConfirmForgotPassword(ctx context.Context, reset models.PasswordReset) error {
	if err := c.ready(); err != nil {
		return err
	}
	if err := models.Validate(reset); err != nil {
		return err
	}
	if _, err := c.sendJSON(ctx, http.MethodPost, c.resolvePath(c.paths.ConfirmForgotPassword), reset, false); err != nil {
		return fmt.Errorf("password reset failed: %w", err)
	}
	return nil
}
