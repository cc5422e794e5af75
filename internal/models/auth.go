package models

// LoginRequest starts a customer login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is the outcome of a login or MFA step. Either Token is set, or a
// Session is returned together with the next Challenge.
type LoginResult struct {
	Token     string `json:"token,omitempty"`
	Session   string `json:"session,omitempty"`
	Challenge string `json:"challenge,omitempty"`
	Message   string `json:"message,omitempty"`
}

// UnmarshalJSON reads the token from the common spellings, unwrapping a data envelope.
func (r *LoginResult) UnmarshalJSON(data []byte) error {
	*r = LoginResult{}
	f, ok := decodeFields(data)
	if !ok {
		return nil
	}
	if inner, ok := f.nested("data"); ok {
		f = f.under(inner)
	}
	r.Token = f.text("token", "access_token", "accessToken", "id_token", "idToken").String()
	r.Session = f.text("session", "Session").String()
	r.Challenge = f.text("challenge", "challenge_name", "ChallengeName").String()
	r.Message = f.text("message", "msg").String()
	return nil
}

// MFARequired reports whether the login needs another step.
func (r LoginResult) MFARequired() bool {
	return r.Token == "" && r.Session != ""
}

// PasswordReset confirms a forgotten-password flow.
type PasswordReset struct {
	Email           string `json:"email" validate:"required,email"`
	Code            string `json:"code" validate:"required,len=6,numeric"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
}
