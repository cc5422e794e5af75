package models

import "strings"

// AccountTypeShared marks accounts whose name and phone cannot be edited.
const AccountTypeShared = "shared"

// VideoAccount is the customer's video account profile as returned by the API.
type VideoAccount struct {
	Email              string `json:"email"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	Phone              string `json:"phone"`
	AccountType        string `json:"account_type,omitempty"`
	ProfilePicturePath string `json:"profile_picture_url,omitempty"`
}

// UnmarshalJSON accepts snake_case and camelCase field names.
func (a *VideoAccount) UnmarshalJSON(data []byte) error {
	*a = VideoAccount{}
	f, ok := decodeFields(data)
	if !ok {
		return nil
	}
	a.Email = f.text("email").String()
	a.FirstName = f.text("first_name", "firstName").String()
	a.LastName = f.text("last_name", "lastName").String()
	a.Phone = f.text("phone", "phone_number").String()
	a.AccountType = f.text("account_type", "accountType").String()
	a.ProfilePicturePath = f.text("profile_picture_url", "profilePicturePath").String()
	return nil
}

// IsShared reports whether the account is a shared account.
func (a VideoAccount) IsShared() bool {
	return strings.EqualFold(a.AccountType, AccountTypeShared)
}

// ProfileForm is the editable part of a profile.
type ProfileForm struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// Form extracts the editable fields of the account.
func (a VideoAccount) Form() ProfileForm {
	return ProfileForm{Email: a.Email, FirstName: a.FirstName, LastName: a.LastName, Phone: a.Phone}
}

// ProfileUpdate is the payload accepted by the update endpoint.
type ProfileUpdate struct {
	FirstName   string `json:"first_name" validate:"required,max=100"`
	LastName    string `json:"last_name" validate:"required,max=100"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,max=32"`
}

// Update converts the form into an update payload.
func (f ProfileForm) Update() ProfileUpdate {
	return ProfileUpdate{
		FirstName:   strings.TrimSpace(f.FirstName),
		LastName:    strings.TrimSpace(f.LastName),
		PhoneNumber: strings.TrimSpace(f.Phone),
	}
}
