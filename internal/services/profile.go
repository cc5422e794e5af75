package services

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	"github.com/voxbridge/customer-portal/internal/models"
	"github.com/voxbridge/customer-portal/internal/utils"
)

// MaxPhotoBytes caps profile photo uploads.
const MaxPhotoBytes = 5 * 1024 * 1024

const (
	ProfileLoadError = "Failed to load profile. Please try again."
	ProfileSaveError = "Failed to update profile. Please try again."
	ProfileSaved     = "Profile updated successfully!"
	PhotoInvalidType = "Please select a valid image file."
	PhotoTooLarge    = "Image must be 5MB or smaller."
	PhotoUploadError = "Failed to update photo. Please try again."
	PhotoRemoveError = "Failed to remove photo. Please try again."
	PhotoUpdated     = "Profile photo updated successfully!"
	PhotoRemoved     = "Profile photo removed successfully!"
)

var (
	// ErrSharedAccount rejects name and phone edits on shared accounts.
	ErrSharedAccount = errors.New("name and phone are not editable for shared accounts")
	// ErrInvalidPhoto rejects uploads that are not images or exceed MaxPhotoBytes.
	ErrInvalidPhoto = errors.New("invalid profile photo")
	// ErrNoChanges is returned by Save when the form matches the loaded profile.
	ErrNoChanges = errors.New("no profile changes to save")
)

// AccountStore is the subset of the customer API used by the profile view.
type AccountStore interface {
	VideoAccount(ctx context.Context) (models.VideoAccount, error)
	UpdateVideoAccount(ctx context.Context, update models.ProfileUpdate) error
	ChangeProfilePicture(ctx context.Context, filename, contentType string, data []byte) error
	DeleteProfilePicture(ctx context.Context) error
	ResolveAssetURL(path string) string
}

// ProfileState is a copy of the profile view state.
type ProfileState struct {
	Form        models.ProfileForm `json:"form"`
	Original    models.ProfileForm `json:"original"`
	AccountType string             `json:"accountType,omitempty"`
	ImageURL    string             `json:"imageUrl,omitempty"`
	Loaded      bool               `json:"loaded"`
}

// Shared reports whether the loaded account is a shared account.
func (s ProfileState) Shared() bool {
	return strings.EqualFold(s.AccountType, models.AccountTypeShared)
}

// HasChanges reports whether name or phone differ from the loaded profile.
func (s ProfileState) HasChanges() bool {
	if !s.Loaded {
		return false
	}
	return s.Form.FirstName != s.Original.FirstName ||
		s.Form.LastName != s.Original.LastName ||
		s.Form.Phone != s.Original.Phone
}

// Profile manages loading and editing the customer's video account.
type Profile struct {
	store  AccountStore
	email  string
	logger *slog.Logger

	mu    sync.Mutex
	state ProfileState
}

// NewProfile builds the view. email is shown when the account carries none,
// typically the address from the session token.
func NewProfile(store AccountStore, email string, logger *slog.Logger) *Profile {
	if logger == nil {
		logger = slog.Default()
	}
	return &Profile{
		store:  store,
		email:  email,
		logger: logger,
		state:  ProfileState{Form: models.ProfileForm{Email: email}},
	}
}

// State returns a copy of the current state.
func (p *Profile) State() ProfileState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Load fetches the account and resets the form to it.
func (p *Profile) Load(ctx context.Context) error {
	account, err := p.store.VideoAccount(ctx)
	if err != nil {
		appErr := utils.NewAppError("load profile", ProfileLoadError, err)
		p.logger.Error("profile load failed", slog.Any("error", appErr))
		return appErr
	}

	form := account.Form()
	if form.Email == "" {
		form.Email = p.email
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = ProfileState{
		Form:        form,
		Original:    form,
		AccountType: account.AccountType,
		ImageURL:    p.store.ResolveAssetURL(account.ProfilePicturePath),
		Loaded:      true,
	}
	return nil
}

// Edit applies fn to the form. Name and phone edits are refused on shared accounts.
func (p *Profile) Edit(fn func(form *models.ProfileForm)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := p.state.Form
	fn(&next)
	next.Email = p.state.Form.Email
	if p.state.Shared() && next != p.state.Form {
		return ErrSharedAccount
	}
	p.state.Form = next
	return nil
}

// Cancel restores the form to the loaded profile.
func (p *Profile) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.Loaded {
		p.state.Form = p.state.Original
	}
}

// Save sends the edited fields. On success the edited form becomes the new original.
func (p *Profile) Save(ctx context.Context) error {
	p.mu.Lock()
	state := p.state
	p.mu.Unlock()

	if state.Shared() {
		return ErrSharedAccount
	}
	if !state.HasChanges() {
		return ErrNoChanges
	}

	update := state.Form.Update()
	if err := models.Validate(update); err != nil {
		return utils.NewAppError("save profile", err.Error(), err)
	}
	if err := p.store.UpdateVideoAccount(ctx, update); err != nil {
		appErr := utils.NewAppError("save profile", ProfileSaveError, err)
		p.logger.Error("profile save failed", slog.Any("error", appErr))
		return appErr
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Original = state.Form
	return nil
}

// UploadPhoto validates and uploads a new photo, then reloads the profile.
// The content type is sniffed from the data rather than trusted from the name.
func (p *Profile) UploadPhoto(ctx context.Context, filename string, data []byte) error {
	if len(data) > MaxPhotoBytes {
		return utils.NewAppError("upload photo", PhotoTooLarge, ErrInvalidPhoto)
	}
	mt := mimetype.Detect(data)
	if len(data) == 0 || !strings.HasPrefix(mt.String(), "image/") {
		return utils.NewAppError("upload photo", PhotoInvalidType, ErrInvalidPhoto)
	}

	contentType := mt.String()
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	if err := p.store.ChangeProfilePicture(ctx, filepath.Base(filename), contentType, data); err != nil {
		appErr := utils.NewAppError("upload photo", PhotoUploadError, err)
		p.logger.Error("photo upload failed", slog.Any("error", appErr))
		return appErr
	}
	p.reloadAfterPhoto(ctx)
	return nil
}

// RemovePhoto deletes the current photo, then reloads the profile.
func (p *Profile) RemovePhoto(ctx context.Context) error {
	if err := p.store.DeleteProfilePicture(ctx); err != nil {
		appErr := utils.NewAppError("remove photo", PhotoRemoveError, err)
		p.logger.Error("photo removal failed", slog.Any("error", appErr))
		return appErr
	}
	p.mu.Lock()
	p.state.ImageURL = ""
	p.mu.Unlock()
	p.reloadAfterPhoto(ctx)
	return nil
}

// reloadAfterPhoto refreshes the profile; a failed reload does not undo the photo change.
func (p *Profile) reloadAfterPhoto(ctx context.Context) {
	if err := p.Load(ctx); err != nil {
		p.logger.Warn("profile reload after photo change failed", slog.Any("error", err))
	}
}
