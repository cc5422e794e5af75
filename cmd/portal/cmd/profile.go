package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/voxbridge/customer-portal/internal/models"
	"github.com/voxbridge/customer-portal/internal/services"
)

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "profile",
		SilenceUsage: true,
		Short:        "Show or edit the customer profile",
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProfile(cmd, func(ctx context.Context, p *services.Profile) error {
				return renderProfile(cmd.OutOrStdout(), p.State())
			})
		},
	}
	cmd.AddCommand(profileUpdateCmd(), profilePhotoCmd(), profileRemovePhotoCmd())
	return cmd
}

type profileUpdateOptions struct {
	FirstName string
	LastName  string
	Phone     string
}

func profileUpdateCmd() *cobra.Command {
	var opts profileUpdateOptions
	cmd := &cobra.Command{
		Use:          "update",
		SilenceUsage: true,
		Short:        "Change name or phone number",
		Long:         `Change the profile's name or phone number. Shared accounts cannot edit these fields.`,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := cmd.Flags()
			return withProfile(cmd, func(ctx context.Context, p *services.Profile) error {
				err := p.Edit(func(form *models.ProfileForm) {
					if fs.Changed("first-name") {
						form.FirstName = opts.FirstName
					}
					if fs.Changed("last-name") {
						form.LastName = opts.LastName
					}
					if fs.Changed("phone") {
						form.Phone = opts.Phone
					}
				})
				if err != nil {
					return err
				}
				if err := p.Save(ctx); err != nil {
					if errors.Is(err, services.ErrNoChanges) || errors.Is(err, services.ErrSharedAccount) {
						return err
					}
					return errors.New(errorLine(err))
				}
				fmt.Fprintln(cmd.OutOrStdout(), services.ProfileSaved)
				return renderProfile(cmd.OutOrStdout(), p.State())
			})
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&opts.FirstName, "first-name", "", "first name")
	fs.StringVar(&opts.LastName, "last-name", "", "last name")
	fs.StringVar(&opts.Phone, "phone", "", "phone number")
	return cmd
}

func profilePhotoCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "photo FILE",
		SilenceUsage: true,
		Short:        "Upload a new profile photo (image, 5MB max)",
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readPhoto(args[0])
			if err != nil {
				return err
			}
			return withProfile(cmd, func(ctx context.Context, p *services.Profile) error {
				if err := p.UploadPhoto(ctx, args[0], data); err != nil {
					return errors.New(errorLine(err))
				}
				fmt.Fprintln(cmd.OutOrStdout(), services.PhotoUpdated)
				return renderProfile(cmd.OutOrStdout(), p.State())
			})
		},
	}
}

func profileRemovePhotoCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "remove-photo",
		SilenceUsage: true,
		Short:        "Remove the profile photo",
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProfile(cmd, func(ctx context.Context, p *services.Profile) error {
				if err := p.RemovePhoto(ctx); err != nil {
					return errors.New(errorLine(err))
				}
				fmt.Fprintln(cmd.OutOrStdout(), services.PhotoRemoved)
				return nil
			})
		},
	}
}

// withProfile loads the profile and hands it to fn.
func withProfile(cmd *cobra.Command, fn func(ctx context.Context, p *services.Profile) error) error {
	ctx := cmd.Context()
	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	p := services.NewProfile(a.client, a.accountEmail(), a.logger)
	if err := p.Load(ctx); err != nil {
		return errors.New(errorLine(err))
	}
	return fn(ctx, p)
}

// readPhoto reads at most one byte past the size limit so oversized files are
// rejected without loading them whole.
func readPhoto(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open photo: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, services.MaxPhotoBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read photo: %w", err)
	}
	return data, nil
}

func renderProfile(w io.Writer, st services.ProfileState) error {
	if globals.JSON {
		return printJSON(w, st)
	}
	printTable(w, []string{"Field", "Value"}, []profileField{
		{"Email", orDash(st.Form.Email)},
		{"First name", orDash(st.Form.FirstName)},
		{"Last name", orDash(st.Form.LastName)},
		{"Phone", orDash(st.Form.Phone)},
		{"Account type", orDash(st.AccountType)},
		{"Photo", orDash(st.ImageURL)},
	})
	if st.Shared() {
		fmt.Fprintln(w, "Name and phone are managed by the account owner.")
	}
	return nil
}

type profileField [2]string

func (f profileField) Cells() []string { return f[:] }

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
