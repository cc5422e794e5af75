package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/moby/term"
	"github.com/spf13/cobra"

	"github.com/voxbridge/customer-portal/internal/models"
	"github.com/voxbridge/customer-portal/internal/session"
)

type loginOptions struct {
	Username string
	Password string
}

func loginCmd() *cobra.Command {
	var opts loginOptions
	cmd := &cobra.Command{
		Use:          "login",
		SilenceUsage: true,
		Short:        "Log in to the customer portal",
		Long: `Log in with the email and password of the customer account. The returned
token is saved to the session file and used by every other command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, opts)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&opts.Username, "username", "u", "", "account email")
	fs.StringVarP(&opts.Password, "password", "p", "", "account password (prompted when empty)")
	return cmd
}

func runLogin(cmd *cobra.Command, opts loginOptions) error {
	ctx := cmd.Context()
	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()
	if opts.Username == "" {
		if opts.Username, err = readLine(in, out, "email: ", false); err != nil {
			return err
		}
	}
	if opts.Password == "" {
		if opts.Password, err = readLine(in, out, "password: ", true); err != nil {
			return errors.New("password required")
		}
	}

	result, err := a.client.Login(ctx, models.LoginRequest{Username: opts.Username, Password: opts.Password})
	if err != nil {
		return err
	}
	if result.MFARequired() {
		a.logger.Debug("login requires mfa", slog.String("challenge", result.Challenge))
		if result, err = a.client.SetupMFA(ctx, result.Session); err != nil {
			return err
		}
	}
	if result.Token == "" {
		if result.Message != "" {
			return fmt.Errorf("login incomplete: %s", result.Message)
		}
		return errors.New("login incomplete: no token returned")
	}

	email := opts.Username
	if claims, err := session.Inspect(result.Token); err == nil && claims.Email != "" {
		email = claims.Email
	}
	if err := a.store.Save(result.Token, email); err != nil {
		return err
	}
	fmt.Fprintf(out, "Logged in as %s\n", email)
	return nil
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "logout",
		SilenceUsage: true,
		Short:        "Remove the saved session",
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

type resetPasswordOptions struct {
	Email string
	Code  string
}

func resetPasswordCmd() *cobra.Command {
	var opts resetPasswordOptions
	cmd := &cobra.Command{
		Use:          "reset-password",
		SilenceUsage: true,
		Short:        "Set a new password with an emailed verification code",
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()
			if opts.Email == "" {
				if opts.Email, err = readLine(in, out, "email: ", false); err != nil {
					return err
				}
			}
			if opts.Code == "" {
				if opts.Code, err = readLine(in, out, "verification code: ", false); err != nil {
					return err
				}
			}
			reset := models.PasswordReset{Email: opts.Email, Code: opts.Code}
			if reset.NewPassword, err = readLine(in, out, "new password: ", true); err != nil {
				return err
			}
			if reset.ConfirmPassword, err = readLine(in, out, "confirm password: ", true); err != nil {
				return err
			}

			if err := a.client.ConfirmForgotPassword(cmd.Context(), reset); err != nil {
				return err
			}
			fmt.Fprintln(out, "Password updated, run `portal login` to sign in")
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&opts.Email, "email", "e", "", "account email")
	fs.StringVar(&opts.Code, "code", "", "6-digit verification code")
	return cmd
}

// readLine prompts on out and reads one line. Silent prompts disable echo when
// stdin is a terminal.
func readLine(in *bufio.Reader, out io.Writer, prompt string, silent bool) (string, error) {
	fmt.Fprint(out, prompt)
	if silent {
		fd := os.Stdin.Fd()
		if term.IsTerminal(fd) {
			state, err := term.SaveState(fd)
			if err != nil {
				return "", err
			}
			if err := term.DisableEcho(fd, state); err != nil {
				return "", err
			}
			defer func() {
				_ = term.RestoreTerminal(fd, state)
				fmt.Fprintln(out)
			}()
		}
	}

	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
