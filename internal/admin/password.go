package admin

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dmitrijs2005/cottonadvisor/internal/common"
	"github.com/dmitrijs2005/cottonadvisor/internal/server/services"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// getPassword prints prompt to w and reads a password without echo.
// The caller wipes the result.
func getPassword(w io.Writer, prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	return pw, err
}

func (a *app) resetPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <email>",
		Short: "Set a new password for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			pw, err := getPassword(out, "New password: ")
			if err != nil {
				return err
			}
			defer common.WipeByteArray(pw)
			confirm, err := getPassword(out, "Repeat password: ")
			if err != nil {
				return err
			}
			defer common.WipeByteArray(confirm)
			if !bytes.Equal(pw, confirm) {
				return errors.New("passwords do not match")
			}

			err = a.withDB(ctx, func(db *sql.DB) error {
				return services.NewUserService(db, a.rm, a.cfg, a.log).ResetPassword(ctx, args[0], string(pw))
			})
			if errors.Is(err, common.ErrorNotFound) {
				return fmt.Errorf("no account with email %s", args[0])
			}
			if err != nil {
				return err
			}

			a.log.Info(ctx, "password reset", "email", args[0])
			fmt.Fprintln(out, "Password updated.")
			return nil
		},
	}
}
