package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"labhub/internal/api"
	internalauth "labhub/internal/auth"
	"labhub/internal/config"
	"labhub/internal/server"
	"labhub/internal/store"
)

func newAdminCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative commands",
	}

	cmd.AddCommand(newAdminAddCmd(cfg, out))
	cmd.AddCommand(newAdminLoginCmd(cfg, out))
	return cmd
}

// newAdminAddCmd writes an admin straight to the database so the first
// account can exist before anyone is able to log in.
func newAdminAddCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	var (
		passwordStdin bool
		name          string
		surname       string
	)

	cmd := &cobra.Command{
		Use:   "add <email>",
		Short: "Create one admin account directly in the database",
		Args:  requireExactlyArgs(1, "email is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !passwordStdin {
				return fmt.Errorf("--password-stdin is required")
			}
			email, err := internalauth.NormalizeEmail(args[0])
			if err != nil {
				return err
			}
			password, err := readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}

			st, err := store.OpenDriver(cfg.DBDriver, cfg.DBTarget())
			if err != nil {
				return err
			}
			defer st.Close()

			accounts := server.NewAccountService(st, cfg.SessionTTL())
			admin, err := accounts.RegisterAdmin(cmd.Context(), api.AdminRegisterRequest{
				Name:     name,
				Surname:  surname,
				Email:    email,
				Password: password,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out.structured() {
				return out.write(w, admin)
			}
			return writePlain(w, "created admin %s (%d)\n", admin.Email, admin.Code)
		},
	}

	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read password from stdin")
	cmd.Flags().StringVar(&name, "name", "", "admin first name (required)")
	cmd.Flags().StringVar(&surname, "surname", "", "admin surname (required)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("surname")
	return cmd
}

func newAdminLoginCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Log in as an admin and print a bearer token",
		Args:  requireExactlyArgs(1, "email is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !passwordStdin {
				return fmt.Errorf("--password-stdin is required")
			}
			password, err := readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}

			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.AdminLogin(cmd.Context(), api.LoginRequest{Email: args[0], Password: password})
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if out.structured() {
					return out.write(w, resp)
				}
				return writePlain(w, "%s\n", resp.Token)
			})
		},
	}

	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read password from stdin")
	return cmd
}

func readPassword(r io.Reader) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	password := strings.TrimSpace(string(raw))
	if password == "" {
		return "", fmt.Errorf("password is required on stdin")
	}
	return password, nil
}
