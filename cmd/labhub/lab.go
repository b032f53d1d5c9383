package main

import (
	"github.com/spf13/cobra"

	"labhub/internal/api"
	"labhub/internal/config"
)

func newLabCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lab",
		Short: "Inspect and manage labs through the API",
	}

	cmd.AddCommand(
		newLabListCmd(cfg, out),
		newLabShowCmd(cfg, out),
		newLabFollowersCmd(cfg, out),
		newLabDeleteCmd(cfg),
	)
	return cmd
}

func newLabListCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List labs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				labs, err := client.ListLabs(cmd.Context())
				if err != nil {
					return err
				}
				if out.structured() {
					return out.write(cmd.OutOrStdout(), labs)
				}
				return writeLabList(cmd.OutOrStdout(), labs)
			})
		},
	}
}

func newLabShowCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <code>",
		Short: "Show lab details",
		Args:  requireLabCode,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, _ := parseLabCode(args[0])
			return withClient(cfg, func(client *api.Client) error {
				lab, err := client.GetLab(cmd.Context(), code)
				if err != nil {
					return err
				}
				if out.structured() {
					return out.write(cmd.OutOrStdout(), lab)
				}
				return writeLabDetail(cmd.OutOrStdout(), lab)
			})
		},
	}
}

func newLabFollowersCmd(cfg *config.Config, out *outputOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "followers <code>",
		Short: "Count the students following a lab",
		Args:  requireLabCode,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, _ := parseLabCode(args[0])
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.CountFollowers(cmd.Context(), code)
				if err != nil {
					return err
				}
				if out.structured() {
					return out.write(cmd.OutOrStdout(), resp)
				}
				return writePlain(cmd.OutOrStdout(), "%d\n", resp.Count)
			})
		},
	}
}

// newLabDeleteCmd needs an admin token in LABHUB_API_TOKEN.
func newLabDeleteCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <code>",
		Short: "Delete a lab with its media, QR code and followers",
		Args:  requireLabCode,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, _ := parseLabCode(args[0])
			return withClient(cfg, func(client *api.Client) error {
				if err := client.DeleteLab(cmd.Context(), code); err != nil {
					return err
				}
				return writePlain(cmd.OutOrStdout(), "deleted lab %d\n", code)
			})
		},
	}
}
