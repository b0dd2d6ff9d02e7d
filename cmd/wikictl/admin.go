package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Doud-FR/Wiki/internal/bootstrap"
)

func init() {
	AdminCommand.AddCommand(&BootstrapCommand)
	RootCmd.AddCommand(&AdminCommand)
}

var AdminCommand = cobra.Command{
	Use:   "admin",
	Short: "Administrator account tasks",
}

var BootstrapCommand = cobra.Command{
	Use:   "bootstrap",
	Short: "Create the initial administrator if none exists",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := open(cmd.Context())
		if err != nil {
			return err
		}
		defer ws.Close()

		creds, err := bootstrap.EnsureAdminExists(cmd.Context(), ws.store, ws.logger)
		if err != nil {
			return err
		}
		if creds == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "an administrator already exists")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "email:    %s\npassword: %s\n", creds.Email, creds.Password)
		return nil
	},
}
