package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	UserCommand.AddCommand(&ListUsersCommand)
	RootCmd.AddCommand(&UserCommand)
}

var UserCommand = cobra.Command{
	Use:   "user",
	Short: "Inspect user accounts",
}

var ListUsersCommand = cobra.Command{
	Use:   "list",
	Short: "List every user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := open(cmd.Context())
		if err != nil {
			return err
		}
		defer ws.Close()

		users, err := ws.store.GetAllUsers(cmd.Context())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tADMIN\tACTIVE")
		for _, u := range users {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%t\n", u.ID, u.Email, u.FullName(), u.IsAdmin, u.IsActive)
		}
		return tw.Flush()
	},
}
