package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Doud-FR/Wiki/internal/ledger"
	"github.com/Doud-FR/Wiki/internal/models"
)

func init() {
	PermissionCommand.AddCommand(&GrantCommand)
	PermissionCommand.AddCommand(&RevokeCommand)
	PermissionCommand.AddCommand(&ListPermissionsCommand)
	PermissionCommand.AddCommand(&CheckCommand)
	RootCmd.AddCommand(&PermissionCommand)
}

var PermissionCommand = cobra.Command{
	Use:   "permission",
	Short: "Manage grants on folders and documents",
}

var GrantCommand = cobra.Command{
	Use:   "grant <resource-type> <resource-id> <subject-type> <subject-id> <level>",
	Short: "Write a grant, replacing any existing one for the same subject",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		resource, err := parseResource(args[0], args[1])
		if err != nil {
			return err
		}
		subject, err := parseSubject(args[2], args[3])
		if err != nil {
			return err
		}
		level, err := models.ParseLevel(args[4])
		if err != nil {
			return err
		}

		ws, err := open(cmd.Context())
		if err != nil {
			return err
		}
		defer ws.Close()

		p, err := ws.grants.Assign(cmd.Context(), ledger.GrantRequest{Resource: resource, Subject: subject, Level: level})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "granted %s on %s to %s\n", p.Level, resource, subject)
		return nil
	},
}

var RevokeCommand = cobra.Command{
	Use:   "revoke <resource-type> <resource-id> <subject-type> <subject-id>",
	Short: "Remove a subject's grant",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		resource, err := parseResource(args[0], args[1])
		if err != nil {
			return err
		}
		subject, err := parseSubject(args[2], args[3])
		if err != nil {
			return err
		}

		ws, err := open(cmd.Context())
		if err != nil {
			return err
		}
		defer ws.Close()

		if err := ws.grants.Remove(cmd.Context(), resource, subject); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "revoked %s on %s\n", subject, resource)
		return nil
	},
}

var ListPermissionsCommand = cobra.Command{
	Use:   "list <resource-type> <resource-id>",
	Short: "List the grants on a resource",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		resource, err := parseResource(args[0], args[1])
		if err != nil {
			return err
		}

		ws, err := open(cmd.Context())
		if err != nil {
			return err
		}
		defer ws.Close()

		grants, err := ws.grants.Grants(cmd.Context(), resource)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SUBJECT\tLEVEL\tUPDATED")
		for _, g := range grants {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", g.Subject(), g.Level, g.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	},
}

var CheckCommand = cobra.Command{
	Use:   "check <email> <resource-type> <resource-id> <level>",
	Short: "Explain whether a user holds a level on a resource",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		resource, err := parseResource(args[1], args[2])
		if err != nil {
			return err
		}
		level, err := models.ParseLevel(args[3])
		if err != nil {
			return err
		}

		ws, err := open(cmd.Context())
		if err != nil {
			return err
		}
		defer ws.Close()

		user, err := ws.store.GetUserByEmail(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		res, err := ws.grants.Check(cmd.Context(), user, resource, level)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", res.Decision, res.Reason)
		return nil
	},
}

func parseResource(kind, id string) (models.Resource, error) {
	t, err := models.ParseResourceType(kind)
	if err != nil {
		return models.Resource{}, err
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return models.Resource{}, fmt.Errorf("invalid resource id %q", id)
	}
	return models.Resource{Type: t, ID: n}, nil
}

func parseSubject(kind, id string) (models.Subject, error) {
	t, err := models.ParseSubjectType(kind)
	if err != nil {
		return models.Subject{}, err
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return models.Subject{}, fmt.Errorf("invalid subject id %q", id)
	}
	return models.Subject{Type: t, ID: n}, nil
}
