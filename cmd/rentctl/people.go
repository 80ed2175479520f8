package main

import (
	"github.com/spf13/cobra"

	"rentcore/internal/core"
	"rentcore/pkg/domain"
)

func ownerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "owner", Short: "Manage owner profiles"}
	cmd.AddCommand(ownerAddCmd(a), deleteUserCmd(a, domain.UserOwner))
	return cmd
}

func ownerAddCmd(a *app) *cobra.Command {
	var o core.Owner
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an owner profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			created, res, err := a.svc.AddOwner(cmd.Context(), o)
			if err != nil {
				return err
			}
			return printResult(cmd, created, res)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.FullName, "name", "", "full name")
	f.StringVar(&o.Email, "email", "", "email address")
	f.StringVar(&o.Phone, "phone", "", "phone number")
	f.StringVar(&o.Company, "company", "", "company name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func tenantCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "tenant", Short: "Manage tenant profiles"}
	cmd.AddCommand(tenantAddCmd(a), deleteUserCmd(a, domain.UserTenant))
	return cmd
}

func tenantAddCmd(a *app) *cobra.Command {
	var t core.Tenant
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a tenant profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			created, res, err := a.svc.AddTenant(cmd.Context(), t)
			if err != nil {
				return err
			}
			return printResult(cmd, created, res)
		},
	}
	f := cmd.Flags()
	f.StringVar(&t.FullName, "name", "", "full name")
	f.StringVar(&t.DocumentID, "document", "", "identity document number")
	f.StringVar(&t.Email, "email", "", "email address")
	f.StringVar(&t.Phone, "phone", "", "phone number")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func deleteUserCmd(a *app, kind domain.UserKind) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a " + string(kind) + " without an in-force contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.svc.DeleteUser(cmd.Context(), args[0], kind)
			if err != nil {
				return err
			}
			return printResult(cmd, map[string]string{"deleted": args[0]}, res)
		},
	}
}

func contractorCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "contractor", Short: "Manage service providers"}
	cmd.AddCommand(contractorAddCmd(a), contractorDeleteCmd(a))
	return cmd
}

func contractorAddCmd(a *app) *cobra.Command {
	var c core.Contractor
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a contractor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			created, res, err := a.svc.AddContractor(cmd.Context(), c)
			if err != nil {
				return err
			}
			return printResult(cmd, created, res)
		},
	}
	f := cmd.Flags()
	f.StringVar(&c.Name, "name", "", "contractor name")
	f.StringVar(&c.Specialty, "specialty", "", "trade or specialty")
	f.StringVar(&c.Phone, "phone", "", "phone number")
	f.StringVar(&c.Email, "email", "", "email address")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func contractorDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a contractor with no open assignments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.svc.DeleteContractor(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printResult(cmd, map[string]string{"deleted": args[0]}, res)
		},
	}
}
