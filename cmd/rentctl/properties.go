package main

import (
	"github.com/spf13/cobra"

	"rentcore/internal/core"
	"rentcore/pkg/domain"
)

func propertyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "property",
		Short: "Register properties and change their occupancy",
	}
	cmd.AddCommand(propertyAddCmd(a), propertyStatusCmd(a), propertyMaintenanceCmd(a))
	return cmd
}

func propertyAddCmd(a *app) *cobra.Command {
	var (
		p    core.Property
		kind string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a property",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p.Type = domain.PropertyType(kind)
			created, res, err := a.svc.AddProperty(cmd.Context(), p)
			if err != nil {
				return err
			}
			return printResult(cmd, created, res)
		},
	}
	f := cmd.Flags()
	f.StringVar(&p.OwnerID, "owner", "", "owner id (defaults to the sole owner)")
	f.StringVar(&p.Title, "title", "", "property title")
	f.StringVar(&p.Address, "address", "", "street address")
	f.StringVar(&p.City, "city", "", "city")
	f.StringVar(&p.Country, "country", "", "country")
	f.StringVar(&kind, "type", "", "apartment, house, studio, commercial or room")
	f.Float64Var(&p.SizeM2, "size", 0, "size in square meters")
	f.IntVar(&p.Rooms, "rooms", 0, "number of rooms")
	f.IntVar(&p.Bathrooms, "bathrooms", 0, "number of bathrooms")
	f.Float64Var(&p.RentAmount, "rent", 0, "monthly rent")
	f.StringVar(&p.Currency, "currency", "", "ISO currency code")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func propertyStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <property-id> <available|maintenance>",
		Short: "Set a vacant property's occupancy status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, res, err := a.svc.UpdatePropertyStatus(cmd.Context(), args[0], domain.OccupancyStatus(args[1]))
			if err != nil {
				return err
			}
			return printResult(cmd, p, res)
		},
	}
}

func propertyMaintenanceCmd(a *app) *cobra.Command {
	var off bool
	cmd := &cobra.Command{
		Use:   "maintenance <property-id>",
		Short: "Set or clear the maintenance override",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, res, err := a.svc.FlagPropertyMaintenance(cmd.Context(), args[0], !off)
			if err != nil {
				return err
			}
			return printResult(cmd, p, res)
		},
	}
	cmd.Flags().BoolVar(&off, "clear", false, "clear the override instead of setting it")
	return cmd
}
