package main

import (
	"github.com/spf13/cobra"

	"rentcore/internal/core"
	"rentcore/pkg/domain"
)

func ticketCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "ticket", Short: "Open and work maintenance tickets"}
	cmd.AddCommand(ticketOpenCmd(a), ticketUpdateCmd(a), ticketPhotoCmd(a), ticketInvoiceCmd(a))
	return cmd
}

func ticketOpenCmd(a *app) *cobra.Command {
	var (
		t       core.Ticket
		urgency string
	)
	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open a ticket for a tenant's rented property",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t.Urgency = domain.Urgency(urgency)
			created, res, err := a.svc.AddTicket(cmd.Context(), t)
			if err != nil {
				return err
			}
			return printResult(cmd, created, res)
		},
	}
	f := cmd.Flags()
	f.StringVar(&t.PropertyID, "property", "", "property id")
	f.StringVar(&t.TenantID, "tenant", "", "tenant id")
	f.StringVar(&t.Title, "title", "", "short summary")
	f.StringVar(&t.Description, "description", "", "details")
	f.StringVar(&urgency, "urgency", "", "low, medium or high")
	f.Float64Var(&t.EstimatedCost, "cost", 0, "estimated cost")
	for _, name := range []string{"property", "tenant", "title"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func ticketUpdateCmd(a *app) *cobra.Command {
	var (
		status, contractor, invoice, urgency string
		cost                                 float64
		confirm                              bool
	)
	cmd := &cobra.Command{
		Use:   "update <ticket-id>",
		Short: "Move a ticket forward or change its details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := core.TicketPatch{ConfirmClose: confirm}
			f := cmd.Flags()
			if f.Changed("status") {
				s := domain.TicketStatus(status)
				patch.Status = &s
			}
			if f.Changed("contractor") {
				patch.ContractorID = &contractor
			}
			if f.Changed("invoice") {
				patch.InvoiceURL = &invoice
			}
			if f.Changed("urgency") {
				u := domain.Urgency(urgency)
				patch.Urgency = &u
			}
			if f.Changed("cost") {
				patch.EstimatedCost = &cost
			}
			t, res, err := a.svc.UpdateTicket(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			return printResult(cmd, t, res)
		},
	}
	f := cmd.Flags()
	f.StringVar(&status, "status", "", "open, in_progress or closed")
	f.StringVar(&contractor, "contractor", "", "assign a contractor id; empty unassigns")
	f.StringVar(&invoice, "invoice", "", "invoice URL")
	f.StringVar(&urgency, "urgency", "", "low, medium or high")
	f.Float64Var(&cost, "cost", 0, "estimated cost")
	f.BoolVar(&confirm, "confirm-close", false, "allow closing without an invoice")
	return cmd
}

func ticketPhotoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "photo <ticket-id> <file>",
		Short: "Upload a photo to a ticket",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			up, closeFn, err := openUpload(args[1])
			if err != nil {
				return err
			}
			defer closeFn()
			t, err := a.svc.AttachTicketPhoto(cmd.Context(), args[0], up)
			if err != nil {
				return err
			}
			return printJSON(cmd, t)
		},
	}
}

func ticketInvoiceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "invoice <ticket-id> <file>",
		Short: "Upload the contractor invoice for a ticket",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			up, closeFn, err := openUpload(args[1])
			if err != nil {
				return err
			}
			defer closeFn()
			t, err := a.svc.AttachTicketInvoice(cmd.Context(), args[0], up)
			if err != nil {
				return err
			}
			return printJSON(cmd, t)
		},
	}
}
