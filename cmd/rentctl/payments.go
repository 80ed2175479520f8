package main

import (
	"github.com/spf13/cobra"

	"rentcore/internal/core"
	"rentcore/pkg/domain"
)

func paymentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "payment", Short: "Record monthly rent payments"}
	cmd.AddCommand(paymentAddCmd(a), paymentPayCmd(a))
	return cmd
}

func paymentAddCmd(a *app) *cobra.Command {
	var (
		p                     core.Payment
		month, status, method string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record the payment for one contract month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if p.Month, err = parseMonth("month", month); err != nil {
				return err
			}
			p.Status = domain.PaymentStatus(status)
			p.Method = domain.PaymentMethod(method)
			created, res, err := a.svc.AddPayment(cmd.Context(), p)
			if err != nil {
				return err
			}
			return printResult(cmd, created, res)
		},
	}
	f := cmd.Flags()
	f.StringVar(&p.ContractID, "contract", "", "contract id")
	f.StringVar(&month, "month", "", "billing month, YYYY-MM")
	f.Float64Var(&p.Amount, "amount", 0, "amount")
	f.StringVar(&status, "status", "", "pending, paid or overdue")
	f.StringVar(&method, "method", "", "cash, transfer, card, check or other")
	f.StringVar(&p.Notes, "notes", "", "free-form notes")
	for _, name := range []string{"contract", "month", "amount"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func paymentPayCmd(a *app) *cobra.Command {
	var method, paidAt string
	cmd := &cobra.Command{
		Use:   "pay <payment-id>",
		Short: "Mark a payment as paid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paid := domain.PaymentPaid
			patch := core.PaymentPatch{Status: &paid}
			if method != "" {
				m := domain.PaymentMethod(method)
				patch.Method = &m
			}
			if paidAt != "" {
				at, err := parseDate("paid-at", paidAt)
				if err != nil {
					return err
				}
				patch.PaidAt = &at
			}
			p, res, err := a.svc.UpdatePayment(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			return printResult(cmd, p, res)
		},
	}
	cmd.Flags().StringVar(&method, "method", "", "cash, transfer, card, check or other")
	cmd.Flags().StringVar(&paidAt, "paid-at", "", "settlement day, YYYY-MM-DD (defaults to now)")
	return cmd
}
