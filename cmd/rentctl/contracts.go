package main

import (
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"rentcore/internal/core"
)

func contractCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contract",
		Short: "Create, terminate and renew rental contracts",
	}
	cmd.AddCommand(contractAddCmd(a), contractTerminateCmd(a), contractRenewCmd(a), contractAttachCmd(a))
	return cmd
}

func contractAddCmd(a *app) *cobra.Command {
	var (
		c          core.Contract
		start, end string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Bind a tenant to a property",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if c.StartDate, err = parseDate("start", start); err != nil {
				return err
			}
			if c.EndDate, err = parseDate("end", end); err != nil {
				return err
			}
			created, res, err := a.svc.AddContract(cmd.Context(), c)
			if err != nil {
				return err
			}
			return printResult(cmd, created, res)
		},
	}
	f := cmd.Flags()
	f.StringVar(&c.PropertyID, "property", "", "property id")
	f.StringVar(&c.TenantID, "tenant", "", "tenant id")
	f.StringVar(&start, "start", "", "first day, YYYY-MM-DD")
	f.StringVar(&end, "end", "", "last day, YYYY-MM-DD")
	f.Float64Var(&c.MonthlyAmount, "rent", 0, "monthly amount")
	f.StringVar(&c.Currency, "currency", "", "ISO currency code")
	f.IntVar(&c.PaymentDay, "day", 1, "day of month rent is due")
	for _, name := range []string{"property", "tenant", "start", "end", "rent"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func contractTerminateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "terminate <contract-id>",
		Short: "End a contract early and release its property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, res, err := a.svc.TerminateContract(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printResult(cmd, c, res)
		},
	}
}

func contractRenewCmd(a *app) *cobra.Command {
	var end string
	cmd := &cobra.Command{
		Use:   "renew <contract-id>",
		Short: "Extend a contract to a later end date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			newEnd, err := parseDate("end", end)
			if err != nil {
				return err
			}
			c, res, err := a.svc.RenewContract(cmd.Context(), args[0], newEnd)
			if err != nil {
				return err
			}
			return printResult(cmd, c, res)
		},
	}
	cmd.Flags().StringVar(&end, "end", "", "new last day, YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func contractAttachCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "attach <contract-id> <file>",
		Short: "Upload a document and attach it to a contract",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			up, closeFn, err := openUpload(args[1])
			if err != nil {
				return err
			}
			defer closeFn()
			c, err := a.svc.UploadContractDocument(cmd.Context(), args[0], up)
			if err != nil {
				return err
			}
			return printJSON(cmd, c)
		},
	}
}

// openUpload opens path for one of the upload operations.
func openUpload(path string) (core.Upload, func(), error) {
	f, err := os.Open(path) // #nosec G304 -- operator supplied upload path
	if err != nil {
		return core.Upload{}, nil, err
	}
	name := filepath.Base(path)
	return core.Upload{
		Filename:    name,
		ContentType: mime.TypeByExtension(filepath.Ext(name)),
		Body:        f,
	}, func() { _ = f.Close() }, nil
}
