package main

import (
	"github.com/spf13/cobra"
)

func reportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "report", Short: "Read-only views over the portfolio"}

	var owner string
	dashboard := &cobra.Command{
		Use:   "dashboard",
		Short: "Owner dashboard counts and income",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := a.svc.OwnerDashboard(cmd.Context(), owner)
			if err != nil {
				return err
			}
			return printJSON(cmd, d)
		},
	}
	dashboard.Flags().StringVar(&owner, "owner", "", "owner id; empty covers every property")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Platform-wide counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.svc.PlatformStats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, s)
		},
	}

	tenant := &cobra.Command{
		Use:   "tenant <tenant-id>",
		Short: "A tenant's contract, payments and tickets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := a.svc.TenantOverview(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, o)
		},
	}

	var limit int
	activity := &cobra.Command{
		Use:   "activity",
		Short: "Most recent committed operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logs, err := a.svc.ActivityLog(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printJSON(cmd, logs)
		},
	}
	activity.Flags().IntVar(&limit, "limit", 20, "entries to show")

	cmd.AddCommand(dashboard, stats, tenant, activity)
	return cmd
}

func notificationsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "notifications", Short: "Read and acknowledge user notifications"}

	var unread bool
	list := &cobra.Command{
		Use:   "list <user-id>",
		Short: "A user's notifications, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := a.svc.Notifications(cmd.Context(), args[0], unread)
			if err != nil {
				return err
			}
			return printJSON(cmd, ns)
		},
	}
	list.Flags().BoolVar(&unread, "unread", false, "only unread notifications")

	var all bool
	read := &cobra.Command{
		Use:   "read <notification-id | user-id>",
		Short: "Mark one notification, or with --all every one of a user's, as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				n, res, err := a.svc.MarkAllAsRead(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printResult(cmd, map[string]int{"marked": n}, res)
			}
			n, res, err := a.svc.MarkAsRead(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printResult(cmd, n, res)
		},
	}
	read.Flags().BoolVar(&all, "all", false, "treat the argument as a user id and mark everything read")

	cmd.AddCommand(list, read)
	return cmd
}
