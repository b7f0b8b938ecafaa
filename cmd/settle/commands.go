package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/coursehub-backend/internal/reports"
	"github.com/angelmondragon/coursehub-backend/internal/settlement"
	"github.com/angelmondragon/coursehub-backend/pkg/auth"
	"github.com/angelmondragon/coursehub-backend/pkg/db/models"
	"github.com/angelmondragon/coursehub-backend/pkg/enums"
	"github.com/angelmondragon/coursehub-backend/pkg/outbox"
)

func addPeriodFlags(cmd *cobra.Command) {
	cmd.Flags().Int("year", 0, "Settlement year, e.g. 2026")
	cmd.Flags().Int("month", 0, "Settlement month, 1-12")
	_ = cmd.MarkFlagRequired("year")
	_ = cmd.MarkFlagRequired("month")
}

func periodFromFlags(cmd *cobra.Command) (settlement.Period, error) {
	year, err := cmd.Flags().GetInt("year")
	if err != nil {
		return settlement.Period{}, err
	}
	month, err := cmd.Flags().GetInt("month")
	if err != nil {
		return settlement.Period{}, err
	}
	return settlement.NewPeriod(year, month)
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate the invoices of a month",
		RunE: func(cmd *cobra.Command, args []string) error {
			period, err := periodFromFlags(cmd)
			if err != nil {
				return err
			}
			env, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()

			ctx := settlement.WithTrigger(cmd.Context(), "cli")
			result := env.stack.Service.GenerateMonthlyInvoices(ctx, period.Year, period.Month)
			fmt.Fprintf(cmd.OutOrStdout(), "%s (invoices: %d)\n", result.Message, result.InvoiceCount)
			if !result.Success {
				return fmt.Errorf("settlement for %s failed", period.ID())
			}
			return nil
		},
	}
	addPeriodFlags(cmd)
	return cmd
}

func invoicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoices",
		Short: "List the committed invoices of a month",
		RunE: func(cmd *cobra.Command, args []string) error {
			period, err := periodFromFlags(cmd)
			if err != nil {
				return err
			}
			env, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()

			invoices, err := env.stack.Service.ListInvoices(cmd.Context(), period)
			if err != nil {
				return err
			}
			return printInvoices(cmd.OutOrStdout(), invoices)
		},
	}
	addPeriodFlags(cmd)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the invoices of a month to an xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			period, err := periodFromFlags(cmd)
			if err != nil {
				return err
			}
			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				out = reports.Filename(period)
			}

			env, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()

			invoices, err := env.stack.Service.ListInvoices(cmd.Context(), period)
			if err != nil {
				return err
			}

			f, err := os.Create(filepath.Clean(out))
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := reports.WriteInvoicesXLSX(f, period, invoices); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d invoices to %s\n", len(invoices), out)
			return nil
		},
	}
	addPeriodFlags(cmd)
	cmd.Flags().StringP("out", "o", "", "Output path (default settlement-YYYY-MM.xlsx)")
	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token [subject]",
		Short: "Mint a staff access token for the admin API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawRole, _ := cmd.Flags().GetString("role")
			role, err := enums.ParseMemberRole(rawRole)
			if err != nil {
				return err
			}
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			token, err := auth.MintAccessToken(cfg.JWT, time.Now(), auth.AccessTokenPayload{
				Subject: args[0],
				Role:    role,
				JTI:     uuid.NewString(),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().String("role", string(enums.MemberRoleFinance), "Staff role: admin or finance")
	return cmd
}

func outboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "List outbox events that have not reached Pub/Sub",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			if limit <= 0 {
				return fmt.Errorf("limit must be positive")
			}
			env, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()

			rows, err := outbox.NewRepository(env.db.DB()).ListUnpublished(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printOutbox(cmd.OutOrStdout(), rows, env.cfg.Outbox.MaxAttempts)
		},
	}
	cmd.Flags().Int("limit", 50, "Maximum rows to list")
	return cmd
}

// printOutbox marks rows that reached maxAttempts as parked.
func printOutbox(w io.Writer, rows []models.OutboxEvent, maxAttempts int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEVENT\tAGGREGATE\tCREATED\tATTEMPTS\tSTATE\tLAST ERROR")
	for _, row := range rows {
		state := "pending"
		if maxAttempts > 0 && row.AttemptCount >= maxAttempts {
			state = "parked"
		}
		lastErr := ""
		if row.LastError != nil {
			lastErr = *row.LastError
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			row.ID,
			row.EventType,
			row.AggregateID,
			row.CreatedAt.UTC().Format(time.RFC3339),
			row.AttemptCount,
			state,
			lastErr,
		)
	}
	return tw.Flush()
}

func printInvoices(w io.Writer, invoices []settlement.Invoice) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TENANT\tSTATUS\tSALES\tREVENUE\tTAXES\tPROCESSOR\tPLATFORM\tNET")
	for _, inv := range invoices {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			inv.TenantID,
			inv.Status,
			len(inv.SaleRecordIDs),
			inv.TotalRevenue.StringFixed(2),
			inv.TotalTaxes.StringFixed(2),
			inv.TotalProcessorFees.StringFixed(2),
			inv.TotalPlatformFees.StringFixed(2),
			inv.NetAmountToTransfer.StringFixed(2),
		)
	}
	totals := settlement.SumInvoices(invoices)
	fmt.Fprintf(tw, "TOTAL\t\t\t%s\t%s\t%s\t%s\t%s\n",
		totals.Revenue.StringFixed(2),
		totals.Taxes.StringFixed(2),
		totals.ProcessorFees.StringFixed(2),
		totals.PlatformFees.StringFixed(2),
		totals.NetToTenants.StringFixed(2),
	)
	return tw.Flush()
}
