package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dvloznov/finansmanager/internal/advice"
	"github.com/dvloznov/finansmanager/internal/dashboard"
	"github.com/dvloznov/finansmanager/internal/store"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print a live summary whenever your records change",
	Long: `Subscribes to the expenses, investments and transactions collections
and prints the summary on every change until interrupted.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	return withRepository(ctx, func(repo store.Repository) error {
		d, err := dashboard.Open(ctx, repo, userID(), dashboard.WithOnChange(func(r advice.Records) {
			printSummary(out, advice.Summarize(r))
		}))
		if err != nil {
			return err
		}
		defer d.Close()

		<-ctx.Done()
		return nil
	})
}

func printSummary(out io.Writer, s advice.Summary) {
	var top []string
	for i, c := range s.TopCategories {
		if i == 3 {
			break
		}
		top = append(top, fmt.Sprintf("%s %s", c.Category, s.Money(c.Total)))
	}
	fmt.Fprintf(out, "expenses %d (%s) | holdings %d (%s) | logged %d: spent %s, earned %s",
		s.ExpenseCount, s.Money(s.TotalExpenses),
		s.HoldingCount, s.Money(s.InvestmentValue),
		s.TransactionCount, s.Money(s.LoggedSpending), s.Money(s.LoggedIncome))
	if len(top) > 0 {
		fmt.Fprintf(out, " | top: %s", strings.Join(top, ", "))
	}
	fmt.Fprintln(out)
}
