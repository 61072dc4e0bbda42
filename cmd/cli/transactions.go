package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dvloznov/finansmanager/internal/domain"
	"github.com/dvloznov/finansmanager/internal/store"
)

var transactionsJSON bool

var transactionsCmd = &cobra.Command{
	Use:     "transactions",
	Aliases: []string{"tx"},
	Short:   "List logged transactions",
	RunE:    runTransactions,
}

func init() {
	transactionsCmd.Flags().BoolVar(&transactionsJSON, "json", false, "print as JSON")
}

func runTransactions(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	return withRepository(ctx, func(repo store.Repository) error {
		txs, err := repo.ListTransactions(ctx, userID())
		if err != nil {
			return err
		}

		if transactionsJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(txs)
		}

		if len(txs) == 0 {
			fmt.Fprintf(out, "No transactions for %s.\n", userID())
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "CREATED\tACTION\tAMOUNT\tCURRENCY\tCATEGORY\tDESCRIPTION")
		for _, tx := range txs {
			e := tx.Entities
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				tx.CreatedAt.Format("2006-01-02 15:04"),
				e.ActionName(),
				e.Text(domain.FieldAmount),
				e.Text(domain.FieldCurrency),
				e.Text(domain.FieldCategory),
				e.Text(domain.FieldDescription),
			)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(out, "%d transaction(s)\n", len(txs))
		return nil
	})
}
