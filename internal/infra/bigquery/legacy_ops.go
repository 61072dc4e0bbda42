package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/finansmanager/internal/domain"
	"github.com/dvloznov/finansmanager/internal/store"
)

// ListExpenses reads the user's legacy expense records.
func (r *Repository) ListExpenses(ctx context.Context, userID string) ([]*domain.Expense, error) {
	query := fmt.Sprintf(`
		SELECT
			expense_id,
			user_id,
			amount,
			category,
			description,
			expense_date
		FROM %s
		WHERE user_id = @user_id
		ORDER BY expense_date, expense_id
	`, r.table(store.CollectionExpenses))

	rows, err := readAll[ExpenseRow](ctx, r.client, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ListExpenses: %w", err)
	}

	expenses := make([]*domain.Expense, 0, len(rows))
	for _, row := range rows {
		e, err := expenseFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("ListExpenses: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, nil
}

// ListInvestments reads the user's legacy investment records.
func (r *Repository) ListInvestments(ctx context.Context, userID string) ([]*domain.Investment, error) {
	query := fmt.Sprintf(`
		SELECT
			investment_id,
			user_id,
			symbol,
			shares,
			purchase_price
		FROM %s
		WHERE user_id = @user_id
		ORDER BY symbol, investment_id
	`, r.table(store.CollectionInvestments))

	rows, err := readAll[InvestmentRow](ctx, r.client, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ListInvestments: %w", err)
	}

	investments := make([]*domain.Investment, 0, len(rows))
	for _, row := range rows {
		i, err := investmentFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("ListInvestments: %w", err)
		}
		investments = append(investments, i)
	}
	return investments, nil
}

// ImportExpenses streams legacy expense records into the dataset.
func (r *Repository) ImportExpenses(ctx context.Context, expenses []*domain.Expense) error {
	if len(expenses) == 0 {
		return nil
	}
	rows := make([]*ExpenseRow, 0, len(expenses))
	for _, e := range expenses {
		row, err := expenseToRow(e)
		if err != nil {
			return fmt.Errorf("ImportExpenses: %w", err)
		}
		rows = append(rows, row)
	}

	inserter := r.client.DatasetInProject(r.projectID, r.datasetID).Table(store.CollectionExpenses).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("ImportExpenses: inserting rows: %w", err)
	}
	return nil
}

// ImportInvestments streams legacy investment records into the dataset.
func (r *Repository) ImportInvestments(ctx context.Context, investments []*domain.Investment) error {
	if len(investments) == 0 {
		return nil
	}
	rows := make([]*InvestmentRow, 0, len(investments))
	for _, i := range investments {
		rows = append(rows, investmentToRow(i))
	}

	inserter := r.client.DatasetInProject(r.projectID, r.datasetID).Table(store.CollectionInvestments).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("ImportInvestments: inserting rows: %w", err)
	}
	return nil
}

// readAll runs a per-user query and collects every row.
func readAll[T any](ctx context.Context, client *bigquery.Client, query, userID string) ([]*T, error) {
	q := client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading query: %w", err)
	}

	var rows []*T
	for {
		var row T
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating: %w", err)
		}
		rows = append(rows, &row)
	}
	return rows, nil
}
