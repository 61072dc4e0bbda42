package bigquery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/finansmanager/internal/domain"
	"github.com/dvloznov/finansmanager/internal/store"
)

// GetProfile retrieves the user's profile. Returns store.ErrNotFound when the
// user has none.
func (r *Repository) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	query := fmt.Sprintf(`
		SELECT
			user_id,
			name,
			place,
			currency,
			purpose,
			banks,
			categories,
			updated_ts
		FROM %s
		WHERE user_id = @user_id
		ORDER BY updated_ts DESC
		LIMIT 1
	`, r.table(store.CollectionProfiles))

	q := r.client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetProfile: reading query: %w", err)
	}

	var row ProfileRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, fmt.Errorf("GetProfile: %s: %w", userID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetProfile: iterating: %w", err)
	}

	return profileFromRow(&row)
}

// SaveProfile merges update into the stored profile with a MERGE statement.
// DML is used instead of streaming inserts so the row can be updated again
// right away.
func (r *Repository) SaveProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.UserProfile, error) {
	base, err := r.GetProfile(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("SaveProfile: %w", err)
	}

	merged := update.Apply(userID, base, time.Now().UTC())

	banks, err := json.Marshal(merged.Banks)
	if err != nil {
		return nil, fmt.Errorf("SaveProfile: encoding banks: %w", err)
	}
	categories := merged.Categories
	if categories == nil {
		categories = []string{}
	}

	query := fmt.Sprintf(`
		MERGE %s T
		USING (SELECT @user_id AS user_id) S
		ON T.user_id = S.user_id
		WHEN MATCHED THEN UPDATE SET
			name = @name,
			place = @place,
			currency = @currency,
			purpose = @purpose,
			banks = PARSE_JSON(@banks),
			categories = @categories,
			updated_ts = @updated_ts
		WHEN NOT MATCHED THEN INSERT
			(user_id, name, place, currency, purpose, banks, categories, updated_ts)
		VALUES
			(@user_id, @name, @place, @currency, @purpose, PARSE_JSON(@banks), @categories, @updated_ts)
	`, r.table(store.CollectionProfiles))

	q := r.client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "name", Value: merged.Name},
		{Name: "place", Value: merged.Place},
		{Name: "currency", Value: merged.Currency},
		{Name: "purpose", Value: merged.Purpose},
		{Name: "banks", Value: string(banks)},
		{Name: "categories", Value: categories},
		{Name: "updated_ts", Value: merged.UpdatedAt},
	}

	if err := r.exec(ctx, q); err != nil {
		return nil, fmt.Errorf("SaveProfile: %w", err)
	}

	r.log.Debug().Str("user_id", userID).Msg("Profile saved")
	return merged, nil
}
