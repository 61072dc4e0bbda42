package setup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finansmanager/internal/domain"
	"github.com/dvloznov/finansmanager/internal/nlu"
	"github.com/dvloznov/finansmanager/internal/store/inmemory"
)

// failingProfiles fails every write.
type failingProfiles struct {
	*inmemory.Store
	err error
}

func (f failingProfiles) SaveProfile(ctx context.Context, userID string, u domain.ProfileUpdate) (*domain.UserProfile, error) {
	return nil, f.err
}

func TestNewDraft_Defaults(t *testing.T) {
	d := NewDraft("Ada", nil)
	assert.Equal(t, "Ada", d.Name)
	assert.Equal(t, "USD", d.Currency)
	assert.Equal(t, "Personal", d.Purpose)
	assert.Equal(t, []domain.Bank{{Name: "Bank A", ID: 1}}, d.Banks)
	assert.Equal(t, DefaultCategories, d.Categories)

	d = NewDraft("Ada", &domain.UserProfile{Place: "Oslo", Currency: "EUR", Categories: []string{"Rent"}})
	assert.Equal(t, "Oslo", d.Place)
	assert.Equal(t, "EUR", d.Currency)
	assert.Equal(t, []string{"Rent"}, d.Categories)
	assert.Len(t, d.Banks, 1, "nil banks fall back to the default row")
}

func TestDefaultCategories_OwnStorage(t *testing.T) {
	assert.Equal(t, nlu.FallbackCategories, DefaultCategories)
	assert.NotSame(t, &nlu.FallbackCategories[0], &DefaultCategories[0])

	w := NewWizard("u1", "Ada", nil, inmemory.NewStore())
	w.ToggleCategory("Groceries")
	assert.Contains(t, DefaultCategories, "Groceries")
}

func TestWizard_HappyPath(t *testing.T) {
	repo := inmemory.NewStore()
	w := NewWizard("u1", "Ada", nil, repo)

	_, err := w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrWrongStep)

	var verr *domain.ValidationError
	require.ErrorAs(t, w.Next(), &verr, "place is required")

	w.SetPlace("Lisbon, Portugal")
	require.NoError(t, w.SetCurrency("eur"))
	require.NoError(t, w.SetPurpose("Family"))
	require.NoError(t, w.Next())
	assert.Equal(t, StepAccounts, w.Step())

	require.NoError(t, w.RenameBank(0, "Millennium"))
	w.AddBank("   ")
	id := w.AddBank("Revolut")
	assert.Equal(t, int64(3), id)

	w.ToggleCategory("Entertainment")
	w.ToggleCategory("Travel")

	profile, err := w.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Bank{{Name: "Millennium", ID: 1}, {Name: "Revolut", ID: 3}}, profile.Banks, "blank banks are dropped")
	assert.Equal(t, "EUR", profile.Currency)
	assert.NotContains(t, profile.Categories, "Entertainment")
	assert.Contains(t, profile.Categories, "Travel")

	stored, err := repo.GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Lisbon, Portugal", stored.Place)
}

func TestWizard_RequiresCategory(t *testing.T) {
	w := NewWizard("u1", "Ada", &domain.UserProfile{Place: "Oslo", Categories: []string{"Rent"}}, inmemory.NewStore())
	require.NoError(t, w.Next())
	w.ToggleCategory("Rent")

	_, err := w.Submit(context.Background())
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestWizard_KeepsDraftOnPersistenceFailure(t *testing.T) {
	repo := failingProfiles{Store: inmemory.NewStore(), err: errors.New("permission denied")}
	w := NewWizard("u1", "Ada", nil, repo)
	w.SetPlace("Oslo")
	require.NoError(t, w.Next())
	w.AddBank("")

	_, err := w.Submit(context.Background())
	var perr *domain.PersistenceError
	require.ErrorAs(t, err, &perr)

	assert.Equal(t, StepAccounts, w.Step())
	assert.Len(t, w.Draft().Banks, 2, "draft is untouched after a failed save")
}

func TestWizard_BankRows(t *testing.T) {
	w := NewWizard("u1", "Ada", nil, inmemory.NewStore())
	assert.ErrorIs(t, w.RemoveBank(0), ErrLastBank)
	assert.Error(t, w.RenameBank(5, "x"))

	w.AddBank("Second")
	require.NoError(t, w.RemoveBank(0))
	assert.Equal(t, "Second", w.Draft().Banks[0].Name)
}

func TestValidateUpdate(t *testing.T) {
	bad := "XYZ"
	empty := []string{}
	purpose := "Hobby"

	assert.Error(t, ValidateUpdate(domain.ProfileUpdate{}))
	assert.Error(t, ValidateUpdate(domain.ProfileUpdate{Currency: &bad}))
	assert.Error(t, ValidateUpdate(domain.ProfileUpdate{Categories: &empty}))
	assert.Error(t, ValidateUpdate(domain.ProfileUpdate{Purpose: &purpose}))

	ok := "GBP"
	assert.NoError(t, ValidateUpdate(domain.ProfileUpdate{Currency: &ok}))
}
