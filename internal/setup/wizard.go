// Package setup implements the two-step onboarding wizard that writes the
// user profile.
package setup

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dvloznov/finansmanager/internal/advice"
	"github.com/dvloznov/finansmanager/internal/domain"
	"github.com/dvloznov/finansmanager/internal/nlu"
	"github.com/dvloznov/finansmanager/internal/store"
)

// Choices offered by the wizard.
var (
	DefaultCategories = append([]string{}, nlu.FallbackCategories...)
	Currencies        = []string{"USD", "EUR", "GBP", "CAD", "JPY", "INR"}
	Purposes          = []string{"Personal", "Family", "Business", "Other"}
)

// DefaultBankName seeds the bank list of a new profile.
const DefaultBankName = "Bank A"

// Step is the wizard page.
type Step int

const (
	StepProfile  Step = 1
	StepAccounts Step = 2
)

var (
	// ErrWrongStep is returned when an action is not valid on the current step.
	ErrWrongStep = errors.New("action not available on this step")
	// ErrLastBank is returned when removing the only bank row.
	ErrLastBank = errors.New("at least one bank row is required")
)

// Draft is the wizard's working copy of the profile.
type Draft struct {
	Name       string
	Place      string
	Currency   string
	Purpose    string
	Banks      []domain.Bank
	Categories []string
}

// NewDraft seeds a draft from an existing profile, which may be nil.
func NewDraft(displayName string, initial *domain.UserProfile) Draft {
	d := Draft{
		Name:       displayName,
		Currency:   Currencies[0],
		Purpose:    Purposes[0],
		Banks:      []domain.Bank{{Name: DefaultBankName, ID: 1}},
		Categories: append([]string{}, DefaultCategories...),
	}
	if initial == nil {
		return d
	}
	if initial.Name != "" {
		d.Name = initial.Name
	}
	d.Place = initial.Place
	if initial.Currency != "" {
		d.Currency = initial.Currency
	}
	if initial.Purpose != "" {
		d.Purpose = initial.Purpose
	}
	if len(initial.Banks) > 0 {
		d.Banks = append([]domain.Bank{}, initial.Banks...)
	}
	if initial.Categories != nil {
		d.Categories = append([]string{}, initial.Categories...)
	}
	return d
}

// Clean drops bank rows whose name is blank and trims the rest.
func (d Draft) Clean() Draft {
	out := d
	out.Banks = make([]domain.Bank, 0, len(d.Banks))
	for _, b := range d.Banks {
		if name := strings.TrimSpace(b.Name); name != "" {
			out.Banks = append(out.Banks, domain.Bank{Name: name, ID: b.ID})
		}
	}
	out.Categories = append([]string{}, d.Categories...)
	return out
}

// Update converts the draft into a full merge write.
func (d Draft) Update() domain.ProfileUpdate {
	banks := append([]domain.Bank{}, d.Banks...)
	cats := append([]string{}, d.Categories...)
	return domain.ProfileUpdate{
		Name:       &d.Name,
		Place:      &d.Place,
		Currency:   &d.Currency,
		Banks:      &banks,
		Purpose:    &d.Purpose,
		Categories: &cats,
	}
}

// ValidateUpdate checks the fields present in a profile write.
func ValidateUpdate(u domain.ProfileUpdate) error {
	if u.Empty() {
		return &domain.ValidationError{Msg: "profile update has no fields"}
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return &domain.ValidationError{Msg: "name must not be empty"}
	}
	if u.Currency != nil && (!slices.Contains(Currencies, *u.Currency) || !advice.ValidCurrency(*u.Currency)) {
		return &domain.ValidationError{Msg: fmt.Sprintf("unsupported currency %q (supported: %s)", *u.Currency, strings.Join(Currencies, ", "))}
	}
	if u.Purpose != nil && !slices.Contains(Purposes, *u.Purpose) {
		return &domain.ValidationError{Msg: fmt.Sprintf("unsupported purpose %q (supported: %s)", *u.Purpose, strings.Join(Purposes, ", "))}
	}
	if u.Categories != nil && len(*u.Categories) == 0 {
		return &domain.ValidationError{Msg: "select at least one category"}
	}
	return nil
}

// Wizard drives the two setup steps. It is not safe for concurrent use.
type Wizard struct {
	userID string
	repo   store.ProfileRepository
	step   Step
	draft  Draft
}

// NewWizard starts on the profile step.
func NewWizard(userID, displayName string, initial *domain.UserProfile, repo store.ProfileRepository) *Wizard {
	return &Wizard{
		userID: userID,
		repo:   repo,
		step:   StepProfile,
		draft:  NewDraft(displayName, initial),
	}
}

// Step returns the current step.
func (w *Wizard) Step() Step { return w.step }

// Draft returns a copy of the working profile.
func (w *Wizard) Draft() Draft {
	d := w.draft
	d.Banks = append([]domain.Bank{}, w.draft.Banks...)
	d.Categories = append([]string{}, w.draft.Categories...)
	return d
}

// SetName sets the display name.
func (w *Wizard) SetName(name string) { w.draft.Name = name }

// SetPlace sets the place of residence.
func (w *Wizard) SetPlace(place string) { w.draft.Place = place }

// SetCurrency sets the primary currency.
func (w *Wizard) SetCurrency(code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if err := ValidateUpdate(domain.ProfileUpdate{Currency: &code}); err != nil {
		return err
	}
	w.draft.Currency = code
	return nil
}

// SetPurpose sets the tracking purpose.
func (w *Wizard) SetPurpose(purpose string) error {
	if err := ValidateUpdate(domain.ProfileUpdate{Purpose: &purpose}); err != nil {
		return err
	}
	w.draft.Purpose = purpose
	return nil
}

// Next moves from the profile step to the accounts step.
func (w *Wizard) Next() error {
	if w.step != StepProfile {
		return ErrWrongStep
	}
	if strings.TrimSpace(w.draft.Name) == "" || strings.TrimSpace(w.draft.Place) == "" {
		return &domain.ValidationError{Msg: "name and place are required"}
	}
	w.step = StepAccounts
	return nil
}

// Back returns to the profile step, keeping the draft.
func (w *Wizard) Back() {
	w.step = StepProfile
}

// AddBank appends a bank row and returns its id.
func (w *Wizard) AddBank(name string) int64 {
	var id int64
	for _, b := range w.draft.Banks {
		id = max(id, b.ID)
	}
	id++
	w.draft.Banks = append(w.draft.Banks, domain.Bank{Name: name, ID: id})
	return id
}

// RenameBank changes the name of the bank row at index.
func (w *Wizard) RenameBank(index int, name string) error {
	if index < 0 || index >= len(w.draft.Banks) {
		return fmt.Errorf("RenameBank: index %d out of range", index)
	}
	w.draft.Banks[index].Name = name
	return nil
}

// RemoveBank deletes the bank row at index. The last row cannot be removed.
func (w *Wizard) RemoveBank(index int) error {
	if index < 0 || index >= len(w.draft.Banks) {
		return fmt.Errorf("RemoveBank: index %d out of range", index)
	}
	if len(w.draft.Banks) == 1 {
		return ErrLastBank
	}
	w.draft.Banks = slices.Delete(w.draft.Banks, index, index+1)
	return nil
}

// ToggleCategory selects or deselects a category.
func (w *Wizard) ToggleCategory(category string) {
	category = strings.TrimSpace(category)
	if category == "" {
		return
	}
	if i := slices.Index(w.draft.Categories, category); i >= 0 {
		w.draft.Categories = slices.Delete(w.draft.Categories, i, i+1)
		return
	}
	w.draft.Categories = append(w.draft.Categories, category)
}

// Submit cleans the draft and merge-writes the profile. On failure the
// draft and step are kept so the user can retry.
func (w *Wizard) Submit(ctx context.Context) (*domain.UserProfile, error) {
	if w.step != StepAccounts {
		return nil, ErrWrongStep
	}
	cleaned := w.draft.Clean()
	update := cleaned.Update()
	if err := ValidateUpdate(update); err != nil {
		return nil, err
	}

	profile, err := w.repo.SaveProfile(ctx, w.userID, update)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "save profile", Err: err}
	}
	w.draft = cleaned
	return profile, nil
}
