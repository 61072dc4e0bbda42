package domain

import "time"

// Bank is one user account name shown to the model as a source or destination.
type Bank struct {
	Name string `json:"name"`
	ID   int64  `json:"id"`
}

// UserProfile is the document written by the setup wizard.
type UserProfile struct {
	UserID     string    `json:"userId"`
	Name       string    `json:"name"`
	Place      string    `json:"place"`
	Currency   string    `json:"currency"`
	Banks      []Bank    `json:"banks"`
	Purpose    string    `json:"purpose"`
	Categories []string  `json:"categories"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of the profile.
func (p *UserProfile) Clone() *UserProfile {
	out := *p
	if p.Banks != nil {
		out.Banks = append([]Bank{}, p.Banks...)
	}
	if p.Categories != nil {
		out.Categories = append([]string{}, p.Categories...)
	}
	return &out
}

// BankNames returns the non-blank bank names in order.
func (p *UserProfile) BankNames() []string {
	if p == nil {
		return nil
	}
	names := make([]string, 0, len(p.Banks))
	for _, b := range p.Banks {
		if b.Name != "" {
			names = append(names, b.Name)
		}
	}
	return names
}

// ProfileUpdate is a partial profile write. Nil fields are left untouched.
type ProfileUpdate struct {
	Name       *string   `json:"name,omitempty"`
	Place      *string   `json:"place,omitempty"`
	Currency   *string   `json:"currency,omitempty"`
	Banks      *[]Bank   `json:"banks,omitempty"`
	Purpose    *string   `json:"purpose,omitempty"`
	Categories *[]string `json:"categories,omitempty"`
}

// Empty reports whether the update carries no fields.
func (u ProfileUpdate) Empty() bool {
	return u.Name == nil && u.Place == nil && u.Currency == nil &&
		u.Banks == nil && u.Purpose == nil && u.Categories == nil
}

// Apply merges u into base and returns the result. base may be nil when the
// profile does not exist yet.
func (u ProfileUpdate) Apply(userID string, base *UserProfile, now time.Time) *UserProfile {
	var out *UserProfile
	if base == nil {
		out = &UserProfile{UserID: userID}
	} else {
		out = base.Clone()
	}
	if u.Name != nil {
		out.Name = *u.Name
	}
	if u.Place != nil {
		out.Place = *u.Place
	}
	if u.Currency != nil {
		out.Currency = *u.Currency
	}
	if u.Banks != nil {
		out.Banks = append([]Bank{}, (*u.Banks)...)
	}
	if u.Purpose != nil {
		out.Purpose = *u.Purpose
	}
	if u.Categories != nil {
		out.Categories = append([]string{}, (*u.Categories)...)
	}
	out.UpdatedAt = now
	return out
}
