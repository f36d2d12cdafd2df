package view

import (
	"fmt"

	"github.com/jwtpizza/pizzaweb/internal/model"
)

// Titles of the franchise dashboard.
const (
	FranchisePitchTitle   = "So you want a piece of the pie?"
	FranchiseDefaultTitle = "Pizza pie central"
)

// StoreRow is one line of a franchise's store table.
type StoreRow struct {
	FranchiseID int
	ID          int
	Name        string
	Address     string
	Revenue     float64
	Error       string
}

// FranchiseSection is the store table of one owned franchise.
type FranchiseSection struct {
	ID      int
	Name    string
	Revenue float64
	Rows    []StoreRow
}

// FranchiseDashboard is the view model of /franchise-dashboard.
type FranchiseDashboard struct {
	Variant   Variant
	LoginPath string
	State     Remote[[]model.Franchise]
	Sections  []FranchiseSection
}

// NewFranchiseDashboard builds the dashboard for user. Only franchises the
// user operates are shown, whatever the service returned.
func NewFranchiseDashboard(user *model.User, state Remote[[]model.Franchise]) FranchiseDashboard {
	d := FranchiseDashboard{
		Variant:   Decide(user, model.RoleFranchisee),
		LoginPath: "/franchise-dashboard/login",
		State:     state,
	}
	if d.Variant != VariantAuthorized || !state.IsLoaded() {
		return d
	}

	for _, f := range model.OwnedFranchises(user, state.Value()) {
		section := FranchiseSection{ID: f.ID, Name: f.Name, Revenue: f.TotalRevenue()}
		for _, s := range f.Stores {
			section.Rows = append(section.Rows, StoreRow{
				FranchiseID: f.ID,
				ID:          s.ID,
				Name:        s.Name,
				Address:     s.Address,
				Revenue:     s.TotalRevenue,
			})
		}
		d.Sections = append(d.Sections, section)
	}
	return d
}

// Authorized reports whether the store management variant is shown.
func (d FranchiseDashboard) Authorized() bool {
	return d.Variant == VariantAuthorized
}

// Title is the page heading: the pitch for outsiders, the franchise name
// for a single-franchise owner and a generic heading otherwise.
func (d FranchiseDashboard) Title() string {
	if !d.Authorized() {
		return FranchisePitchTitle
	}
	if len(d.Sections) == 1 {
		return d.Sections[0].Name
	}
	return FranchiseDefaultTitle
}

// WithRowError attaches msg to the row of the given store.
func (d FranchiseDashboard) WithRowError(franchiseID, storeID int, msg string) FranchiseDashboard {
	sections := make([]FranchiseSection, len(d.Sections))
	for i, s := range d.Sections {
		rows := make([]StoreRow, len(s.Rows))
		copy(rows, s.Rows)
		for j := range rows {
			if rows[j].FranchiseID == franchiseID && rows[j].ID == storeID {
				rows[j].Error = msg
			}
		}
		s.Rows = rows
		sections[i] = s
	}
	d.Sections = sections
	return d
}

// Section returns the section of an owned franchise.
func (d FranchiseDashboard) Section(franchiseID int) (FranchiseSection, bool) {
	for _, s := range d.Sections {
		if s.ID == franchiseID {
			return s, true
		}
	}
	return FranchiseSection{}, false
}

// CreateStore is the view model of /franchise-dashboard/create-store.
type CreateStore struct {
	FranchiseID   int
	FranchiseName string
	StoreName     string
	Error         string
}

// CloseStore is the view model of the store closing confirmation. It is
// shared by the franchise and admin dashboards; Back is the dashboard the
// flow returns to.
type CloseStore struct {
	Back          string
	FranchiseID   int
	FranchiseName string
	StoreID       int
	StoreName     string
	Error         string
}

// Action is the path the confirmation posts to.
func (c CloseStore) Action() string {
	return fmt.Sprintf("%s/close-store/%d/%d", c.Back, c.FranchiseID, c.StoreID)
}
