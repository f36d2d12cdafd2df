package view

import (
	"github.com/jwtpizza/pizzaweb/internal/model"
)

// Page titles.
const (
	TitleHome            = "The web's best pizza"
	TitleMenu            = "Awesome is a click away"
	TitlePayment         = "So worth it"
	TitleDelivery        = "Here is your JWT Pizza!"
	TitleLogin           = "Welcome back"
	TitleRegister        = "Welcome to the party"
	TitleDinerDashboard  = "Your pizza kitchen"
	TitleAdminDashboard  = "Mama Ricci's kitchen"
	TitleCreateFranchise = "Create franchise"
	TitleCloseFranchise  = "Sorry to see you go"
	TitleCreateStore     = "Create store"
	TitleAddPizza        = "Add pizza"
	TitleCloseStore      = "Sorry to see you go"
	TitleDocs            = "JWT Pizza API"
	TitleAbout           = "The secret sauce"
	TitleHistory         = "Mama Rucci, my my"
	TitleNotFound        = "Oops"
	TitleError           = "Something went wrong"
)

// StoreOption is one entry of the store selector on the menu.
type StoreOption struct {
	Value    string
	Label    string
	Selected bool
}

// Menu is the view model of /menu.
type Menu struct {
	Items      Remote[[]model.MenuItem]
	Franchises Remote[[]model.Franchise]
	Cart       model.Cart
	Error      string
}

// StoreOptions lists every store as "franchiseID:storeID".
func (m Menu) StoreOptions() []StoreOption {
	if !m.Franchises.IsLoaded() {
		return nil
	}
	var opts []StoreOption
	for _, f := range m.Franchises.Value() {
		for _, s := range f.Stores {
			opts = append(opts, StoreOption{
				Value:    StoreKey(f.ID, s.ID),
				Label:    f.Name + " - " + s.Name,
				Selected: m.Cart.FranchiseID == f.ID && m.Cart.StoreID == s.ID,
			})
		}
	}
	return opts
}

// Payment is the view model of /payment.
type Payment struct {
	Cart  model.Cart
	Error string
}

// Delivery is the view model of /delivery.
type Delivery struct {
	Receipt *model.OrderReceipt
	// Verification is empty until the diner asks for it.
	Verification string
	Payload      string
}

// Login is the view model of the login form.
type Login struct {
	Action string
	Email  string
	Error  string
}

// Register is the view model of the registration form.
type Register struct {
	Name  string
	Email string
	Error string
}

// DinerDashboard is the view model of /diner-dashboard. Error belongs to
// the account form.
type DinerDashboard struct {
	User   *model.User
	Orders Remote[*model.OrderHistory]
	Error  string
}

// AdminDashboard is the view model of /admin-dashboard.
type AdminDashboard struct {
	Franchises Remote[[]model.Franchise]
	Audit      []model.AuditEntry
}

// CreateFranchise is the view model of the franchise creation form.
type CreateFranchise struct {
	Name       string
	AdminEmail string
	Error      string
}

// AddPizza is the view model of the menu item form. Price is kept as
// typed so a rejected value is shown again.
type AddPizza struct {
	Title       string
	Description string
	Image       string
	Price       string
	Error       string
}

// CloseFranchise is the view model of the franchise closing confirmation.
type CloseFranchise struct {
	FranchiseID   int
	FranchiseName string
	Error         string
}

// Docs is the view model of /docs.
type Docs struct {
	Docs Remote[*model.APIDocs]
}

// ErrorPage is the view model of error pages.
type ErrorPage struct {
	Status  int
	Message string
}
