package model

import "slices"

// FranchiseAdmin is a user that administers a franchise.
type FranchiseAdmin struct {
	ID    int    `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// Store is a single pizza store belonging to a franchise.
// It is the entity managed from the franchise dashboard.
type Store struct {
	ID           int     `json:"id"`
	FranchiseID  int     `json:"franchiseId,omitempty"`
	Name         string  `json:"name"`
	Address      string  `json:"address,omitempty"`
	TotalRevenue float64 `json:"totalRevenue"`
}

// Franchise groups stores under a set of administrators.
type Franchise struct {
	ID     int              `json:"id"`
	Name   string           `json:"name"`
	Admins []FranchiseAdmin `json:"admins,omitempty"`
	Stores []Store          `json:"stores"`
}

// AdministeredBy reports whether the user with the given ID is listed as
// an admin of the franchise.
func (f *Franchise) AdministeredBy(userID int) bool {
	for _, a := range f.Admins {
		if a.ID == userID {
			return true
		}
	}
	return false
}

// TotalRevenue sums the revenue of all stores.
func (f *Franchise) TotalRevenue() float64 {
	var total float64
	for _, s := range f.Stores {
		total += s.TotalRevenue
	}
	return total
}

// FindStore returns the store with the given ID, if present.
func (f *Franchise) FindStore(storeID int) (Store, bool) {
	for _, s := range f.Stores {
		if s.ID == storeID {
			return s, true
		}
	}
	return Store{}, false
}

// OwnedFranchises filters franchises down to the ones the user operates.
// A franchise is owned when the user is one of its admins or holds a
// franchisee role scoped to its ID.
func OwnedFranchises(u *User, franchises []Franchise) []Franchise {
	if u == nil {
		return nil
	}
	scoped := u.ObjectIDsFor(RoleFranchisee)
	owned := make([]Franchise, 0, len(franchises))
	for _, f := range franchises {
		if f.AdministeredBy(u.ID) || slices.Contains(scoped, f.ID) {
			owned = append(owned, f)
		}
	}
	return owned
}

