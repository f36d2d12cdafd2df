package handler

import (
	"errors"
	"math"
	"net/mail"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Validation limits.
const (
	// MaxEntityNameLength caps store and franchise names, in characters.
	MaxEntityNameLength = 64

	// MaxNameLength caps a diner's full name.
	MaxNameLength = 128

	// MaxEmailLength is the longest address accepted by forms.
	MaxEmailLength = 254

	// MaxPasswordLength bounds what is forwarded to the pizza service.
	MaxPasswordLength = 128

	// MaxPizzaPrice is the highest menu price in bitcoin.
	MaxPizzaPrice = 1.0
)

// Validation errors. The messages are shown next to the form control.
var (
	ErrNameRequired     = errors.New("name is required")
	ErrNameTooLong      = errors.New("name is too long")
	ErrNameInvalid      = errors.New("name contains invalid characters")
	ErrEmailInvalid     = errors.New("email address is invalid")
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordTooLong  = errors.New("password is too long")
	ErrPriceInvalid     = errors.New("price must be a bitcoin amount above 0 and at most 1")
)

// ValidateEntityName trims a store or franchise name and checks its length.
// Control characters are rejected; any other unicode is accepted.
func ValidateEntityName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNameRequired
	}
	if utf8.RuneCountInString(name) > MaxEntityNameLength {
		return "", ErrNameTooLong
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return "", ErrNameInvalid
		}
	}
	return name, nil
}

// ValidatePersonName trims a diner's full name.
func ValidatePersonName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNameRequired
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", ErrNameTooLong
	}
	return name, nil
}

// ValidateEmail accepts a bare address such as f@jwt.com. Display-name
// forms like "Pizza <f@jwt.com>" are rejected.
func ValidateEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || len(email) > MaxEmailLength {
		return "", ErrEmailInvalid
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", ErrEmailInvalid
	}
	return email, nil
}

// ValidatePassword only checks presence and size; strength rules belong
// to the pizza service.
func ValidatePassword(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

// ValidatePrice parses a menu price in bitcoin.
func ValidatePrice(raw string) (float64, error) {
	price, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(price) || price <= 0 || price > MaxPizzaPrice {
		return 0, ErrPriceInvalid
	}
	return price, nil
}
