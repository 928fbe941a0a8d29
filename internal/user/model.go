package user

import (
	"errors"
	"strings"
)

var (
	ErrNotFound  = errors.New("user not found")
	ErrInvalidID = errors.New("user id must be a positive integer")
)

// User represents a profile as returned by the upstream user API.
// Address and Company are carried through unmodified.
type User struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Phone    string  `json:"phone"`
	Website  string  `json:"website"`
	Address  Address `json:"address"`
	Company  Company `json:"company"`
}

// Address is the postal address of a user.
type Address struct {
	Street  string `json:"street"`
	Suite   string `json:"suite"`
	City    string `json:"city"`
	Zipcode string `json:"zipcode"`
	Geo     Geo    `json:"geo"`
}

// Geo holds coordinates as the upstream sends them (strings).
type Geo struct {
	Lat string `json:"lat"`
	Lng string `json:"lng"`
}

// Company is the employer of a user.
type Company struct {
	Name        string `json:"name"`
	CatchPhrase string `json:"catchPhrase"`
	BS          string `json:"bs"`
}

// PhoneDigits strips everything but digits, for tel: links.
func (u *User) PhoneDigits() string {
	var b strings.Builder
	for _, r := range u.Phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
