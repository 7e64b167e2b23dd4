package student

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Genders lists the accepted values in display order.
var Genders = []Gender{GenderMale, GenderFemale, GenderOther}

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// ParseGender accepts any casing, backends often store "Male" or "Female".
func ParseGender(s string) (Gender, bool) {
	g := Gender(strings.ToLower(strings.TrimSpace(s)))
	return g, g.Valid()
}

func (g *Gender) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*g = Gender(strings.ToLower(strings.TrimSpace(raw)))
	return nil
}

// Label is the human readable form used by the console.
func (g Gender) Label() string {
	switch g {
	case GenderMale:
		return "Male"
	case GenderFemale:
		return "Female"
	default:
		return "Other"
	}
}

type Student struct {
	ID         int    `json:"id,omitempty"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Gender     Gender `json:"gender"`
	Country    string `json:"country"`
	Avatar     string `json:"avatar"`
	BTCAddress string `json:"btc_address"`
}

// Draft is an uncommitted copy of a Student without its identifier.
type Draft struct {
	Email      string `json:"email" validate:"required"`
	FirstName  string `json:"first_name" validate:"required"`
	LastName   string `json:"last_name" validate:"required"`
	Gender     Gender `json:"gender" validate:"required,oneof=male female other"`
	Country    string `json:"country" validate:"required"`
	Avatar     string `json:"avatar" validate:"required"`
	BTCAddress string `json:"btc_address" validate:"required"`
}

// Field names as they appear on the wire and in the form.
const (
	FieldEmail      = "email"
	FieldFirstName  = "first_name"
	FieldLastName   = "last_name"
	FieldGender     = "gender"
	FieldCountry    = "country"
	FieldAvatar     = "avatar"
	FieldBTCAddress = "btc_address"
)

// Fields lists every draft field in form order.
var Fields = []string{
	FieldEmail,
	FieldGender,
	FieldCountry,
	FieldFirstName,
	FieldLastName,
	FieldAvatar,
	FieldBTCAddress,
}

func BlankDraft() Draft {
	return Draft{Gender: GenderOther}
}

func DraftOf(s Student) Draft {
	return Draft{
		Email:      s.Email,
		FirstName:  s.FirstName,
		LastName:   s.LastName,
		Gender:     s.Gender,
		Country:    s.Country,
		Avatar:     s.Avatar,
		BTCAddress: s.BTCAddress,
	}
}

// WithID merges the draft over an identifier.
func (d Draft) WithID(id int) Student {
	return Student{
		ID:         id,
		Email:      d.Email,
		FirstName:  d.FirstName,
		LastName:   d.LastName,
		Gender:     d.Gender,
		Country:    d.Country,
		Avatar:     d.Avatar,
		BTCAddress: d.BTCAddress,
	}
}

// Get returns the value of a named field.
func (d Draft) Get(field string) (string, error) {
	switch field {
	case FieldEmail:
		return d.Email, nil
	case FieldFirstName:
		return d.FirstName, nil
	case FieldLastName:
		return d.LastName, nil
	case FieldGender:
		return string(d.Gender), nil
	case FieldCountry:
		return d.Country, nil
	case FieldAvatar:
		return d.Avatar, nil
	case FieldBTCAddress:
		return d.BTCAddress, nil
	}
	return "", fmt.Errorf("unknown field %q", field)
}

// Set assigns exactly one named field.
func (d *Draft) Set(field, value string) error {
	switch field {
	case FieldEmail:
		d.Email = value
	case FieldFirstName:
		d.FirstName = value
	case FieldLastName:
		d.LastName = value
	case FieldGender:
		g, ok := ParseGender(value)
		if !ok {
			return fmt.Errorf("invalid gender %q", value)
		}
		d.Gender = g
	case FieldCountry:
		d.Country = value
	case FieldAvatar:
		d.Avatar = value
	case FieldBTCAddress:
		d.BTCAddress = value
	default:
		return fmt.Errorf("unknown field %q", field)
	}
	return nil
}
