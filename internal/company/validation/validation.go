// Package validation checks a company record before it is written.
//
// Every independent field is checked and reports at most one failure, the first
// rule that fails for it. Record-level rules (classification pairing, VAT) follow
// the field failures in a fixed order.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"golang.org/x/text/language"

	"orgprofile/internal/company/models"
	dErrors "orgprofile/pkg/domain-errors"
)

const maxStringLength = 1000

var (
	telephonePattern = regexp.MustCompile(`^\+?[0-9()\-./\s]{3,}$`)
	namePattern      = regexp.MustCompile(`^[a-zA-Z0-9()'&\-. ]+$`)
)

// Enrollment statuses accepted from the legacy system.
var enrollStatuses = map[string]struct{}{
	"ENROLLED":  {},
	"OPTED_IN":  {},
	"OPTED_OUT": {},
	"PENDING":   {},
}

// Messages keyed by validator tag.
var messages = map[string]string{
	"required":     "is required",
	"notblank":     "must not be blank",
	"max":          fmt.Sprintf("must have at most %d characters", maxStringLength),
	"email":        "must be a valid email address",
	"telephone":    "must match the expected telephone pattern",
	"companyname":  "must match the expected name pattern",
	"country":      "must be a valid country code",
	"enrollstatus": "must be one of ENROLLED, OPTED_IN, OPTED_OUT, PENDING",
}

const (
	classificationPairMessage = "primary and secondary industry classification codes must both exist or not exist"
	vatMessage                = "vat number is not valid"
	vatField                  = "vat_number"
)

type addressRules struct {
	Line1       string `json:"line1" validate:"required,notblank,max=1000"`
	Line2       string `json:"line2" validate:"omitempty,notblank,max=1000"`
	City        string `json:"city" validate:"required,notblank,max=1000"`
	CountryCode string `json:"country_code" validate:"required,country"`
	PostCode    string `json:"post_code" validate:"required,notblank,max=1000"`
}

type companyRules struct {
	Telephone                   string        `json:"telephone" validate:"required,notblank,max=1000,telephone"`
	Email                       string        `json:"email" validate:"required,notblank,max=1000,email"`
	Name                        string        `json:"name" validate:"required,notblank,max=1000,companyname"`
	Address                     addressRules  `json:"address"`
	BillingAddress              *addressRules `json:"billing_address" validate:"omitempty"`
	PrimaryClassificationCode   *string       `json:"primary_industry_classification_code" validate:"omitempty,notblank,max=1000"`
	SecondaryClassificationCode *string       `json:"secondary_industry_classification_code" validate:"omitempty,notblank,max=1000"`
	EnrollStatus                *string       `json:"smd_enroll_status" validate:"omitempty,enrollstatus"`
	LocalName                   *string       `json:"local_name" validate:"omitempty,notblank,max=1000"`
	BusinessLicenseNumber       *string       `json:"business_license_number" validate:"omitempty,notblank,max=1000"`
}

// Validator runs the company rules. It is safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

// New builds a Validator with the custom field rules registered. It panics when a
// rule cannot be registered, so a wiring mistake fails at startup.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	rules := map[string]validator.Func{
		"notblank":     validators.NotBlank,
		"telephone":    matches(telephonePattern),
		"companyname":  matches(namePattern),
		"country":      validCountry,
		"enrollstatus": validEnrollStatus,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register %s validation: %v", tag, err))
		}
	}
	return &Validator{v: v}
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// validCountry accepts ISO 3166 alpha-2 country codes only.
func validCountry(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	region, err := language.ParseRegion(code)
	if err != nil {
		return false
	}
	return region.IsCountry() && region.String() == code
}

func validEnrollStatus(fl validator.FieldLevel) bool {
	_, ok := enrollStatuses[fl.Field().String()]
	return ok
}

// Validate returns every rule violation of c in order. An empty result means c is valid.
func (val *Validator) Validate(c *models.Company) []dErrors.FieldError {
	var out []dErrors.FieldError

	if err := val.v.Struct(toRules(c)); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return []dErrors.FieldError{{Message: err.Error()}}
		}
		for _, fe := range verrs {
			out = append(out, dErrors.FieldError{Field: fieldPath(fe.Namespace()), Message: messageFor(fe.Tag())})
		}
	}

	if (c.PrimaryClassificationCode == nil) != (c.SecondaryClassificationCode == nil) {
		out = append(out, dErrors.FieldError{Message: classificationPairMessage})
	}
	if !ValidVAT(c) {
		out = append(out, dErrors.FieldError{Field: vatField, Message: vatMessage})
	}
	return out
}

// Check is Validate folded into a single error, nil when c is valid.
func (val *Validator) Check(c *models.Company) error {
	return dErrors.NewValidation(val.Validate(c))
}

func toRules(c *models.Company) companyRules {
	r := companyRules{
		Telephone:                   c.Telephone,
		Email:                       c.Email,
		Name:                        c.Name,
		Address:                     toAddressRules(c.Address),
		PrimaryClassificationCode:   c.PrimaryClassificationCode,
		SecondaryClassificationCode: c.SecondaryClassificationCode,
		EnrollStatus:                c.EnrollStatus,
		LocalName:                   c.LocalName,
		BusinessLicenseNumber:       c.BusinessLicenseNumber,
	}
	if c.BillingAddress != nil {
		billing := toAddressRules(*c.BillingAddress)
		r.BillingAddress = &billing
	}
	return r
}

func toAddressRules(a models.Address) addressRules {
	return addressRules{
		Line1:       a.Line1,
		Line2:       a.Line2,
		City:        a.City,
		CountryCode: a.CountryCode,
		PostCode:    a.PostCode,
	}
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func messageFor(tag string) string {
	if msg, ok := messages[tag]; ok {
		return msg
	}
	return "is invalid"
}
