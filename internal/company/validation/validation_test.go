package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"orgprofile/internal/company/models"
	dErrors "orgprofile/pkg/domain-errors"
)

type ValidatorSuite struct {
	suite.Suite
	validator *Validator
}

func TestValidatorSuite(t *testing.T) {
	suite.Run(t, new(ValidatorSuite))
}

func (s *ValidatorSuite) SetupTest() {
	s.validator = New()
}

func validCompany() *models.Company {
	return &models.Company{
		Code:      "ZC1",
		Name:      "Jupiter Mining Corporation",
		Telephone: "+44 20 7946 0000",
		Email:     "info@jupiter-mining.com",
		Address: models.Address{
			Line1:       "1 Red Dwarf Way",
			City:        "London",
			PostCode:    "N1 1AA",
			CountryCode: "GB",
		},
	}
}

func withVAT(vat, billingCountry string) *models.Company {
	c := validCompany()
	c.VATNumber = &vat
	c.BillingAddress = &models.Address{
		Line1:       "PO Box 1",
		City:        "Capital",
		PostCode:    "1000",
		CountryCode: billingCountry,
	}
	return c
}

func (s *ValidatorSuite) TestValidCompany() {
	s.Empty(s.validator.Validate(validCompany()))
	s.NoError(s.validator.Check(validCompany()))
}

func (s *ValidatorSuite) TestBlankFieldsAreRejected() {
	c := validCompany()
	c.Telephone = "   "
	c.Address.Line1 = "\t"
	c.LocalName = models.Ptr(" ")

	var errs []dErrors.FieldError
	s.Require().NotPanics(func() { errs = s.validator.Validate(c) })

	byField := make(map[string]string, len(errs))
	for _, e := range errs {
		byField[e.Field] = e.Message
	}
	s.Equal(messages["notblank"], byField["telephone"])
	s.Equal(messages["notblank"], byField["address.line1"])
	s.Equal(messages["notblank"], byField["local_name"])
}

func (s *ValidatorSuite) TestCountryCodes() {
	s.Run("VAT prefix is not an address country", func() {
		c := validCompany()
		c.Address.CountryCode = "EL"
		errs := s.validator.Validate(c)
		s.Require().Len(errs, 1)
		s.Equal("address.country_code", errs[0].Field)
	})

	s.Run("greek address with EL vat number", func() {
		c := validCompany()
		c.Address.CountryCode = "GR"
		c.VATNumber = models.Ptr("EL123456789")
		s.Empty(s.validator.Validate(c))
		s.True(IsEUCountry("GR"))
	})
}

func (s *ValidatorSuite) TestFieldRules() {
	s.Run("absent required field", func() {
		c := validCompany()
		c.Address.Line1 = ""
		errs := s.validator.Validate(c)
		s.Require().Len(errs, 1)
		s.Equal("address.line1", errs[0].Field)
		s.Equal("is required", errs[0].Message)
	})

	s.Run("blank optional field that is present", func() {
		c := validCompany()
		c.LocalName = models.Ptr("   ")
		errs := s.validator.Validate(c)
		s.Require().Len(errs, 1)
		s.Equal("local_name", errs[0].Field)
		s.Equal("must not be blank", errs[0].Message)
	})

	s.Run("over long field reports length only", func() {
		c := validCompany()
		c.Name = strings.Repeat("a", maxStringLength+1)
		errs := s.validator.Validate(c)
		s.Require().Len(errs, 1)
		s.Equal("name", errs[0].Field)
		s.Contains(errs[0].Message, "at most 1000")
	})

	s.Run("name with symbols fails the name pattern", func() {
		c := validCompany()
		c.Name = "Jupiter Mining Corporation !£$%~#"
		errs := s.validator.Validate(c)
		s.Require().Len(errs, 1)
		s.Equal("name", errs[0].Field)
	})

	s.Run("independent failures are all reported", func() {
		c := validCompany()
		c.Email = "not-an-email"
		c.Address.City = " "
		c.BillingAddress = &models.Address{Line1: "PO Box 1", City: "Paris", PostCode: "75001", CountryCode: "FRANCE"}
		errs := s.validator.Validate(c)
		fields := make([]string, 0, len(errs))
		for _, e := range errs {
			fields = append(fields, e.Field)
		}
		s.Equal([]string{"email", "address.city", "billing_address.country_code"}, fields)
	})

	s.Run("enrollment status must be known", func() {
		c := validCompany()
		c.EnrollStatus = models.Ptr("MAYBE")
		errs := s.validator.Validate(c)
		s.Require().Len(errs, 1)
		s.Equal("smd_enroll_status", errs[0].Field)
	})

	s.Run("check wraps failures as a validation error", func() {
		c := validCompany()
		c.Name = ""
		err := s.validator.Check(c)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ValidatorSuite) TestClassificationPair() {
	s.Run("only secondary present yields one record level error", func() {
		c := validCompany()
		c.SecondaryClassificationCode = models.Ptr("X")
		errs := s.validator.Validate(c)
		s.Require().Len(errs, 1)
		s.Empty(errs[0].Field)
		s.Equal(classificationPairMessage, errs[0].Message)
	})

	s.Run("both present passes", func() {
		c := validCompany()
		c.PrimaryClassificationCode = models.Ptr("A")
		c.SecondaryClassificationCode = models.Ptr("A1")
		s.Empty(s.validator.Validate(c))
	})
}

func (s *ValidatorSuite) TestVATNumbers() {
	cases := []struct {
		name    string
		vat     string
		country string
		valid   bool
	}{
		{"austria", "ATU12345678", "AT", true},
		{"austria missing U", "AT123456789", "AT", false},
		{"belgium", "BE1234567890", "BE", true},
		{"france with letters", "FRXX123456789", "FR", true},
		{"france letters misplaced", "FR1XX123456789", "FR", false},
		{"netherlands", "NL123456789B01", "NL", true},
		{"romania short", "RO12", "RO", true},
		{"romania too short", "RO1", "RO", false},
		{"greece uses EL", "EL123456789", "GR", true},
		{"greece rejects GR prefix", "GR123456789", "GR", false},
		{"blank", "", "SK", false},
		{"prefix mismatch", "ID111111111", "IN", false},
		{"non eu permissive", "MK11-33 eee234/5", "MK", true},
		{"non eu with dots", "MK11-33.eee234/5", "MK", true},
		{"non eu with symbols", "MK11-33 eee234/5 **", "MK", false},
		{"gb is validated permissively", "GB12-AB", "GB", true},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			errs := s.validator.Validate(withVAT(tc.vat, tc.country))
			if tc.valid {
				s.Empty(errs)
				return
			}
			s.Require().Len(errs, 1)
			s.Equal(vatField, errs[0].Field)
		})
	}
}

func (s *ValidatorSuite) TestVATCountrySource() {
	s.Run("billing country takes precedence", func() {
		c := validCompany()
		c.Address.CountryCode = "DE"
		c.BillingAddress = &models.Address{Line1: "x", City: "y", PostCode: "z", CountryCode: "BE"}
		c.VATNumber = models.Ptr("BE1234567890")
		s.True(ValidVAT(c))
	})

	s.Run("primary country used without billing address", func() {
		c := validCompany()
		c.Address.CountryCode = "DE"
		c.VATNumber = models.Ptr("DE123456789")
		s.True(ValidVAT(c))
	})

	s.Run("no derivable country falls back to permissive grammar", func() {
		c := validCompany()
		c.Address.CountryCode = ""
		c.VATNumber = models.Ptr("ANY-123/4")
		s.True(ValidVAT(c))
	})

	s.Run("absent vat is valid", func() {
		s.True(ValidVAT(validCompany()))
	})
}
