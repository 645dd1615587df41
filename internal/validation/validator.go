// Package validation provides custom validators for the application
package validation

import (
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Initialize registers all custom validators
func Initialize() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		err := v.RegisterValidation("adult", validateAdult)
		if err != nil {
			panic(err)
		}
	}
}

// validateAdult checks that a YYYY-MM-DD date of birth is at least 18
// whole years in the past
func validateAdult(fl validator.FieldLevel) bool {
	dob, err := time.Parse("2006-01-02", fl.Field().String())
	if err != nil {
		return false
	}
	return AgeAt(dob, time.Now()) >= 18
}

// AgeAt returns the age in whole years at the given reference time
func AgeAt(dob, at time.Time) int {
	years := at.Year() - dob.Year()
	anniversary := dob.AddDate(years, 0, 0)
	if anniversary.After(at) {
		years--
	}
	return years
}
