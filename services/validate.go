package services

import (
	"github.com/epicevents/crm/utils"
)

// ValidateInput checks the validate tags of in and reports failures as a
// validation error with one detail per field.
func ValidateInput(in interface{}) error {
	err := utils.ValidateStruct(in)
	if err == nil {
		return nil
	}
	fields := utils.GetValidationFields(err)
	if fields == nil {
		return WrapInternal("input validation failed", err)
	}
	domainErr := NewDomainError(ErrorTypeValidation, err.Error(), nil)
	for field, msg := range fields {
		domainErr.WithDetail(field, msg)
	}
	return domainErr
}
