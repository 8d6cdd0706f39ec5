package validation

import (
	"doc-tracker/internal/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Register adds the domain validators to gin's binding engine. It is safe to
// call more than once.
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.RegisterValidation("doctype", validDocType); err != nil {
		return err
	}
	return v.RegisterValidation("role", validRole)
}

func validDocType(fl validator.FieldLevel) bool {
	return domain.DocumentType(fl.Field().String()).Valid()
}

func validRole(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case domain.RoleUser, domain.RoleAdmin:
		return true
	}
	return false
}
