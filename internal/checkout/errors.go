package checkout

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrEmptyCart       = errors.New("il n'y a rien dans le panier")
	ErrProductNotFound = errors.New("un des produits du panier n'existe plus")
)

// ValidationError regroupe les erreurs du formulaire de livraison par champ
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "formulaire invalide (" + strings.Join(parts, ", ") + ")"
}

// NewValidationError convertit une erreur de binding / validation
func NewValidationError(err error) *ValidationError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Fields: map[string]string{"body": err.Error()}}
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return &ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "ce champ est obligatoire"
	case "max":
		return fmt.Sprintf("%s caractères maximum", fe.Param())
	case "email":
		return "adresse e-mail invalide"
	default:
		return "valeur invalide"
	}
}

// RegisterJSONFieldNames fait remonter les noms JSON dans les erreurs de validation
func RegisterJSONFieldNames(v *validator.Validate) {
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
}

// ReconciliationError : échec inattendu côté webhook, Stripe renverra la notification
type ReconciliationError struct {
	IntentID string
	Err      error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("réconciliation %s: %v", e.IntentID, e.Err)
}

func (e *ReconciliationError) Unwrap() error { return e.Err }
