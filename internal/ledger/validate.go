package ledger

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mmynk/tutorledger/internal/persistence"
)

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		return clockPattern.MatchString(fl.Field().String())
	})
	return v
}

// check validates a record and converts validator errors into ErrInvalid.
func (l *Ledger) check(record any) error {
	err := l.validate.Struct(record)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, fe.Namespace()+" failed "+fe.Tag())
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, ", "))
}

// sanitize cleans record exactly as storage will, so memory, disk and
// validation all see the same value.
func sanitize[T any](record T) (T, error) {
	clean, err := persistence.SanitizeRecord(record)
	if err != nil {
		return clean, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return clean, nil
}
