package validators

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Ometra-Hela/Alize/internal/model"
)

var (
	idaPattern      = regexp.MustCompile(`^[A-Z0-9]{3}$`)
	fileNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

	validate = newValidate()
)

// DTOValidator checks one inbound request before a flow acts on it.
type DTOValidator interface {
	Validate(ctx context.Context) *model.Error
}

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return fld.Name
		}

		return name
	})

	mustRegister(v, "ida", func(fl validator.FieldLevel) bool {
		return idaPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "filename", func(fl validator.FieldLevel) bool {
		return fileNamePattern.MatchString(fl.Field().String())
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// ValidateStruct runs the struct tags of s and reports the first violation.
func ValidateStruct(ctx context.Context, s any) *model.Error {
	err := validate.StructCtx(ctx, s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return model.NewValidationError("invalid request: %v", err)
	}

	fe := fieldErrs[0]

	if fe.Tag() == "required" {
		return model.NewMissingFieldError(fieldPath(fe))
	}

	return &model.Error{
		Code:        model.ValidationErrCode,
		Message:     "Invalid parameter value.",
		StatusCode:  model.ErrValidation.StatusCode,
		Description: describe(fe),
	}
}

// fieldPath drops the root struct name from the namespace, e.g. "numbers[0].start".
func fieldPath(fe validator.FieldError) string {
	_, path, found := strings.Cut(fe.Namespace(), ".")
	if !found {
		return fe.Field()
	}

	return path
}

func describe(fe validator.FieldError) string {
	path := fieldPath(fe)

	switch fe.Tag() {
	case "oneof":
		return "field '" + path + "' must be one of: " + fe.Param()
	case "len":
		return "field '" + path + "' must have length " + fe.Param()
	case "max":
		return "field '" + path + "' exceeds " + fe.Param()
	case "min":
		return "field '" + path + "' needs at least " + fe.Param()
	case "ida":
		return "field '" + path + "' must be a three character operator code"
	case "filename":
		return "field '" + path + "' may only contain letters, digits, dot, dash and underscore"
	default:
		return "field '" + path + "' failed '" + fe.Tag() + "' validation"
	}
}
