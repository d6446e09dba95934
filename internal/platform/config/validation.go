package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate reports fields by their koanf key, so messages use the same
// names as given.yaml.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "" || name == "-" {
			return strings.ToLower(f.Name)
		}
		return name
	})
	return v
}

// Problem is one invalid setting.
type Problem struct {
	Key     string // koanf key, e.g. log.format
	Env     string // environment variable overriding Key
	Message string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s (%s) %s", p.Key, p.Env, p.Message)
}

// ValidationError lists every invalid setting found by Validate.
type ValidationError struct {
	Problems []Problem
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	lines := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		lines = append(lines, p.String())
	}
	return "config validation failed:\n  " + strings.Join(lines, "\n  ")
}

// Validate checks the configuration. Invalid settings come back as a
// *ValidationError naming each key and the variable that sets it.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	problems := make([]Problem, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		key := keyOf(fe.Namespace())
		problems = append(problems, Problem{Key: key, Env: EnvName(key), Message: describe(key, fe)})
	}
	return &ValidationError{Problems: problems}
}

// EnvName returns the environment variable for a koanf key:
// log.file.max_size is GIVEN_LOG_FILE_MAX_SIZE.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// keyOf drops the root struct from a validator namespace.
func keyOf(namespace string) string {
	_, key, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}
	return key
}

// describe covers the tags used by Config.
func describe(key string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_if":
		field, value, _ := strings.Cut(fe.Param(), " ")
		return fmt.Sprintf("is required when %s is %s", sibling(key, field), value)
	case "oneof":
		return "must be one of " + strings.Join(strings.Fields(fe.Param()), ", ")
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return "fails " + fe.Tag()
	}
}

// sibling names the key of another field in the same section. Config
// only refers to single-word fields, whose keys are their lowercase names.
func sibling(key, field string) string {
	i := strings.LastIndex(key, ".")
	if i < 0 {
		return strings.ToLower(field)
	}
	return key[:i+1] + strings.ToLower(field)
}
