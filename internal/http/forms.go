package http

import (
	"errors"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"spendwise/internal/auth"
	"spendwise/internal/core"
)

const minPasswordLength = 6

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		_, err := core.ParseAmount(fl.Field().String())
		return err == nil
	})
	return v
}

// expenseForm is the add/edit expense form as submitted.
type expenseForm struct {
	Amount      string `form:"amount" validate:"required,amount"`
	Category    string `form:"category" validate:"required,max=50"`
	Date        string `form:"date" validate:"required,datetime=2006-01-02"`
	Description string `form:"description" validate:"max=200"`
}

var expenseFieldMessages = map[string]string{
	"amount":      "Enter a valid amount (0 or more, up to two decimals).",
	"category":    "Choose a category.",
	"date":        "Enter a date as YYYY-MM-DD.",
	"description": "Description must be at most 200 characters.",
}

func expenseFormFromValues(v url.Values) expenseForm {
	return expenseForm{
		Amount:      sanitizeInput(v.Get("amount")),
		Category:    sanitizeInput(v.Get("category")),
		Date:        sanitizeInput(v.Get("date")),
		Description: sanitizeInput(v.Get("description")),
	}
}

func expenseFormFrom(e core.Expense) expenseForm {
	return expenseForm{
		Amount:      core.FormatAmount(e.Amount),
		Category:    e.Category,
		Date:        e.Date.String(),
		Description: e.Description,
	}
}

// Validate returns a message per invalid field, or nil.
func (f expenseForm) Validate() map[string]string {
	return fieldErrors(validate.Struct(f), expenseFieldMessages)
}

// Expense converts a validated form into an expense owned by userID.
func (f expenseForm) Expense(userID string) (core.Expense, error) {
	amount, err := core.ParseAmount(f.Amount)
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{
		UserID:      userID,
		Amount:      amount,
		Category:    f.Category,
		Date:        core.DateString(f.Date),
		Description: f.Description,
	}, nil
}

// credentials is the body of POST /login.
type credentials struct {
	Email          string `form:"email" validate:"required,email,max=254"`
	Password       string `form:"password" validate:"required"`
	IsRegistration bool   `form:"isRegistration"`
}

const (
	msgMissingAuthData = "Missing authentication data"
	msgInvalidEmail    = "Please enter a valid email address"
	msgShortPassword   = "Password must be at least 6 characters"
	msgLongPassword    = "Password must be at most 72 bytes"
)

// Problem returns a user-facing message for the first problem with c, or "".
func (c credentials) Problem() string {
	if c.Email == "" || c.Password == "" {
		return msgMissingAuthData
	}
	if errs := fieldErrors(validate.Struct(c), nil); errs != nil {
		if _, ok := errs["email"]; ok {
			return msgInvalidEmail
		}
		return msgMissingAuthData
	}
	if len(c.Password) > auth.MaxPasswordBytes {
		return msgLongPassword
	}
	if c.IsRegistration && validate.Var(c.Password, "min="+strconv.Itoa(minPasswordLength)) != nil {
		return msgShortPassword
	}
	return ""
}

// fieldErrors maps validator failures to messages keyed by form field name.
// Fields without a configured message get the validator's own text.
func fieldErrors(err error, messages map[string]string) map[string]string {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"": err.Error()}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		if msg, ok := messages[fe.Field()]; ok {
			out[fe.Field()] = msg
		} else {
			out[fe.Field()] = fe.Error()
		}
	}
	return out
}
