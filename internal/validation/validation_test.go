package validation_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/ErlanBelekov/credential-gateway/internal/validation"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registerForm struct {
	Email                string `json:"email"                 validate:"required,email,max=255"`
	Password             string `json:"password"              validate:"required,min=12,max=255,has_upper,has_lower,has_digit,has_symbol,not_common"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	validation.Register(v)
	return v
}

func validate(t *testing.T, pw string) map[string][]string {
	t.Helper()
	err := newValidator().Struct(registerForm{
		Email:                "a@validmx.com",
		Password:             pw,
		PasswordConfirmation: pw,
	})
	if err == nil {
		return nil
	}
	fields, ok := validation.Fields(err)
	require.True(t, ok)
	return fields
}

func TestPassword_Valid(t *testing.T) {
	assert.Nil(t, validate(t, "Abcdef1!2345"))
}

func TestPassword_MissingCharacterClass(t *testing.T) {
	cases := map[string]string{
		"no uppercase": "abcdef1!2345",
		"no lowercase": "ABCDEF1!2345",
		"no digit":     "Abcdefg!hijk",
		"no symbol":    "Abcdef123456",
	}
	for name, pw := range cases {
		t.Run(name, func(t *testing.T) {
			fields := validate(t, pw)
			assert.Contains(t, fields, "password")
		})
	}
}

func TestPassword_EverySymbolIsAccepted(t *testing.T) {
	for _, r := range validation.Symbols {
		pw := "Abcdef12345" + string(r)
		assert.Nil(t, validate(t, pw), "symbol %q", r)
	}
}

func TestPassword_UnlistedPunctuationIsNotASymbol(t *testing.T) {
	fields := validate(t, "Abcdef12345_")
	assert.Equal(t, []string{"The password field must contain at least one symbol."}, fields["password"])
}

func TestPassword_NonASCIIUppercaseDoesNotCount(t *testing.T) {
	fields := validate(t, "ébcdef1!2345É")
	assert.Contains(t, fields, "password")
}

func TestPassword_Length(t *testing.T) {
	assert.Contains(t, validate(t, "Abcdef1!234"), "password")
	assert.Nil(t, validate(t, "Abcdef1!2345"))

	long := "Aa1!" + strings.Repeat("x", 251)
	assert.Nil(t, validate(t, long))
	assert.Contains(t, validate(t, long+"x"), "password")
}

func TestPassword_CommonListIsCaseSensitive(t *testing.T) {
	v := newValidator()
	type form struct {
		Password string `json:"password" validate:"not_common"`
	}

	for _, p := range validation.CommonPasswords {
		err := v.Struct(form{Password: p})
		require.Error(t, err, p)
		fields, _ := validation.Fields(err)
		assert.Equal(t, []string{"The selected password is invalid."}, fields["password"])
	}
	assert.NoError(t, v.Struct(form{Password: "Password"}))
	assert.NoError(t, v.Struct(form{Password: "QWERTY"}))
}

func TestConfirmationMismatch(t *testing.T) {
	err := newValidator().Struct(registerForm{
		Email:                "a@validmx.com",
		Password:             "Abcdef1!2345",
		PasswordConfirmation: "Abcdef1!2346",
	})
	fields, ok := validation.Fields(err)
	require.True(t, ok)
	assert.Equal(t, []string{"The password confirmation field must match password."}, fields["password_confirmation"])
}

func TestEmailRules(t *testing.T) {
	v := newValidator()

	err := v.Struct(registerForm{Email: "not-an-email", Password: "Abcdef1!2345", PasswordConfirmation: "Abcdef1!2345"})
	fields, _ := validation.Fields(err)
	assert.Equal(t, []string{"The email field must be a valid email address."}, fields["email"])

	err = v.Struct(registerForm{Password: "Abcdef1!2345", PasswordConfirmation: "Abcdef1!2345"})
	fields, _ = validation.Fields(err)
	assert.Equal(t, []string{"The email field is required."}, fields["email"])
}

func TestFields_TypeMismatch(t *testing.T) {
	var form registerForm
	err := json.Unmarshal([]byte(`{"password": 12345}`), &form)
	require.Error(t, err)

	fields, ok := validation.Fields(err)
	require.True(t, ok)
	assert.Equal(t, []string{"The password field must be a string."}, fields["password"])
}

func TestFields_SyntaxErrorIsNotAFieldError(t *testing.T) {
	var form registerForm
	err := json.Unmarshal([]byte(`{bad`), &form)

	_, ok := validation.Fields(err)
	assert.False(t, ok)
}
