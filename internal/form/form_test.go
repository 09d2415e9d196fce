package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRegister() RegisterForm {
	return RegisterForm{Username: "brian", Email: "b@x.com", Role: "Admin", Password: "secret", ConfirmPassword: "secret"}
}

func TestValidateRegister(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(f *RegisterForm)
		wantMsg   string
		wantField string
	}{
		{name: "valid", mutate: func(f *RegisterForm) {}},
		{name: "blank username", mutate: func(f *RegisterForm) { f.Username = "   " }, wantMsg: MsgAllFieldsRequired, wantField: "Username"},
		{name: "empty email", mutate: func(f *RegisterForm) { f.Email = "" }, wantMsg: MsgAllFieldsRequired, wantField: "Email"},
		{name: "empty confirm", mutate: func(f *RegisterForm) { f.ConfirmPassword = "" }, wantMsg: MsgAllFieldsRequired, wantField: "ConfirmPassword"},
		{name: "mismatch", mutate: func(f *RegisterForm) { f.ConfirmPassword = "Secret" }, wantMsg: MsgPasswordsMismatch, wantField: "ConfirmPassword"},
		{name: "blank wins over mismatch", mutate: func(f *RegisterForm) { f.Username = ""; f.ConfirmPassword = "x" }, wantMsg: MsgAllFieldsRequired},
		{name: "unknown role", mutate: func(f *RegisterForm) { f.Role = "Buyer" }, wantMsg: MsgInvalidRole, wantField: "Role"},
		{name: "padded role", mutate: func(f *RegisterForm) { f.Role = " Admin " }, wantMsg: MsgInvalidRole, wantField: "Role"},
		{name: "missing role", mutate: func(f *RegisterForm) { f.Role = "" }, wantMsg: MsgAllFieldsRequired, wantField: "Role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validRegister()
			tt.mutate(&f)
			err := ValidateRegister(f)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsFormError(err))
			fe := err.(*Error)
			assert.Equal(t, tt.wantMsg, fe.Message)
			if tt.wantField != "" {
				assert.Equal(t, tt.wantField, fe.Field)
			}
		})
	}
}

func TestValidateLogin(t *testing.T) {
	assert.NoError(t, ValidateLogin(LoginForm{Email: "b@x.com", Password: "secret"}))

	err := ValidateLogin(LoginForm{Email: "b@x.com"})
	require.Error(t, err)
	assert.Equal(t, MsgLoginRequired, err.Error())

	err = ValidateLogin(LoginForm{Email: " ", Password: "x"})
	require.Error(t, err)
	assert.Equal(t, "Email", err.(*Error).Field)
}
