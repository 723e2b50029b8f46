package user

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classbook/classbook/assets"
	"github.com/classbook/classbook/core"
)

func newTestValidator() *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	LoadCommonPasswords(assets.FS, assets.CommonPasswordsPath, core.NewNopLogger())
	return validate
}

func fieldTags(err error) map[string]string {
	tags := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			tags[fe.Field()] = fe.Tag()
		}
	}
	return tags
}

func TestNewUser_passwordPolicy(t *testing.T) {
	validate := newTestValidator()

	tests := []struct {
		name    string
		pwd     string
		wantTag string
	}{
		{name: "too short", pwd: "Ab1!", wantTag: pwdMinLenTag},
		{name: "whitespace", pwd: "Abcdef1! x", wantTag: pwdNoSpaceTag},
		{name: "all numeric", pwd: "12345678901", wantTag: pwdNotAllNumTag},
		{name: "not complex", pwd: "abcdefgh1", wantTag: pwdComplexityTag},
		{name: "similar to name", pwd: "JohnathanSmith1!", wantTag: pwdAttrSimTag},
		{name: "common", pwd: "P@ssw0rd1", wantTag: pwdNoCommonTag},
		{name: "valid", pwd: "Tr0ub4dor&3x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := NewUser{
				Name:            "Johnathan Smith",
				Username:        "tester",
				Email:           "tester@test.cd",
				Password:        tt.pwd,
				PasswordConfirm: tt.pwd,
			}
			err := validate.Struct(nu)
			if tt.wantTag == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantTag, fieldTags(err)["password"])
		})
	}
}

func TestNewUser_usernameOrEmail(t *testing.T) {
	validate := newTestValidator()

	err := validate.Struct(NewUser{Name: "Nobody", Password: "Tr0ub4dor&3x", PasswordConfirm: "Tr0ub4dor&3x"})
	require.Error(t, err)
	tags := fieldTags(err)
	assert.Equal(t, usernameOrEmailTag, tags["username"])
	assert.Equal(t, usernameOrEmailTag, tags["email"])
}

func TestNewUser_roles(t *testing.T) {
	validate := newTestValidator()

	nu := NewUser{
		Name:            "Some Teacher",
		Username:        "teacher",
		Password:        "Tr0ub4dor&3x",
		PasswordConfirm: "Tr0ub4dor&3x",
		Roles:           []string{RoleTeacher},
	}
	assert.NoError(t, validate.Struct(nu))

	nu.Roles = []string{RoleTeacher, "janitor:"}
	assert.Equal(t, allRolesTag, fieldTags(validate.Struct(nu))["roles"])
}

func TestMaxRolePriority(t *testing.T) {
	assert.Equal(t, 0, MaxRolePriority(nil))
	assert.Equal(t, 1, MaxRolePriority([]string{RoleStudent}))
	assert.Equal(t, 29, MaxRolePriority([]string{RoleTeacher, RoleAdminPrincipal, RoleAdmin}))
	assert.Equal(t, 30, MaxRolePriority(AllRoles))
}
