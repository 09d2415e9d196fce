package grpcserver

import (
	"errors"

	"google.golang.org/protobuf/types/known/structpb"

	"predicta/internal/form"
	"predicta/models"
)

// Wire field names.
const (
	fieldUsername        = "username"
	fieldEmail           = "email"
	fieldRole            = "role"
	fieldPassword        = "password"
	fieldConfirmPassword = "confirm_password"
	fieldID              = "id"
	fieldCreatedAt       = "created_at"
	fieldUser            = "user"
	fieldToken           = "token"
)

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func registerFormFrom(in *structpb.Struct) form.RegisterForm {
	return form.RegisterForm{
		Username:        stringField(in, fieldUsername),
		Email:           stringField(in, fieldEmail),
		Role:            stringField(in, fieldRole),
		Password:        stringField(in, fieldPassword),
		ConfirmPassword: stringField(in, fieldConfirmPassword),
	}
}

func loginFormFrom(in *structpb.Struct) form.LoginForm {
	return form.LoginForm{
		Email:    stringField(in, fieldEmail),
		Password: stringField(in, fieldPassword),
	}
}

func userStruct(u *models.User) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldID:        structpb.NewNumberValue(float64(u.ID)),
		fieldUsername:  structpb.NewStringValue(u.Username),
		fieldEmail:     structpb.NewStringValue(u.Email),
		fieldRole:      structpb.NewStringValue(string(u.Role)),
		fieldCreatedAt: structpb.NewStringValue(u.CreatedAt),
	}}
}

func userReply(u *models.User) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldUser: structpb.NewStructValue(userStruct(u)),
	}}
}

// userFromReply decodes the "user" member of a reply.
func userFromReply(out *structpb.Struct) (*models.User, error) {
	us := out.GetFields()[fieldUser].GetStructValue()
	if us == nil {
		return nil, errors.New("reply has no user")
	}
	role, err := models.ParseRole(stringField(us, fieldRole))
	if err != nil {
		return nil, err
	}
	return &models.User{
		ID:        int64(us.GetFields()[fieldID].GetNumberValue()),
		Username:  stringField(us, fieldUsername),
		Email:     stringField(us, fieldEmail),
		Role:      role,
		CreatedAt: stringField(us, fieldCreatedAt),
	}, nil
}
