package grpcserver

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"predicta/models"
)

// Client is the UI shell's side of AuthService.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// RegisterParams mirrors the registration screen.
type RegisterParams struct {
	Username        string
	Email           string
	Role            models.Role
	Password        string
	ConfirmPassword string
}

func (c *Client) Register(ctx context.Context, p RegisterParams) (*models.User, error) {
	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldUsername:        structpb.NewStringValue(p.Username),
		fieldEmail:           structpb.NewStringValue(p.Email),
		fieldRole:            structpb.NewStringValue(string(p.Role)),
		fieldPassword:        structpb.NewStringValue(p.Password),
		fieldConfirmPassword: structpb.NewStringValue(p.ConfirmPassword),
	}}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, RegisterMethod, in, out); err != nil {
		return nil, err
	}
	return userFromReply(out)
}

// Login returns the user and its session token.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldEmail:    structpb.NewStringValue(email),
		fieldPassword: structpb.NewStringValue(password),
	}}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, LoginMethod, in, out); err != nil {
		return nil, "", err
	}
	u, err := userFromReply(out)
	if err != nil {
		return nil, "", err
	}
	token := stringField(out, fieldToken)
	if token == "" {
		return nil, "", errors.New("reply has no token")
	}
	return u, token, nil
}

// WhoAmI resolves the user behind a session token.
func (c *Client) WhoAmI(ctx context.Context, token string) (*models.User, error) {
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, WhoAmIMethod, &structpb.Struct{}, out); err != nil {
		return nil, err
	}
	return userFromReply(out)
}
