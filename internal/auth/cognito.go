// Package auth wraps the Cognito user pool operations the site uses.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ctypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotConfirmed       = errors.New("account not confirmed")
	ErrUserExists         = errors.New("account already exists")
	ErrInvalidPassword    = errors.New("password does not meet requirements")
	ErrInvalidParameter   = errors.New("invalid sign up details")
	ErrCodeMismatch       = errors.New("confirmation code mismatch")
	ErrCodeExpired        = errors.New("confirmation code expired")
)

type CognitoAPI interface {
	InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
	SignUp(ctx context.Context, params *cognitoidentityprovider.SignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, params *cognitoidentityprovider.ConfirmSignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmSignUpOutput, error)
	GlobalSignOut(ctx context.Context, params *cognitoidentityprovider.GlobalSignOutInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.GlobalSignOutOutput, error)
}

type Client struct {
	api      CognitoAPI
	clientID string
}

func NewClient(api CognitoAPI, clientID string) *Client {
	return &Client{api: api, clientID: clientID}
}

// Tokens is the result of a successful password sign in.
type Tokens struct {
	AccessToken string
	ExpiresIn   int
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*Tokens, error) {
	resp, err := c.api.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: ctypes.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: map[string]string{
			"USERNAME": email,
			"PASSWORD": password,
		},
	})
	if err != nil {
		var notAuthorized *ctypes.NotAuthorizedException
		var notFound *ctypes.UserNotFoundException
		var notConfirmed *ctypes.UserNotConfirmedException
		switch {
		case errors.As(err, &notAuthorized), errors.As(err, &notFound):
			return nil, ErrInvalidCredentials
		case errors.As(err, &notConfirmed):
			return nil, ErrNotConfirmed
		}
		return nil, fmt.Errorf("failed to initiate auth: %w", err)
	}

	if resp.AuthenticationResult == nil || resp.AuthenticationResult.AccessToken == nil {
		return nil, ErrInvalidCredentials
	}

	return &Tokens{
		AccessToken: aws.ToString(resp.AuthenticationResult.AccessToken),
		ExpiresIn:   int(resp.AuthenticationResult.ExpiresIn),
	}, nil
}

// SignUp registers email with the pool and returns the new user's sub, which
// becomes the id of the users row.
func (c *Client) SignUp(ctx context.Context, email, password, fullName string) (string, error) {
	resp, err := c.api.SignUp(ctx, &cognitoidentityprovider.SignUpInput{
		ClientId: aws.String(c.clientID),
		Username: aws.String(email),
		Password: aws.String(password),
		UserAttributes: []ctypes.AttributeType{
			{Name: aws.String("email"), Value: aws.String(email)},
			{Name: aws.String("name"), Value: aws.String(fullName)},
		},
	})
	if err != nil {
		var invalidPw *ctypes.InvalidPasswordException
		var userExists *ctypes.UsernameExistsException
		var invalidParam *ctypes.InvalidParameterException
		switch {
		case errors.As(err, &invalidPw):
			return "", ErrInvalidPassword
		case errors.As(err, &userExists):
			return "", ErrUserExists
		case errors.As(err, &invalidParam):
			return "", ErrInvalidParameter
		}
		return "", fmt.Errorf("failed to sign up: %w", err)
	}

	return aws.ToString(resp.UserSub), nil
}

func (c *Client) ConfirmSignUp(ctx context.Context, email, code string) error {
	_, err := c.api.ConfirmSignUp(ctx, &cognitoidentityprovider.ConfirmSignUpInput{
		ClientId:         aws.String(c.clientID),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(code),
	})
	if err != nil {
		var codeMismatch *ctypes.CodeMismatchException
		var expired *ctypes.ExpiredCodeException
		switch {
		case errors.As(err, &codeMismatch):
			return ErrCodeMismatch
		case errors.As(err, &expired):
			return ErrCodeExpired
		}
		return fmt.Errorf("failed to confirm sign up: %w", err)
	}

	return nil
}

// SignOut revokes every token issued for the session's user.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	_, err := c.api.GlobalSignOut(ctx, &cognitoidentityprovider.GlobalSignOutInput{
		AccessToken: aws.String(accessToken),
	})
	if err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}
