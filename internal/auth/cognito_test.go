package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ctypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCognito struct {
	authOut    *cognitoidentityprovider.InitiateAuthOutput
	authErr    error
	authInput  *cognitoidentityprovider.InitiateAuthInput
	signUpErr  error
	signUpIn   *cognitoidentityprovider.SignUpInput
	confirmErr error
	signOutIn  *cognitoidentityprovider.GlobalSignOutInput
}

func (f *fakeCognito) InitiateAuth(_ context.Context, in *cognitoidentityprovider.InitiateAuthInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error) {
	f.authInput = in
	return f.authOut, f.authErr
}

func (f *fakeCognito) SignUp(_ context.Context, in *cognitoidentityprovider.SignUpInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error) {
	f.signUpIn = in
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	return &cognitoidentityprovider.SignUpOutput{UserSub: aws.String("sub-123")}, nil
}

func (f *fakeCognito) ConfirmSignUp(context.Context, *cognitoidentityprovider.ConfirmSignUpInput, ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmSignUpOutput, error) {
	return &cognitoidentityprovider.ConfirmSignUpOutput{}, f.confirmErr
}

func (f *fakeCognito) GlobalSignOut(_ context.Context, in *cognitoidentityprovider.GlobalSignOutInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.GlobalSignOutOutput, error) {
	f.signOutIn = in
	return &cognitoidentityprovider.GlobalSignOutOutput{}, nil
}

func TestSignIn(t *testing.T) {
	api := &fakeCognito{authOut: &cognitoidentityprovider.InitiateAuthOutput{
		AuthenticationResult: &ctypes.AuthenticationResultType{AccessToken: aws.String("tok"), ExpiresIn: 3600},
	}}
	c := NewClient(api, "client-1")

	tokens, err := c.SignIn(context.Background(), "a@example.org", "pw")
	require.NoError(t, err)
	assert.Equal(t, &Tokens{AccessToken: "tok", ExpiresIn: 3600}, tokens)
	assert.Equal(t, ctypes.AuthFlowTypeUserPasswordAuth, api.authInput.AuthFlow)
	assert.Equal(t, "a@example.org", api.authInput.AuthParameters["USERNAME"])
}

func TestSignInErrors(t *testing.T) {
	tests := []struct {
		name string
		out  *cognitoidentityprovider.InitiateAuthOutput
		err  error
		want error
	}{
		{name: "bad password", err: &ctypes.NotAuthorizedException{}, want: ErrInvalidCredentials},
		{name: "unknown user", err: &ctypes.UserNotFoundException{}, want: ErrInvalidCredentials},
		{name: "unconfirmed", err: &ctypes.UserNotConfirmedException{}, want: ErrNotConfirmed},
		{name: "challenge instead of tokens", out: &cognitoidentityprovider.InitiateAuthOutput{}, want: ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(&fakeCognito{authOut: tt.out, authErr: tt.err}, "client-1")
			_, err := c.SignIn(context.Background(), "a@example.org", "pw")
			assert.ErrorIs(t, err, tt.want)
		})
	}

	c := NewClient(&fakeCognito{authErr: errors.New("network")}, "client-1")
	_, err := c.SignIn(context.Background(), "a@example.org", "pw")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignUp(t *testing.T) {
	api := &fakeCognito{}
	c := NewClient(api, "client-1")

	sub, err := c.SignUp(context.Background(), "a@example.org", "Secret-Passw0rd", "Ada Lovelace")
	require.NoError(t, err)
	assert.Equal(t, "sub-123", sub)
	assert.Equal(t, "a@example.org", aws.ToString(api.signUpIn.Username))

	api.signUpErr = &ctypes.UsernameExistsException{}
	_, err = c.SignUp(context.Background(), "a@example.org", "pw", "Ada")
	assert.ErrorIs(t, err, ErrUserExists)

	api.signUpErr = &ctypes.InvalidPasswordException{}
	_, err = c.SignUp(context.Background(), "a@example.org", "pw", "Ada")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestConfirmAndSignOut(t *testing.T) {
	api := &fakeCognito{confirmErr: &ctypes.CodeMismatchException{}}
	c := NewClient(api, "client-1")

	assert.ErrorIs(t, c.ConfirmSignUp(context.Background(), "a@example.org", "000"), ErrCodeMismatch)

	api.confirmErr = nil
	assert.NoError(t, c.ConfirmSignUp(context.Background(), "a@example.org", "123456"))

	require.NoError(t, c.SignOut(context.Background(), "tok"))
	assert.Equal(t, "tok", aws.ToString(api.signOutIn.AccessToken))
}
