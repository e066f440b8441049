package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

type fakeCognito struct {
	mu       sync.Mutex
	inputs   []*cognitoidentityprovider.InitiateAuthInput
	refresh  error
	response func(flow types.AuthFlowType) *cognitoidentityprovider.InitiateAuthOutput
}

func (f *fakeCognito) InitiateAuth(ctx context.Context, in *cognitoidentityprovider.InitiateAuthInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	if in.AuthFlow == types.AuthFlowTypeRefreshTokenAuth && f.refresh != nil {
		return nil, f.refresh
	}
	return f.response(in.AuthFlow), nil
}

func authResult(idToken string, refresh string) *cognitoidentityprovider.InitiateAuthOutput {
	result := &types.AuthenticationResultType{
		AccessToken: aws.String("access-" + idToken),
		IdToken:     aws.String(idToken),
		TokenType:   aws.String("Bearer"),
		ExpiresIn:   3600,
	}
	if refresh != "" {
		result.RefreshToken = aws.String(refresh)
	}
	return &cognitoidentityprovider.InitiateAuthOutput{AuthenticationResult: result}
}

func TestCognitoTokenSourcePasswordThenRefresh(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := &fakeCognito{response: func(flow types.AuthFlowType) *cognitoidentityprovider.InitiateAuthOutput {
		if flow == types.AuthFlowTypeUserPasswordAuth {
			return authResult("id-1", "refresh-1")
		}
		return authResult("id-2", "")
	}}
	src := &CognitoTokenSource{
		ctx:      context.Background(),
		client:   fake,
		clientID: "client-123",
		username: "alice@example.com",
		password: "secret",
		now:      func() time.Time { return now },
	}

	tok, err := src.Token()
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if id, _ := tok.Extra("id_token").(string); id != "id-1" {
		t.Fatalf("unexpected id token %q", id)
	}
	if !tok.Expiry.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", tok.Expiry)
	}
	first := fake.inputs[0]
	if first.AuthFlow != types.AuthFlowTypeUserPasswordAuth || aws.ToString(first.ClientId) != "client-123" {
		t.Fatalf("unexpected first call %+v", first)
	}
	if first.AuthParameters["USERNAME"] != "alice@example.com" || first.AuthParameters["PASSWORD"] != "secret" {
		t.Fatalf("unexpected auth parameters %v", first.AuthParameters)
	}

	tok, err = src.Token()
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if id, _ := tok.Extra("id_token").(string); id != "id-2" {
		t.Fatalf("expected refreshed id token, got %q", id)
	}
	second := fake.inputs[1]
	if second.AuthFlow != types.AuthFlowTypeRefreshTokenAuth || second.AuthParameters["REFRESH_TOKEN"] != "refresh-1" {
		t.Fatalf("unexpected refresh call %+v", second)
	}
}

func TestCognitoTokenSourceFallsBackToPassword(t *testing.T) {
	fake := &fakeCognito{
		refresh: errors.New("refresh token expired"),
		response: func(types.AuthFlowType) *cognitoidentityprovider.InitiateAuthOutput {
			return authResult("id-1", "refresh-1")
		},
	}
	src := &CognitoTokenSource{ctx: context.Background(), client: fake, clientID: "c", username: "u", password: "p", now: time.Now}

	if _, err := src.Token(); err != nil {
		t.Fatal(err)
	}
	if _, err := src.Token(); err != nil {
		t.Fatalf("expected password fallback, got %v", err)
	}
	if len(fake.inputs) != 3 || fake.inputs[2].AuthFlow != types.AuthFlowTypeUserPasswordAuth {
		t.Fatalf("expected refresh then password login, got %d calls", len(fake.inputs))
	}
}

func TestCognitoTokenSourceChallenge(t *testing.T) {
	fake := &fakeCognito{response: func(types.AuthFlowType) *cognitoidentityprovider.InitiateAuthOutput {
		return &cognitoidentityprovider.InitiateAuthOutput{ChallengeName: types.ChallengeNameTypeNewPasswordRequired}
	}}
	src := &CognitoTokenSource{ctx: context.Background(), client: fake, clientID: "c", username: "u", password: "p", now: time.Now}

	if _, err := src.Token(); err == nil {
		t.Fatal("expected challenge error")
	}
}

func TestCognitoTokenSourceRequiresCredentials(t *testing.T) {
	fake := &fakeCognito{}
	src := NewCognitoTokenSource(context.Background(), fake, "c", "", "")

	if _, err := src.Token(); err == nil {
		t.Fatal("expected missing credentials error")
	}
	if len(fake.inputs) != 0 {
		t.Fatal("no Cognito call expected without credentials")
	}
}

func TestCognitoTokenSourceIsReused(t *testing.T) {
	fake := &fakeCognito{response: func(types.AuthFlowType) *cognitoidentityprovider.InitiateAuthOutput {
		return authResult("id-1", "refresh-1")
	}}
	src := NewCognitoTokenSource(context.Background(), fake, "c", "u", "p")

	for i := 0; i < 3; i++ {
		id, err := IDToken(src)
		if err != nil || id != "id-1" {
			t.Fatalf("IDToken = %q, %v", id, err)
		}
	}
	if len(fake.inputs) != 1 {
		t.Fatalf("expected cached token, got %d Cognito calls", len(fake.inputs))
	}
}
