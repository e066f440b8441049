package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"golang.org/x/oauth2"
)

// idTokenKey is the token extra that carries the Cognito id token.
const idTokenKey = "id_token"

// CognitoAuthAPI is the part of the Cognito client used for sign-in.
type CognitoAuthAPI interface {
	InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
}

// CognitoTokenSource signs in to a user pool with USER_PASSWORD_AUTH and
// renews with the refresh token it received.
type CognitoTokenSource struct {
	ctx      context.Context
	client   CognitoAuthAPI
	clientID string
	username string
	password string

	mu           sync.Mutex
	refreshToken string
	now          func() time.Time
}

// NewCognitoTokenSource returns a caching token source for the user pool
// app client. Tokens are only fetched when first needed.
func NewCognitoTokenSource(ctx context.Context, client CognitoAuthAPI, clientID, username, password string) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &CognitoTokenSource{
		ctx:      ctx,
		client:   client,
		clientID: clientID,
		username: username,
		password: password,
		now:      time.Now,
	})
}

// NewCognitoClient creates an unsigned Cognito client; InitiateAuth for a
// public app client needs no AWS credentials.
func NewCognitoClient(ctx context.Context, region string) (*cognitoidentityprovider.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return cognitoidentityprovider.NewFromConfig(cfg), nil
}

// Token 获取新令牌；刷新失败时回退到密码登录
func (s *CognitoTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refreshToken != "" {
		tok, err := s.initiate(types.AuthFlowTypeRefreshTokenAuth, map[string]string{
			"REFRESH_TOKEN": s.refreshToken,
		})
		if err == nil {
			return tok, nil
		}
		s.refreshToken = ""
	}

	if s.username == "" || s.password == "" {
		return nil, errors.New("cognito: username and password are required")
	}
	return s.initiate(types.AuthFlowTypeUserPasswordAuth, map[string]string{
		"USERNAME": s.username,
		"PASSWORD": s.password,
	})
}

func (s *CognitoTokenSource) initiate(flow types.AuthFlowType, params map[string]string) (*oauth2.Token, error) {
	out, err := s.client.InitiateAuth(s.ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow:       flow,
		ClientId:       aws.String(s.clientID),
		AuthParameters: params,
	})
	if err != nil {
		return nil, fmt.Errorf("cognito %s: %w", flow, err)
	}
	if out.AuthenticationResult == nil {
		if out.ChallengeName != "" {
			return nil, fmt.Errorf("cognito challenge %s is not supported", out.ChallengeName)
		}
		return nil, errors.New("cognito returned no authentication result")
	}

	result := out.AuthenticationResult
	if rt := aws.ToString(result.RefreshToken); rt != "" {
		s.refreshToken = rt
	}
	tok := &oauth2.Token{
		AccessToken: aws.ToString(result.AccessToken),
		TokenType:   aws.ToString(result.TokenType),
		Expiry:      s.now().Add(time.Duration(result.ExpiresIn) * time.Second),
	}
	return tok.WithExtra(map[string]any{idTokenKey: aws.ToString(result.IdToken)}), nil
}

// IDToken returns the id token of the current token, falling back to the
// access token for sources that only carry one.
func IDToken(ts oauth2.TokenSource) (string, error) {
	tok, err := ts.Token()
	if err != nil {
		return "", err
	}
	if id, ok := tok.Extra(idTokenKey).(string); ok && id != "" {
		return id, nil
	}
	if tok.AccessToken != "" {
		return tok.AccessToken, nil
	}
	return "", errors.New("token has no id token")
}
