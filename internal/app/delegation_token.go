package app

import (
	"fmt"
	"math/rand"
	"time"

	"degendecks/internal/domain"

	"github.com/form3tech-oss/jwt-go"
)

// DelegationTokens signs the records that hand a game to a venue.
type DelegationTokens struct {
	secret []byte
	issuer string
}

// DelegationClaims are the verified contents of a delegation token.
type DelegationClaims struct {
	Game      string
	Venue     string
	Delegator string
	IssuedAt  time.Time
}

const delegationIssuer = "degendecks"

func NewDelegationTokens(secret string) *DelegationTokens {
	return &DelegationTokens{
		secret: []byte(secret),
		issuer: delegationIssuer,
	}
}

// Issue signs a token binding game ref to venue on behalf of delegator.
// Tokens do not expire; a commit must stay possible however long a game runs.
func (s *DelegationTokens) Issue(ref, venue, delegator string, now time.Time) (string, error) {
	if s == nil {
		return "", fmt.Errorf("delegation tokens not configured")
	}
	if len(s.secret) == 0 {
		return "", fmt.Errorf("delegation secret is empty")
	}
	if ref == "" || venue == "" || delegator == "" {
		return "", fmt.Errorf("game, venue and delegator are required")
	}

	claims := jwt.MapClaims{
		"iss":   s.issuer,
		"sub":   delegator,
		"iat":   now.Unix(),
		"jti":   fmt.Sprintf("%d-%d", now.UnixNano(), rand.Int63()),
		"game":  ref,
		"venue": venue,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks the signature of tokenString and that it was issued for ref.
func (s *DelegationTokens) Verify(tokenString, ref string) (*DelegationClaims, error) {
	if s == nil || len(s.secret) == 0 {
		return nil, fmt.Errorf("delegation tokens not configured")
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidDelegationToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidDelegationToken
	}
	if iss, _ := claims["iss"].(string); iss != s.issuer {
		return nil, fmt.Errorf("%w: issuer %q", domain.ErrInvalidDelegationToken, iss)
	}
	game, _ := claims["game"].(string)
	if game != ref {
		return nil, fmt.Errorf("%w: issued for game %q", domain.ErrInvalidDelegationToken, game)
	}

	out := &DelegationClaims{Game: game}
	out.Venue, _ = claims["venue"].(string)
	out.Delegator, _ = claims["sub"].(string)
	if iat, ok := claims["iat"].(float64); ok {
		out.IssuedAt = time.Unix(int64(iat), 0).UTC()
	}
	return out, nil
}
