package bootstrap

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/remoterealm/remoterealm/rpc"
)

// tokenLeeway is how close to expiry a stored token is still considered
// usable.
const tokenLeeway = 30 * time.Second

// authenticate installs a usable session token on the channel: the stored
// one when it has not expired, otherwise a fresh one obtained by exchanging
// the configured credentials.
func authenticate(ctx context.Context, channel *rpc.Channel, auth *AuthConfig) error {
	if auth.Token != "" && !tokenExpired(auth.Token, time.Now()) {
		channel.SetToken(auth.Token)
		return nil
	}

	if auth.Username == "" {
		return rpc.NewUsageError("debug server authentication requires a username or an unexpired token")
	}

	token, err := channel.Login(ctx, auth.Username, auth.Password)
	if err != nil {
		return err
	}
	channel.SetToken(token)
	return nil
}

// tokenExpired inspects the token's expiry claim locally, without verifying
// the signature; only the issuing debug server can do that. Tokens that do
// not parse or carry no expiry are treated as expired so a fresh login
// happens.
func tokenExpired(token string, now time.Time) bool {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return true
	}
	expiry, err := claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return true
	}
	return !now.Add(tokenLeeway).Before(expiry.Time)
}
