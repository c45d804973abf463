package callback

import (
	"errors"

	"github.com/ethereum/go-ethereum/log"
	"github.com/golang-jwt/jwt/v4"
)

// ErrNotJSONObject is returned when a JWT sink receives a result whose JSON
// form is not an object; HS256 claims require one.
var ErrNotJSONObject = errors.New("token payload is not a json object")

// JWTCallback posts {"token": "<jwt>"} to a URL, where the token is the
// HS256-signed JSON form of the result.
type JWTCallback struct {
	URLCallback
	secret []byte
}

// NewJWTCallback creates a JWT-signed webhook sink for the given URL.
func NewJWTCallback(url, secret string, remote RemoteAPI) *JWTCallback {
	return &JWTCallback{
		URLCallback: URLCallback{url: url, remote: remote},
		secret:      []byte(secret),
	}
}

func (c *JWTCallback) Execute(data any) error {
	value, err := jsonValue(data)
	if err != nil {
		return err
	}
	claims, ok := value.(map[string]any)
	if !ok {
		return ErrNotJSONObject
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(claims)).SignedString(c.secret)
	if err != nil {
		return err
	}
	response, err := c.post(map[string]any{"token": token})
	if err != nil {
		return err
	}
	log.Debug("jwt callback delivered", "url", c.url, "status", response.StatusCode)
	return nil
}
