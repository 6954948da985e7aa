package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the structure of the JSON Web Token (JWT) claims for the
// chat session token handed out on successful authentication and presented
// again through the verify_session event.
type Payload struct {
	// StandardClaims embeds the JWT standard fields such as Exp (Expiration),
	// Iat (Issued At), and Iss (Issuer), which drive token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// UserID is the public user id ("#123456") of the token holder.
	UserID string `json:"user_id"`

	// Username is the unique handle of the token holder, carried for logging
	// and client display without a store round trip.
	Username string `json:"username"`
}
