package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/coursehub-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	Subject string
	Role    enums.MemberRole
	JTI     string
}

// AccessTokenClaims is the typed JWT carried by staff requests. The staff
// member's id is the registered subject.
type AccessTokenClaims struct {
	Role enums.MemberRole `json:"role"`
	jwt.RegisteredClaims
}
