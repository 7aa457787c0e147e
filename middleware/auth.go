// middleware/auth.go
package middleware

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const defaultSecret = "trainvoc-secret-change-in-production"

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrTokenClaims  = errors.New("invalid token claims")
)

// SessionClaims identify one seat in one room.
type SessionClaims struct {
	PlayerID string `json:"player_id"`
	RoomCode string `json:"room_code"`
	jwt.RegisteredClaims
}

// SessionTokens signs and verifies room session tokens with HMAC.
type SessionTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionTokens(secret string, ttl time.Duration) *SessionTokens {
	if secret == "" {
		secret = defaultSecret
	}
	return &SessionTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue implements game.TokenIssuer.
func (s *SessionTokens) Issue(roomCode, playerID string) (string, error) {
	now := s.now()
	claims := SessionClaims{
		PlayerID: playerID,
		RoomCode: roomCode,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *SessionTokens) Parse(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.PlayerID == "" || claims.RoomCode == "" {
		return nil, ErrTokenClaims
	}
	return claims, nil
}

// SessionMiddleware requires a bearer session token for the room named by the
// :code route parameter.
func SessionMiddleware(tokens *SessionTokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(401).JSON(fiber.Map{"success": false, "error": "Missing authorization header"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(401).JSON(fiber.Map{"success": false, "error": "Invalid authorization header format"})
		}

		claims, err := tokens.Parse(parts[1])
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"success": false, "error": "Invalid or expired token"})
		}

		if code := c.Params("code"); code != "" && !strings.EqualFold(strings.TrimSpace(code), claims.RoomCode) {
			return c.Status(403).JSON(fiber.Map{"success": false, "error": "Token does not belong to this room"})
		}

		c.Locals("playerId", claims.PlayerID)
		c.Locals("roomCode", claims.RoomCode)
		return c.Next()
	}
}

func GetPlayerID(c *fiber.Ctx) (string, error) {
	id, ok := c.Locals("playerId").(string)
	if !ok || id == "" {
		return "", fiber.NewError(401, "Player not authenticated")
	}
	return id, nil
}

// AdminKeyMiddleware guards operator routes with a static bearer key.
func AdminKeyMiddleware(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(401).JSON(fiber.Map{"success": false, "error": "Missing authorization header"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(401).JSON(fiber.Map{"success": false, "error": "Invalid authorization header format"})
		}

		if key == "" || subtle.ConstantTimeCompare([]byte(parts[1]), []byte(key)) != 1 {
			return c.Status(403).JSON(fiber.Map{"success": false, "error": "Access denied. Admin privileges required."})
		}
		c.Locals("isAdmin", true)
		return c.Next()
	}
}
