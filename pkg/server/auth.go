package server

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ErrBadCredentials is returned by Login for a wrong password.
var ErrBadCredentials = errors.New("invalid credentials")

// Claims holds the JWT claims of an operator token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService issues and checks operator tokens for the REST API.
type AuthService struct {
	passHash  []byte
	plainPass string // from the environment; wins over the hash
	jwtKey    []byte
	expiry    time.Duration
	now       func() time.Time
}

// NewAuthService creates an auth service. passHash is a bcrypt hash;
// plainPass, when set, is compared instead. If jwtSecret is empty, a
// random 32-byte key is generated.
func NewAuthService(passHash, plainPass, jwtSecret string, expirySeconds int) *AuthService {
	var key []byte
	if jwtSecret != "" {
		key = []byte(jwtSecret)
	} else {
		key = make([]byte, 32)
		rand.Read(key)
	}
	expiry := 24 * time.Hour
	if expirySeconds > 0 {
		expiry = time.Duration(expirySeconds) * time.Second
	}
	return &AuthService{
		passHash:  []byte(passHash),
		plainPass: plainPass,
		jwtKey:    key,
		expiry:    expiry,
		now:       time.Now,
	}
}

func (a *AuthService) checkPassword(password string) bool {
	if a.plainPass != "" {
		return subtle.ConstantTimeCompare([]byte(password), []byte(a.plainPass)) == 1
	}
	if len(a.passHash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(a.passHash, []byte(password)) == nil
}

// Login checks the operator password and returns a signed token.
func (a *AuthService) Login(password string) (string, error) {
	if !a.checkPassword(password) {
		return "", ErrBadCredentials
	}
	return a.sign(Claims{Role: "operator"})
}

func (a *AuthService) sign(claims Claims) (string, error) {
	now := a.now()
	claims.Subject = claims.Role
	claims.Issuer = "godaad"
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(a.expiry))
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtKey)
}

// ValidateToken parses and validates a token string.
func (a *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.jwtKey, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// HashPassword returns the bcrypt hash to put in admin_password_hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// GenerateJWTSecret generates a random hex-encoded secret suitable for jwt_secret config.
func GenerateJWTSecret() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}

type claimsKey struct{}

// ClaimsFromContext returns the claims authMiddleware stored, or nil.
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey{}).(*Claims)
	return c
}

// authMiddleware requires a valid bearer token.
func authMiddleware(auth *AuthService, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		claims, err := auth.ValidateToken(tokenStr)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}
