package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingStaff    = errors.New("jwt: el token no identifica al empleado")
	ErrSubjectMismatch = errors.New("jwt: sub no coincide con staff_id")
)

// clockSkew tolera relojes desfasados entre el emisor y esta API.
const clockSkew = 30 * time.Second

// Staff es el empleado que viaja en el token. Role puede venir vacío: el middleware de roles
// decide qué hacer con eso.
type Staff struct {
	ID   string
	Name string
	Role string // "Manager" | "Storekeeper" | "Delivery Staff" | ...
}

// Claims claims estándar más el empleado. sub y staff_id deben coincidir.
type Claims struct {
	jwt.RegisteredClaims
	StaffID string `json:"staff_id"`
	Name    string `json:"name"`
	Role    string `json:"role,omitempty"`
}

// Validate se ejecuta después de las validaciones estándar (exp, iss).
func (c Claims) Validate() error {
	if c.StaffID == "" {
		return ErrMissingStaff
	}
	if c.Subject != "" && c.Subject != c.StaffID {
		return ErrSubjectMismatch
	}
	return nil
}

// Generate firma un token HS256 para el empleado con vigencia ttl.
func Generate(secret, issuer string, staff Staff, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt: secret vacío")
	}
	if staff.ID == "" {
		return "", ErrMissingStaff
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   staff.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		StaffID: staff.ID,
		Name:    staff.Name,
		Role:    staff.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Parse verifica firma, expiración obligatoria y, si issuer no es vacío, el emisor.
func Parse(secret, issuer, tokenString string) (Staff, error) {
	if secret == "" {
		return Staff{}, fmt.Errorf("jwt: secret vacío")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	var claims Claims
	if _, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, opts...); err != nil {
		return Staff{}, err
	}
	return Staff{ID: claims.StaffID, Name: claims.Name, Role: claims.Role}, nil
}
