// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWrongPurpose = errors.New("token issued for a different purpose")
)

const (
	purposeActor    = "actor"
	purposeVoteLink = "vote_link"
	issuer          = "hoa-assembly"
)

// NewID returns a fresh random identifier for a database row.
func NewID() string {
	return uuid.NewString()
}

// Role is the closed set of roles the assembly core distinguishes.
type Role string

const (
	RoleResident Role = "resident"
	RoleStaff    Role = "staff"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// Actor is the authenticated user performing an operation.
type Actor struct {
	UserID   string `json:"user_id"`
	Role     Role   `json:"role"`
	TenantID string `json:"tenant_id"`
}

// Policy decides what an actor may do to an assembly. One implementation is
// chosen per deployment.
type Policy interface {
	CanManageAssembly(actor Actor) bool
}

// RolePolicy grants management to staff, managers and admins.
type RolePolicy struct{}

func (RolePolicy) CanManageAssembly(actor Actor) bool {
	switch actor.Role {
	case RoleStaff, RoleManager, RoleAdmin:
		return true
	}
	return false
}

type actorClaims struct {
	Purpose  string `json:"purpose"`
	Role     Role   `json:"role"`
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

// IssueActorToken signs a bearer token identifying actor.
func IssueActorToken(actor Actor, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := actorClaims{
		Purpose:  purposeActor,
		Role:     actor.Role,
		TenantID: actor.TenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   actor.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign actor token: %w", err)
	}
	return signed, nil
}

// ParseActorToken validates a bearer token and returns its actor. Tokens
// must name both a user and a tenant.
func ParseActorToken(tokenString, secret string) (Actor, error) {
	var claims actorClaims
	if err := parse(tokenString, secret, &claims); err != nil {
		return Actor{}, err
	}
	if claims.Purpose != purposeActor {
		return Actor{}, ErrWrongPurpose
	}
	if claims.Subject == "" || claims.TenantID == "" {
		return Actor{}, ErrInvalidToken
	}
	return Actor{UserID: claims.Subject, Role: claims.Role, TenantID: claims.TenantID}, nil
}

// VoteLink identifies the ballot an emailed vote link may cast.
type VoteLink struct {
	AssemblyID   string
	AttendeeID   string
	AgendaItemID string
}

type voteLinkClaims struct {
	Purpose      string `json:"purpose"`
	AssemblyID   string `json:"assembly_id"`
	AgendaItemID string `json:"agenda_item_id"`
	jwt.RegisteredClaims
}

// IssueVoteLinkToken signs a token for the generic email-vote endpoint. The
// token expires at expiresAt, normally the end of the voting window.
func IssueVoteLinkToken(link VoteLink, secret string, expiresAt time.Time) (string, error) {
	claims := voteLinkClaims{
		Purpose:      purposeVoteLink,
		AssemblyID:   link.AssemblyID,
		AgendaItemID: link.AgendaItemID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   link.AttendeeID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign vote link: %w", err)
	}
	return signed, nil
}

// ParseVoteLinkToken validates an emailed vote link.
func ParseVoteLinkToken(tokenString, secret string) (VoteLink, error) {
	var claims voteLinkClaims
	if err := parse(tokenString, secret, &claims); err != nil {
		return VoteLink{}, err
	}
	if claims.Purpose != purposeVoteLink {
		return VoteLink{}, ErrWrongPurpose
	}
	if claims.Subject == "" || claims.AssemblyID == "" || claims.AgendaItemID == "" {
		return VoteLink{}, ErrInvalidToken
	}
	return VoteLink{
		AssemblyID:   claims.AssemblyID,
		AttendeeID:   claims.Subject,
		AgendaItemID: claims.AgendaItemID,
	}, nil
}

func parse(tokenString, secret string, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return nil
}
