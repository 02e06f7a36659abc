package service

import (
	"golang.org/x/crypto/bcrypt"

	"parking-service/internal/auth"
	"parking-service/internal/model"
)

type Operator struct {
	Username     string
	PasswordHash string
	Role         model.OperatorRole
}

// AuthService checks operator credentials against the configured accounts and
// issues access tokens for the gate API.
type AuthService struct {
	operators map[string]Operator
	issuer    *auth.Issuer
}

func NewAuthService(operators []Operator, issuer *auth.Issuer) *AuthService {
	byName := make(map[string]Operator, len(operators))
	for _, op := range operators {
		byName[op.Username] = op
	}
	return &AuthService{operators: byName, issuer: issuer}
}

func (s *AuthService) Login(username, password string) (string, error) {
	operator, ok := s.operators[username]
	if !ok {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(operator.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	token, err := s.issuer.Issue(operator.Username, operator.Role)
	if err != nil {
		return "", err
	}
	return token, nil
}
