package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a student.
type LoginRequest struct {
	StudentNumber string `json:"student_number" validate:"required,max=64"`
	Password      string `json:"password" validate:"required"`
}

// LoginResponse returns the issued access token and student info.
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int64       `json:"expires_in"`
	Student     StudentInfo `json:"student"`
	IssuedAt    time.Time   `json:"issued_at"`
}

// StudentInfo describes the authenticated student in responses.
type StudentInfo struct {
	ID            string `json:"id"`
	StudentNumber string `json:"student_number"`
	Name          string `json:"name"`
}

// JWTClaims represents the JWT payload for access tokens. Subject carries the student number.
type JWTClaims struct {
	StudentID     string `json:"student_id"`
	StudentNumber string `json:"student_number"`
	Name          string `json:"name"`
	jwt.RegisteredClaims
}
