package model

import (
	"errors"
	"time"
)

var (
	ErrAdminExists   = errors.New("admin already exists")
	ErrAdminNotFound = errors.New("admin not found")
)

// Admin is a salon staff account allowed to manage appointments.
type Admin struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	CreatedAt    time.Time `bson:"createdAt"`
}
