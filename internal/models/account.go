package models

import "time"

// Role distinguishes the two kinds of authenticated callers.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// User is a student account. PasswordHash never leaves the server.
type User struct {
	Code         int64     `json:"user_code" yaml:"user_code"`
	Name         string    `json:"user_name" yaml:"user_name"`
	Surname      string    `json:"user_surname" yaml:"user_surname"`
	Email        string    `json:"user_email" yaml:"user_email"`
	PasswordHash string    `json:"-" yaml:"-"`
	Gender       string    `json:"user_gender,omitempty" yaml:"user_gender,omitempty"`
	Age          int       `json:"user_age,omitempty" yaml:"user_age,omitempty"`
	Degree       string    `json:"user_degree,omitempty" yaml:"user_degree,omitempty"`
	Zipcode      string    `json:"user_zipcode,omitempty" yaml:"user_zipcode,omitempty"`
	Role         Role      `json:"role" yaml:"role"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
}

// Admin is a back-office account allowed to manage labs.
type Admin struct {
	Code         int64     `json:"admin_code" yaml:"admin_code"`
	Name         string    `json:"admin_name" yaml:"admin_name"`
	Surname      string    `json:"admin_surname" yaml:"admin_surname"`
	Email        string    `json:"admin_email" yaml:"admin_email"`
	PasswordHash string    `json:"-" yaml:"-"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
}
