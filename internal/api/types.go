package api

import (
	"time"

	"labhub/internal/attachset"
	"labhub/internal/models"
)

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// Lab is the wire shape of a lab. List fields travel as delimited strings.
type Lab struct {
	Code        int64  `json:"lab_code" yaml:"lab_code"`
	Name        string `json:"lab_name" yaml:"lab_name"`
	Description string `json:"lab_description" yaml:"lab_description"`
	Objectives  string `json:"lab_objectives" yaml:"lab_objectives"`
	Projects    string `json:"lab_proyects" yaml:"lab_proyects"`
	Images      string `json:"lab_images" yaml:"lab_images"`
	Video       string `json:"lab_video" yaml:"lab_video"`
	Podcast     string `json:"lab_podcast" yaml:"lab_podcast"`
}

// LabFromModel converts a stored lab to its wire shape.
func LabFromModel(lab models.Lab) Lab {
	return Lab{
		Code:        lab.Code,
		Name:        lab.Name,
		Description: lab.Description,
		Objectives:  attachset.Encode(lab.Objectives),
		Projects:    attachset.Encode(lab.Projects),
		Images:      attachset.Encode(lab.Images),
		Video:       lab.Video,
		Podcast:     lab.Podcast,
	}
}

// Model converts the wire shape back to a lab.
func (l Lab) Model() models.Lab {
	return models.Lab{
		Code:        l.Code,
		Name:        l.Name,
		Description: l.Description,
		Objectives:  attachset.Decode(l.Objectives),
		Projects:    attachset.Decode(l.Projects),
		Images:      attachset.Decode(l.Images),
		Video:       l.Video,
		Podcast:     l.Podcast,
	}
}

// DeleteImageRequest removes one image reference.
type DeleteImageRequest struct {
	Image string `json:"image" validate:"required"`
}

// DeleteMediaRequest removes one media reference of the given type.
type DeleteMediaRequest struct {
	MediaType string `json:"mediaType" validate:"required"`
	MediaURL  string `json:"mediaUrl,omitempty"`
}

// CountResponse carries a follower count.
type CountResponse struct {
	Count int `json:"count" yaml:"count"`
}

// FollowingResponse reports whether a user follows a lab.
type FollowingResponse struct {
	IsFollowing bool `json:"isFollowing" yaml:"isFollowing"`
}

// UserRegisterRequest creates a student account.
type UserRegisterRequest struct {
	Name     string `json:"user_name" validate:"required,max=100"`
	Surname  string `json:"user_surname" validate:"required,max=100"`
	Email    string `json:"user_email" validate:"required,email,max=254"`
	Password string `json:"user_password" validate:"required,min=8,max=72"`
	Gender   string `json:"user_gender,omitempty" validate:"omitempty,max=32"`
	Age      int    `json:"user_age,omitempty" validate:"omitempty,gte=0,lte=150"`
	Degree   string `json:"user_degree,omitempty" validate:"omitempty,max=100"`
	Zipcode  string `json:"user_zipcode,omitempty" validate:"omitempty,max=16"`
}

// UserUpdateRequest replaces a student's profile. Password is re-hashed only when set.
type UserUpdateRequest struct {
	Name     string `json:"user_name" validate:"required,max=100"`
	Surname  string `json:"user_surname" validate:"required,max=100"`
	Email    string `json:"user_email" validate:"required,email,max=254"`
	Password string `json:"user_password,omitempty" validate:"omitempty,min=8,max=72"`
	Gender   string `json:"user_gender,omitempty" validate:"omitempty,max=32"`
	Age      int    `json:"user_age,omitempty" validate:"omitempty,gte=0,lte=150"`
	Degree   string `json:"user_degree,omitempty" validate:"omitempty,max=100"`
	Zipcode  string `json:"user_zipcode,omitempty" validate:"omitempty,max=16"`
}

// AdminRegisterRequest creates an admin account.
type AdminRegisterRequest struct {
	Name     string `json:"admin_name" validate:"required,max=100"`
	Surname  string `json:"admin_surname" validate:"required,max=100"`
	Email    string `json:"admin_email" validate:"required,email,max=254"`
	Password string `json:"admin_password" validate:"required,min=8,max=72"`
}

// AdminUpdateRequest replaces an admin's profile. Password is re-hashed only when set.
type AdminUpdateRequest struct {
	Name     string `json:"admin_name" validate:"required,max=100"`
	Surname  string `json:"admin_surname" validate:"required,max=100"`
	Email    string `json:"admin_email" validate:"required,email,max=254"`
	Password string `json:"admin_password,omitempty" validate:"omitempty,min=8,max=72"`
}

// LoginRequest authenticates a student or admin.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the bearer token for later requests.
type LoginResponse struct {
	Token     string    `json:"token" yaml:"token"`
	ExpiresAt time.Time `json:"expires_at" yaml:"expires_at"`
	Role      string    `json:"role" yaml:"role"`
	Code      int64     `json:"code" yaml:"code"`
	Email     string    `json:"email" yaml:"email"`
}
