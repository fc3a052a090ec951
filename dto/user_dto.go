package dto

import "mime/multipart"

// RegisterDTO is parsed from a multipart form. Avatar is required, the cover
// image is optional.
type RegisterDTO struct {
	FullName   string                `form:"fullName"`
	Email      string                `form:"email"`
	Username   string                `form:"username"`
	Password   string                `form:"password"`
	Avatar     *multipart.FileHeader `form:"avatar"`
	CoverImage *multipart.FileHeader `form:"coverImage"`
}

// LoginDTO accepts either the username or the email.
type LoginDTO struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required"`
}

type RefreshDTO struct {
	RefreshToken string `json:"refreshToken"`
}

type UpdateAccountDTO struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}
