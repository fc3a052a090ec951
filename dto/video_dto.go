package dto

import "mime/multipart"

type PublishVideoDTO struct {
	Title       string                `form:"title"`
	Description string                `form:"description"`
	Duration    string                `form:"duration"` // seconds, measured by the client
	VideoFile   *multipart.FileHeader `form:"videoFile"`
	Thumbnail   *multipart.FileHeader `form:"thumbnail"`
}

// UpdateVideoDTO: every field is optional, at least one must be set.
type UpdateVideoDTO struct {
	Title       string                `form:"title"`
	Description string                `form:"description"`
	Thumbnail   *multipart.FileHeader `form:"thumbnail"`
}
