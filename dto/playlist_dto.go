package dto

type CreatePlaylistDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UpdatePlaylistDTO struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}
