package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/princinho/videotube/dto"
	"github.com/princinho/videotube/middleware"
	"github.com/princinho/videotube/utils"
)

type PlaylistsController struct {
	playlists PlaylistService
	queries   QueryService
}

func NewPlaylistsController(playlists PlaylistService, queries QueryService) *PlaylistsController {
	return &PlaylistsController{playlists: playlists, queries: queries}
}

// POST /api/v1/playlists
func (p *PlaylistsController) Create() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.CreatePlaylistDTO
		if err := bind(c, &body); err != nil {
			utils.RespondError(c, err)
			return
		}
		playlist, err := p.playlists.Create(c.Request.Context(), middleware.CurrentUserID(c), body)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.Respond(c, http.StatusCreated, playlist, "Playlist created successfully")
	}
}

// GET /api/v1/playlists/user/:userId?page=&limit=
func (p *PlaylistsController) UserPlaylists() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := p.queries.ListUserPlaylists(c.Request.Context(), c.Param("userId"), c.Query("page"), c.Query("limit"))
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.Respond(c, http.StatusOK, page, "Playlists fetched successfully")
	}
}

// GET /api/v1/playlists/:playlistId
func (p *PlaylistsController) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		playlist, err := p.playlists.Get(c.Request.Context(), c.Param("playlistId"))
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.Respond(c, http.StatusOK, playlist, "Playlist fetched successfully")
	}
}

// PATCH /api/v1/playlists/:playlistId
func (p *PlaylistsController) Update() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.UpdatePlaylistDTO
		if err := bind(c, &body); err != nil {
			utils.RespondError(c, err)
			return
		}
		playlist, err := p.playlists.Update(c.Request.Context(), middleware.CurrentUserID(c), c.Param("playlistId"), body)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.Respond(c, http.StatusOK, playlist, "Playlist updated successfully")
	}
}

// DELETE /api/v1/playlists/:playlistId
func (p *PlaylistsController) Delete() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := p.playlists.Delete(c.Request.Context(), middleware.CurrentUserID(c), c.Param("playlistId")); err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.Respond(c, http.StatusOK, gin.H{}, "Playlist deleted successfully")
	}
}

// PATCH /api/v1/playlists/add/:videoId/:playlistId
func (p *PlaylistsController) AddVideo() gin.HandlerFunc {
	return func(c *gin.Context) {
		playlist, err := p.playlists.AddVideo(c.Request.Context(), middleware.CurrentUserID(c), c.Param("playlistId"), c.Param("videoId"))
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.Respond(c, http.StatusOK, playlist, "Video added to playlist")
	}
}

// PATCH /api/v1/playlists/remove/:videoId/:playlistId
func (p *PlaylistsController) RemoveVideo() gin.HandlerFunc {
	return func(c *gin.Context) {
		playlist, err := p.playlists.RemoveVideo(c.Request.Context(), middleware.CurrentUserID(c), c.Param("playlistId"), c.Param("videoId"))
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.Respond(c, http.StatusOK, playlist, "Video removed from playlist")
	}
}
