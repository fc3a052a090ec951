package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/princinho/videotube/dto"
	"github.com/princinho/videotube/middleware"
	"github.com/princinho/videotube/queries"
	"github.com/princinho/videotube/utils"
)

type VideosController struct {
	videos  VideoService
	queries QueryService
}

func NewVideosController(videos VideoService, queries QueryService) *VideosController {
	return &VideosController{videos: videos, queries: queries}
}

// GET /api/v1/videos?page=&limit=&query=&sortBy=&sortType=&userId=
func (v *VideosController) List() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := v.queries.ListVideos(c.Request.Context(), middleware.CurrentUserID(c), queries.VideoListInput{
			Page:     c.Query("page"),
			Limit:    c.Query("limit"),
			Query:    c.Query("query"),
			SortBy:   c.Query("sortBy"),
			SortType: c.Query("sortType"),
			UserID:   c.Query("userId"),
		})
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.Respond(c, http.StatusOK, page, "Videos fetched successfully")
	}
}

// POST /api/v1/videos (multipart: title, description, duration, videoFile, thumbnail)
func (v *VideosController) Publish() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.PublishVideoDTO
		if err := bind(c, &body); err != nil {
			utils.RespondError(c, err)
			return
		}
		video, err := v.videos.Publish(c.Request.Context(), middleware.CurrentUserID(c), body)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.Respond(c, http.StatusCreated, video, "Video published successfully")
	}
}

// GET /api/v1/videos/:videoId
func (v *VideosController) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		video, err := v.videos.Get(c.Request.Context(), middleware.CurrentUserID(c), c.Param("videoId"))
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.Respond(c, http.StatusOK, video, "Video fetched successfully")
	}
}

// PATCH /api/v1/videos/:videoId (multipart: title, description, thumbnail)
func (v *VideosController) Update() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.UpdateVideoDTO
		if err := bind(c, &body); err != nil {
			utils.RespondError(c, err)
			return
		}
		video, err := v.videos.Update(c.Request.Context(), middleware.CurrentUserID(c), c.Param("videoId"), body)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.Respond(c, http.StatusOK, video, "Video updated successfully")
	}
}

// DELETE /api/v1/videos/:videoId
func (v *VideosController) Delete() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := v.videos.Delete(c.Request.Context(), middleware.CurrentUserID(c), c.Param("videoId")); err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.Respond(c, http.StatusOK, gin.H{}, "Video deleted successfully")
	}
}

// PATCH /api/v1/videos/toggle/publish/:videoId
func (v *VideosController) TogglePublish() gin.HandlerFunc {
	return func(c *gin.Context) {
		video, err := v.videos.TogglePublish(c.Request.Context(), middleware.CurrentUserID(c), c.Param("videoId"))
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.Respond(c, http.StatusOK, video, "Publish status toggled successfully")
	}
}
