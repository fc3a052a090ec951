package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/princinho/videotube/dto"
	"github.com/princinho/videotube/middleware"
	"github.com/princinho/videotube/utils"
)

type CommentsController struct {
	comments CommentService
	queries  QueryService
}

func NewCommentsController(comments CommentService, queries QueryService) *CommentsController {
	return &CommentsController{comments: comments, queries: queries}
}

// GET /api/v1/comments/:videoId?page=&limit=
func (cc *CommentsController) List() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := cc.queries.ListComments(c.Request.Context(), c.Param("videoId"), c.Query("page"), c.Query("limit"))
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.Respond(c, http.StatusOK, page, "Comments fetched successfully")
	}
}

// POST /api/v1/comments/:videoId
func (cc *CommentsController) Add() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.CommentDTO
		if err := bind(c, &body); err != nil {
			utils.RespondError(c, err)
			return
		}
		comment, err := cc.comments.Add(c.Request.Context(), middleware.CurrentUserID(c), c.Param("videoId"), body.Content)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.Respond(c, http.StatusCreated, comment, "Comment added successfully")
	}
}

// PATCH /api/v1/comments/c/:commentId
func (cc *CommentsController) Update() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.CommentDTO
		if err := bind(c, &body); err != nil {
			utils.RespondError(c, err)
			return
		}
		comment, err := cc.comments.Update(c.Request.Context(), middleware.CurrentUserID(c), c.Param("commentId"), body.Content)
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.Respond(c, http.StatusOK, comment, "Comment updated successfully")
	}
}

// DELETE /api/v1/comments/c/:commentId
func (cc *CommentsController) Delete() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := cc.comments.Delete(c.Request.Context(), middleware.CurrentUserID(c), c.Param("commentId")); err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.Respond(c, http.StatusOK, gin.H{}, "Comment deleted successfully")
	}
}
