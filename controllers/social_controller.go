package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/princinho/videotube/middleware"
	"github.com/princinho/videotube/models"
	"github.com/princinho/videotube/utils"
)

type LikesController struct {
	likes   LikeService
	queries QueryService
}

func NewLikesController(likes LikeService, queries QueryService) *LikesController {
	return &LikesController{likes: likes, queries: queries}
}

// Toggle serves POST /api/v1/likes/toggle/{v,c,t}/:id for the given kind.
func (l *LikesController) Toggle(kind models.LikeKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		liked, err := l.likes.Toggle(c.Request.Context(), middleware.CurrentUserID(c), kind, c.Param("id"))
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		message := "Like removed"
		if liked {
			message = "Liked successfully"
		}
		utils.Respond(c, http.StatusOK, gin.H{"isLiked": liked}, message)
	}
}

// GET /api/v1/likes/videos?page=&limit=
func (l *LikesController) LikedVideos() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := l.queries.LikedVideos(c.Request.Context(), middleware.CurrentUserID(c), c.Query("page"), c.Query("limit"))
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		utils.Respond(c, http.StatusOK, page, "Liked videos fetched successfully")
	}
}

type SubscriptionsController struct {
	subscriptions SubscriptionService
}

func NewSubscriptionsController(subscriptions SubscriptionService) *SubscriptionsController {
	return &SubscriptionsController{subscriptions: subscriptions}
}

// POST /api/v1/subscriptions/c/:channelId
func (s *SubscriptionsController) Toggle() gin.HandlerFunc {
	return func(c *gin.Context) {
		subscribed, err := s.subscriptions.Toggle(c.Request.Context(), middleware.CurrentUserID(c), c.Param("channelId"))
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		message := "Unsubscribed successfully"
		if subscribed {
			message = "Subscribed successfully"
		}
		utils.Respond(c, http.StatusOK, gin.H{"isSubscribed": subscribed}, message)
	}
}
