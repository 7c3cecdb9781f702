package api

import (
	"net/http"

	"group-access-api/internal/services"

	"github.com/gin-gonic/gin"
)

// GetGroups gets all known groups
func GetGroups(c *gin.Context) {
	groups, err := groupService.GetAllGroups()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to get groups",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    groups,
	})
}

// GetUnmappedGroups gets groups the bot sits in that no product sells
// access to yet
func GetUnmappedGroups(c *gin.Context) {
	groups, err := groupService.GetUnmappedGroups()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to get unmapped groups",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    groups,
	})
}

// GetGroupMembers lists the members who joined one group, identified by
// its Telegram chat id
func GetGroupMembers(c *gin.Context) {
	members, err := subscriptionService.ListJoinedMembers(services.MemberFilter{
		ExternalGroupID: c.Param("external_id"),
		Statuses:        c.QueryArray("status"),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to list members",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    members,
	})
}

// GetUsers lists every known subscriber
func GetUsers(c *gin.Context) {
	users, err := services.NewUserService().GetAllUsers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to list users",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    users,
	})
}

// GetJoinedMembers lists every subscription whose user joined a group,
// optionally filtered by group or status
func GetJoinedMembers(c *gin.Context) {
	members, err := subscriptionService.ListJoinedMembers(services.MemberFilter{
		ProductID:       c.Query("product_id"),
		ExternalGroupID: c.Query("group_id"),
		Statuses:        c.QueryArray("status"),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to list members",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    members,
	})
}
