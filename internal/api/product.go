package api

import (
	"errors"
	"net/http"

	"group-access-api/internal/models"
	"group-access-api/internal/services"

	"github.com/gin-gonic/gin"
)

// GetProducts gets all products with their group mappings
func GetProducts(c *gin.Context) {
	products, err := productService.GetAllProducts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to get products",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    products,
	})
}

// GetProduct gets one product by its external id
func GetProduct(c *gin.Context) {
	product, err := productService.GetProductByExternalID(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Product not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to get product",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    product,
	})
}

// CreateProductRequest represents create product request
type CreateProductRequest struct {
	ProductID   string `json:"product_id" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// CreateProduct creates a new product
func CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request format: " + err.Error(),
		})
		return
	}

	product := &models.Product{
		ProductID:   req.ProductID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := productService.CreateProduct(product); err != nil {
		if errors.Is(err, services.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"message": "Product already exists",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to create product",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Product created successfully",
		"data":    product,
	})
}

// UpdateProductRequest represents update product request
type UpdateProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateProduct updates an existing product
func UpdateProduct(c *gin.Context) {
	productID := c.Param("id")

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request format: " + err.Error(),
		})
		return
	}

	updates := make(map[string]interface{})
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Nothing to update",
		})
		return
	}

	product, err := productService.UpdateProduct(productID, updates)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Product not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to update product",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Product updated successfully",
		"data":    product,
	})
}

// DeleteProduct deletes a product, its subscriptions, and its group
// mappings. The groups themselves survive.
func DeleteProduct(c *gin.Context) {
	productID := c.Param("id")

	if err := productService.DeleteProduct(productID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Product not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to delete product",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Product deleted successfully",
	})
}

// MapProductGroupRequest binds a product to a group chat
type MapProductGroupRequest struct {
	GroupID   string `json:"group_id" binding:"required"`
	GroupName string `json:"group_name"`
}

// MapProductGroup maps a product to a group chat. The group is created on
// first sight; mapping a group already owned by another product is
// rejected.
func MapProductGroup(c *gin.Context) {
	productID := c.Param("id")

	var req MapProductGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request format: " + err.Error(),
		})
		return
	}

	group, err := groupService.MapProductToGroup(productID, req.GroupID, req.GroupName)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Product not found",
			})
			return
		}
		if errors.Is(err, services.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"message": "Group is already mapped to another product",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to map group",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Group mapped successfully",
		"data":    group,
	})
}

// UnmapProductGroup removes a product's group mappings
func UnmapProductGroup(c *gin.Context) {
	productID := c.Param("id")

	if err := groupService.UnmapProduct(productID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Product not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to unmap group",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Group unmapped successfully",
	})
}

// GetProductMembers lists the members who joined a product's group through
// their invite link
func GetProductMembers(c *gin.Context) {
	members, err := subscriptionService.ListJoinedMembers(services.MemberFilter{
		ProductID: c.Param("id"),
		Statuses:  c.QueryArray("status"),
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
