package services

import (
	"testing"

	"group-access-api/internal/database"
	"group-access-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterOrRefresh(t *testing.T) {
	setupTestDB(t)
	service := NewGroupService()

	group, err := service.RegisterOrRefresh("-1001", "Premium Chat")
	require.NoError(t, err)
	assert.Equal(t, "-1001", group.ExternalID)
	assert.Equal(t, "Premium Chat", group.Name)
	assert.True(t, group.IsActive)
	assert.Nil(t, group.ProductID)

	// Re-adding the bot refreshes the title, no duplicate row
	group, err = service.RegisterOrRefresh("-1001", "Premium Chat v2")
	require.NoError(t, err)
	assert.Equal(t, "Premium Chat v2", group.Name)

	var count int64
	require.NoError(t, database.DB.Model(&models.Group{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRegisterOrRefresh_ReactivatesAfterRemoval(t *testing.T) {
	setupTestDB(t)
	service := NewGroupService()

	_, err := service.RegisterOrRefresh("-1001", "Premium Chat")
	require.NoError(t, err)
	require.NoError(t, service.Deactivate("-1001"))

	group, err := service.RegisterOrRefresh("-1001", "Premium Chat")
	require.NoError(t, err)
	assert.True(t, group.IsActive)
}

func TestDeactivate_UnknownGroup(t *testing.T) {
	setupTestDB(t)
	service := NewGroupService()

	err := service.Deactivate("-1099")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeactivate_KeepsMapping(t *testing.T) {
	setupTestDB(t)
	seedProductWithGroup(t, "prod_basic", "-1001")
	service := NewGroupService()

	require.NoError(t, service.Deactivate("-1001"))

	group, err := service.GetGroupByExternalID("-1001")
	require.NoError(t, err)
	assert.False(t, group.IsActive)
	assert.NotNil(t, group.ProductID, "deactivation must not drop the product mapping")
}

func TestMapProductToGroup_CreatesUnseenGroup(t *testing.T) {
	setupTestDB(t)
	product := &models.Product{ProductID: "prod_basic", Name: "Basic"}
	require.NoError(t, database.DB.Create(product).Error)
	service := NewGroupService()

	group, err := service.MapProductToGroup("prod_basic", "-1001", "Premium Chat")
	require.NoError(t, err)
	require.NotNil(t, group.ProductID)
	assert.Equal(t, product.ID, *group.ProductID)
	assert.True(t, group.IsActive)
}

func TestMapProductToGroup_ExistingGroup(t *testing.T) {
	setupTestDB(t)
	product := &models.Product{ProductID: "prod_basic", Name: "Basic"}
	require.NoError(t, database.DB.Create(product).Error)
	service := NewGroupService()

	_, err := service.RegisterOrRefresh("-1001", "Premium Chat")
	require.NoError(t, err)

	group, err := service.MapProductToGroup("prod_basic", "-1001", "")
	require.NoError(t, err)
	require.NotNil(t, group.ProductID)
	assert.Equal(t, product.ID, *group.ProductID)
	assert.Equal(t, "Premium Chat", group.Name, "empty name must not clear the title")
}

func TestMapProductToGroup_OwnedByAnotherProduct(t *testing.T) {
	setupTestDB(t)
	seedProductWithGroup(t, "prod_basic", "-1001")
	other := &models.Product{ProductID: "prod_pro", Name: "Pro"}
	require.NoError(t, database.DB.Create(other).Error)
	service := NewGroupService()

	_, err := service.MapProductToGroup("prod_pro", "-1001", "")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMapProductToGroup_UnknownProduct(t *testing.T) {
	setupTestDB(t)
	service := NewGroupService()

	_, err := service.MapProductToGroup("prod_missing", "-1001", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMapProductToGroup_SecondGroupForProduct(t *testing.T) {
	setupTestDB(t)
	product := seedProductWithGroup(t, "prod_basic", "-1001")
	service := NewGroupService()

	_, err := service.MapProductToGroup("prod_basic", "-1002", "Overflow Chat")
	require.NoError(t, err)

	// Subscription creation keeps using the earliest mapped group
	group, err := service.ResolveGroupForProduct(product.ID)
	require.NoError(t, err)
	assert.Equal(t, "-1001", group.ExternalID)
}

func TestResolveGroupForProduct_SkipsInactive(t *testing.T) {
	setupTestDB(t)
	product := seedProductWithGroup(t, "prod_basic", "-1001")
	service := NewGroupService()

	_, err := service.MapProductToGroup("prod_basic", "-1002", "Overflow Chat")
	require.NoError(t, err)
	require.NoError(t, service.Deactivate("-1001"))

	group, err := service.ResolveGroupForProduct(product.ID)
	require.NoError(t, err)
	assert.Equal(t, "-1002", group.ExternalID)
}

func TestResolveGroupForProduct_NoMapping(t *testing.T) {
	setupTestDB(t)
	product := &models.Product{ProductID: "prod_basic", Name: "Basic"}
	require.NoError(t, database.DB.Create(product).Error)
	service := NewGroupService()

	_, err := service.ResolveGroupForProduct(product.ID)
	assert.ErrorIs(t, err, ErrNoGroupMapping)
}

func TestUnmapProduct(t *testing.T) {
	setupTestDB(t)
	seedProductWithGroup(t, "prod_basic", "-1001")
	service := NewGroupService()

	require.NoError(t, service.UnmapProduct("prod_basic"))

	unmapped, err := service.GetUnmappedGroups()
	require.NoError(t, err)
	require.Len(t, unmapped, 1)
	assert.Equal(t, "-1001", unmapped[0].ExternalID)

	err = service.UnmapProduct("prod_basic")
	assert.ErrorIs(t, err, ErrNotFound)
}
