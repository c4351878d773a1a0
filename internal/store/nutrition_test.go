package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faddenpatrick/ironledger/internal/common"
	"github.com/faddenpatrick/ironledger/internal/models"
)

func TestMealCategories_OrderedByDisplayOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.BulkPutMealCategories(ctx, []models.MealCategory{
		{ID: "c3", Name: "Dinner", DisplayOrder: 3},
		{ID: "c1", Name: "Breakfast", DisplayOrder: 1},
		{ID: "c2", Name: "Lunch", DisplayOrder: 2},
	}))

	got, err := s.ListMealCategories(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"Breakfast", "Lunch", "Dinner"}, []string{got[0].Name, got[1].Name, got[2].Name})
}

func TestFoods_SearchIsSubstringCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.BulkPutFoods(ctx, []models.Food{
		{ID: "f1", Name: "Chicken Breast", Calories: 165},
		{ID: "f2", Name: "Brown Rice", Calories: 111},
		{ID: "f3", Name: "Greek Yogurt", Calories: 59},
	}))

	got, err := s.ListFoods(ctx, "CHICKEN")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "f1", got[0].ID)
	assert.Equal(t, 165.0, got[0].Calories)

	all, err := s.ListFoods(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMeals_AggregateRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	meal := &models.Meal{
		ID:                   "m1",
		CategoryID:           "c1",
		CategoryNameSnapshot: "Breakfast",
		MealDate:             "2026-08-29",
		MealTime:             "08:30",
		Items: []models.MealItem{
			{ID: "i1", MealID: "m1", FoodID: "f1", FoodNameSnapshot: "Oats", CaloriesSnapshot: 389, Servings: 1, CreatedAt: "2026-08-29T08:30:00Z"},
			{ID: "i2", MealID: "m1", FoodID: "f2", FoodNameSnapshot: "Milk", CaloriesSnapshot: 42, Servings: 2, CreatedAt: "2026-08-29T08:31:00Z"},
		},
	}
	require.NoError(t, s.PutMeal(ctx, meal))

	got, err := s.GetMeal(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "Breakfast", got.CategoryNameSnapshot)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Oats", got.Items[0].FoodNameSnapshot)
	assert.Equal(t, 2.0, got.Items[1].Servings)
}

func TestListMeals_FiltersByDate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.BulkPutMeals(ctx, []models.Meal{
		{ID: "m1", MealDate: "2026-08-28", MealTime: "08:00"},
		{ID: "m2", MealDate: "2026-08-29", MealTime: "12:00"},
		{ID: "m3", MealDate: "2026-08-29", MealTime: "08:00"},
	}))

	got, err := s.ListMeals(ctx, "2026-08-29")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "m3", got[0].ID, "ordered by meal time within the day")
	assert.Equal(t, "m2", got[1].ID)
}

func TestReplaceMeal_SwapsAggregate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.PutMeal(ctx, &models.Meal{
		ID:       "temp-m",
		MealDate: "2026-08-29",
		Items:    []models.MealItem{{ID: "temp-i", MealID: "temp-m", FoodID: "f1"}},
	}))

	require.NoError(t, s.ReplaceMeal(ctx, "temp-m", &models.Meal{
		ID:       "srv-m",
		MealDate: "2026-08-29",
		Items:    []models.MealItem{{ID: "srv-i", MealID: "srv-m", FoodID: "f1"}},
	}))

	_, err := s.GetMeal(ctx, "temp-m")
	assert.True(t, errors.Is(err, common.ErrNotFound))
	_, err = s.GetMealItem(ctx, "temp-i")
	assert.True(t, errors.Is(err, common.ErrNotFound))

	got, err := s.GetMeal(ctx, "srv-m")
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "srv-i", got.Items[0].ID)
}

func TestDeleteMeal_CascadesToItems(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.PutMeal(ctx, &models.Meal{
		ID:       "m1",
		MealDate: "2026-08-29",
		Items:    []models.MealItem{{ID: "i1", MealID: "m1", FoodID: "f1"}},
	}))
	require.NoError(t, s.DeleteMeal(ctx, "m1"))

	_, err := s.GetMealItem(ctx, "i1")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestNutritionSummaries_KeyedByDate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.PutNutritionSummary(ctx, &models.NutritionSummary{
		Date: "2026-08-29", TotalCalories: 1800, TotalProtein: 140,
	}))
	require.NoError(t, s.PutNutritionSummary(ctx, &models.NutritionSummary{
		Date: "2026-08-29", TotalCalories: 2100, TotalProtein: 150,
	}))

	got, err := s.GetNutritionSummary(ctx, "2026-08-29")
	require.NoError(t, err)
	assert.Equal(t, 2100.0, got.TotalCalories, "same-day summary is overwritten, not duplicated")

	_, err = s.GetNutritionSummary(ctx, "2026-08-30")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}
