package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/faddenpatrick/ironledger/internal/common"
	"github.com/faddenpatrick/ironledger/internal/idgen"
	"github.com/faddenpatrick/ironledger/internal/logging"
	"github.com/faddenpatrick/ironledger/internal/models"
	"github.com/faddenpatrick/ironledger/internal/store"
)

// NutritionService is the repository for the nutrition entity family:
// meal categories, foods, meals, meal items and cached summaries.
type NutritionService struct {
	store  *store.Store
	api    API
	online OnlineFunc
	log    logging.Logger
}

func NewNutritionService(s *store.Store, api API, online OnlineFunc, log logging.Logger) *NutritionService {
	return &NutritionService{store: s, api: api, online: online, log: log}
}

// Meal categories

func (s *NutritionService) GetMealCategories(ctx context.Context) ([]models.MealCategory, error) {
	local, err := s.store.ListMealCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing local meal categories: %w", err)
	}

	if !s.online() {
		return local, nil
	}

	var categories []models.MealCategory
	if err := s.api.Get(ctx, "/nutrition/meal-categories", nil, &categories); err != nil {
		s.log.Warn(ctx, "meal category refresh failed, serving local snapshot", "error", err)
		return local, nil
	}
	if err := s.store.BulkPutMealCategories(ctx, categories); err != nil {
		return nil, fmt.Errorf("caching meal categories: %w", err)
	}
	return categories, nil
}

func (s *NutritionService) CreateMealCategory(ctx context.Context, req models.CreateMealCategoryRequest) (*models.MealCategory, error) {
	now := nowISO()
	category := &models.MealCategory{
		ID:           idgen.New(),
		Name:         req.Name,
		DisplayOrder: req.DisplayOrder,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.PutMealCategory(ctx, category); err != nil {
		return nil, fmt.Errorf("storing meal category: %w", err)
	}

	if s.online() {
		var confirmed models.MealCategory
		if err := s.api.Post(ctx, "/nutrition/meal-categories", req, &confirmed); err == nil {
			if err := s.store.ReplaceMealCategory(ctx, category.ID, &confirmed); err != nil {
				return nil, fmt.Errorf("replacing temp meal category: %w", err)
			}
			return &confirmed, nil
		} else {
			s.log.Warn(ctx, "meal category create failed, queueing", "error", err)
		}
	}

	if err := s.store.Enqueue(ctx, models.MethodPost, "/nutrition/meal-categories", req, "mealCategory", category.ID); err != nil {
		return nil, fmt.Errorf("queueing meal category create: %w", err)
	}
	return category, nil
}

func (s *NutritionService) UpdateMealCategory(ctx context.Context, id string, req models.UpdateMealCategoryRequest) (*models.MealCategory, error) {
	category, err := s.store.GetMealCategory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading meal category: %w", err)
	}
	if req.Name != nil {
		category.Name = *req.Name
	}
	if req.DisplayOrder != nil {
		category.DisplayOrder = *req.DisplayOrder
	}
	category.UpdatedAt = nowISO()
	if err := s.store.PutMealCategory(ctx, category); err != nil {
		return nil, fmt.Errorf("storing meal category: %w", err)
	}

	endpoint := "/nutrition/meal-categories/" + id
	if s.online() {
		var confirmed models.MealCategory
		if err := s.api.Put(ctx, endpoint, req, &confirmed); err == nil {
			if err := s.store.ReplaceMealCategory(ctx, id, &confirmed); err != nil {
				return nil, fmt.Errorf("replacing meal category: %w", err)
			}
			return &confirmed, nil
		} else {
			s.log.Warn(ctx, "meal category update failed, queueing", "id", id, "error", err)
		}
	}

	if err := s.store.Enqueue(ctx, models.MethodPut, endpoint, req, "mealCategory", id); err != nil {
		return nil, fmt.Errorf("queueing meal category update: %w", err)
	}
	return category, nil
}

func (s *NutritionService) DeleteMealCategory(ctx context.Context, id string) error {
	if err := s.store.DeleteMealCategory(ctx, id); err != nil {
		return fmt.Errorf("deleting local meal category: %w", err)
	}

	endpoint := "/nutrition/meal-categories/" + id
	if s.online() {
		if err := s.api.Delete(ctx, endpoint); err == nil {
			return nil
		} else {
			s.log.Warn(ctx, "meal category delete failed, queueing", "id", id, "error", err)
		}
	}
	return s.store.Enqueue(ctx, models.MethodDelete, endpoint, nil, "mealCategory", id)
}

// Foods

func (s *NutritionService) GetFoods(ctx context.Context, search string) ([]models.Food, error) {
	local, err := s.store.ListFoods(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("listing local foods: %w", err)
	}

	if !s.online() {
		return local, nil
	}

	params := url.Values{}
	if search != "" {
		params.Set("search", search)
	}
	var resp listResponse[models.Food]
	if err := s.api.Get(ctx, "/nutrition/foods", params, &resp); err != nil {
		s.log.Warn(ctx, "food refresh failed, serving local snapshot", "error", err)
		return local, nil
	}
	if err := s.store.BulkPutFoods(ctx, resp.Items); err != nil {
		return nil, fmt.Errorf("caching foods: %w", err)
	}
	return resp.Items, nil
}

// CreateFood follows the optimistic write path. It is also the sub-create
// used for third-party catalog foods (barcode scans): the food must exist
// in the custom collection before any meal item references it.
func (s *NutritionService) CreateFood(ctx context.Context, req models.CreateFoodRequest) (*models.Food, error) {
	now := nowISO()
	food := &models.Food{
		ID:          idgen.New(),
		Name:        req.Name,
		ServingSize: req.ServingSize,
		Calories:    req.Calories,
		Protein:     req.Protein,
		Carbs:       req.Carbs,
		Fat:         req.Fat,
		IsCustom:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.PutFood(ctx, food); err != nil {
		return nil, fmt.Errorf("storing food: %w", err)
	}

	if s.online() {
		var confirmed models.Food
		if err := s.api.Post(ctx, "/nutrition/foods", req, &confirmed); err == nil {
			if err := s.store.ReplaceFood(ctx, food.ID, &confirmed); err != nil {
				return nil, fmt.Errorf("replacing temp food: %w", err)
			}
			return &confirmed, nil
		} else {
			s.log.Warn(ctx, "food create failed, queueing", "error", err)
		}
	}

	if err := s.store.Enqueue(ctx, models.MethodPost, "/nutrition/foods", req, "food", food.ID); err != nil {
		return nil, fmt.Errorf("queueing food create: %w", err)
	}
	return food, nil
}

func (s *NutritionService) UpdateFood(ctx context.Context, id string, req models.UpdateFoodRequest) (*models.Food, error) {
	food, err := s.store.GetFood(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading food: %w", err)
	}
	if req.Name != nil {
		food.Name = *req.Name
	}
	if req.ServingSize != nil {
		food.ServingSize = *req.ServingSize
	}
	if req.Calories != nil {
		food.Calories = *req.Calories
	}
	if req.Protein != nil {
		food.Protein = *req.Protein
	}
	if req.Carbs != nil {
		food.Carbs = *req.Carbs
	}
	if req.Fat != nil {
		food.Fat = *req.Fat
	}
	food.UpdatedAt = nowISO()
	if err := s.store.PutFood(ctx, food); err != nil {
		return nil, fmt.Errorf("storing food: %w", err)
	}

	endpoint := "/nutrition/foods/" + id
	if s.online() {
		var confirmed models.Food
		if err := s.api.Put(ctx, endpoint, req, &confirmed); err == nil {
			if err := s.store.ReplaceFood(ctx, id, &confirmed); err != nil {
				return nil, fmt.Errorf("replacing food: %w", err)
			}
			return &confirmed, nil
		} else {
			s.log.Warn(ctx, "food update failed, queueing", "id", id, "error", err)
		}
	}

	if err := s.store.Enqueue(ctx, models.MethodPut, endpoint, req, "food", id); err != nil {
		return nil, fmt.Errorf("queueing food update: %w", err)
	}
	return food, nil
}

func (s *NutritionService) DeleteFood(ctx context.Context, id string) error {
	if err := s.store.DeleteFood(ctx, id); err != nil {
		return fmt.Errorf("deleting local food: %w", err)
	}

	endpoint := "/nutrition/foods/" + id
	if s.online() {
		if err := s.api.Delete(ctx, endpoint); err == nil {
			return nil
		} else {
			s.log.Warn(ctx, "food delete failed, queueing", "id", id, "error", err)
		}
	}
	return s.store.Enqueue(ctx, models.MethodDelete, endpoint, nil, "food", id)
}

// Meals

func (s *NutritionService) GetMeals(ctx context.Context, date string) ([]models.Meal, error) {
	local, err := s.store.ListMeals(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("listing local meals: %w", err)
	}

	if !s.online() {
		return local, nil
	}

	params := url.Values{}
	if date != "" {
		params.Set("meal_date", date)
	}
	var meals []models.Meal
	if err := s.api.Get(ctx, "/nutrition/meals", params, &meals); err != nil {
		s.log.Warn(ctx, "meal refresh failed, serving local snapshot", "error", err)
		return local, nil
	}
	if len(meals) > 0 {
		if err := s.store.BulkPutMeals(ctx, meals); err != nil {
			return nil, fmt.Errorf("caching meals: %w", err)
		}
	}
	return meals, nil
}

func (s *NutritionService) GetMeal(ctx context.Context, id string) (*models.Meal, error) {
	if s.online() {
		var meal models.Meal
		if err := s.api.Get(ctx, "/nutrition/meals/"+id, nil, &meal); err == nil {
			if err := s.store.ReplaceMeal(ctx, id, &meal); err != nil {
				return nil, fmt.Errorf("caching meal: %w", err)
			}
			return &meal, nil
		} else {
			s.log.Warn(ctx, "meal fetch failed, trying local", "id", id, "error", err)
		}
	}
	return s.store.GetMeal(ctx, id)
}

// CreateMeal synthesizes the aggregate with snapshot fields resolved
// best-effort from the locally cached catalog: the category name and each
// item's food name and per-serving macros. Server confirmation replaces
// the lot.
func (s *NutritionService) CreateMeal(ctx context.Context, req models.CreateMealRequest) (*models.Meal, error) {
	now := nowISO()
	meal := &models.Meal{
		ID:         idgen.New(),
		CategoryID: req.CategoryID,
		MealDate:   req.MealDate,
		MealTime:   req.MealTime,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if category, err := s.store.GetMealCategory(ctx, req.CategoryID); err == nil {
		meal.CategoryNameSnapshot = category.Name
	}
	for _, item := range req.Items {
		mealItem := models.MealItem{
			ID:        idgen.New(),
			MealID:    meal.ID,
			FoodID:    item.FoodID,
			Servings:  item.Servings,
			CreatedAt: now,
		}
		if food, err := s.store.GetFood(ctx, item.FoodID); err == nil {
			mealItem.FoodNameSnapshot = food.Name
			mealItem.CaloriesSnapshot = food.Calories
			mealItem.ProteinSnapshot = food.Protein
			mealItem.CarbsSnapshot = food.Carbs
			mealItem.FatSnapshot = food.Fat
		}
		meal.Items = append(meal.Items, mealItem)
	}

	if err := s.store.PutMeal(ctx, meal); err != nil {
		return nil, fmt.Errorf("storing meal: %w", err)
	}

	if s.online() {
		var confirmed models.Meal
		if err := s.api.Post(ctx, "/nutrition/meals", req, &confirmed); err == nil {
			if err := s.store.ReplaceMeal(ctx, meal.ID, &confirmed); err != nil {
				return nil, fmt.Errorf("replacing temp meal: %w", err)
			}
			return &confirmed, nil
		} else {
			s.log.Warn(ctx, "meal create failed, queueing", "error", err)
		}
	}

	if err := s.store.Enqueue(ctx, models.MethodPost, "/nutrition/meals", req, "meal", meal.ID); err != nil {
		return nil, fmt.Errorf("queueing meal create: %w", err)
	}
	return meal, nil
}

func (s *NutritionService) DeleteMeal(ctx context.Context, id string) error {
	if err := s.store.DeleteMeal(ctx, id); err != nil {
		return fmt.Errorf("deleting local meal: %w", err)
	}

	endpoint := "/nutrition/meals/" + id
	if s.online() {
		if err := s.api.Delete(ctx, endpoint); err == nil {
			return nil
		} else {
			s.log.Warn(ctx, "meal delete failed, queueing", "id", id, "error", err)
		}
	}
	return s.store.Enqueue(ctx, models.MethodDelete, endpoint, nil, "meal", id)
}

// Meal items

func (s *NutritionService) AddMealItem(ctx context.Context, mealID string, req models.CreateMealItemRequest) (*models.MealItem, error) {
	item := &models.MealItem{
		ID:        idgen.New(),
		MealID:    mealID,
		FoodID:    req.FoodID,
		Servings:  req.Servings,
		CreatedAt: nowISO(),
	}
	if food, err := s.store.GetFood(ctx, req.FoodID); err == nil {
		item.FoodNameSnapshot = food.Name
		item.CaloriesSnapshot = food.Calories
		item.ProteinSnapshot = food.Protein
		item.CarbsSnapshot = food.Carbs
		item.FatSnapshot = food.Fat
	}

	if err := s.store.PutMealItem(ctx, item); err != nil {
		return nil, fmt.Errorf("storing meal item: %w", err)
	}

	endpoint := "/nutrition/meals/" + mealID + "/items"
	if s.online() {
		var confirmed models.MealItem
		if err := s.api.Post(ctx, endpoint, req, &confirmed); err == nil {
			if err := s.store.DeleteMealItem(ctx, item.ID); err != nil {
				return nil, fmt.Errorf("removing temp meal item: %w", err)
			}
			if err := s.store.PutMealItem(ctx, &confirmed); err != nil {
				return nil, fmt.Errorf("storing confirmed meal item: %w", err)
			}
			return &confirmed, nil
		} else {
			s.log.Warn(ctx, "meal item create failed, queueing", "error", err)
		}
	}

	if err := s.store.Enqueue(ctx, models.MethodPost, endpoint, req, "mealItem", item.ID); err != nil {
		return nil, fmt.Errorf("queueing meal item create: %w", err)
	}
	return item, nil
}

func (s *NutritionService) UpdateMealItemServings(ctx context.Context, itemID string, servings float64) (*models.MealItem, error) {
	item, err := s.store.GetMealItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("loading meal item: %w", err)
	}
	item.Servings = servings
	if err := s.store.PutMealItem(ctx, item); err != nil {
		return nil, fmt.Errorf("storing meal item: %w", err)
	}

	endpoint := "/nutrition/meal-items/" + itemID
	body := map[string]float64{"servings": servings}
	if s.online() {
		if err := s.api.Patch(ctx, endpoint, body, nil); err == nil {
			return item, nil
		} else {
			s.log.Warn(ctx, "meal item update failed, queueing", "id", itemID, "error", err)
		}
	}

	if err := s.store.Enqueue(ctx, models.MethodPatch, endpoint, body, "mealItem", itemID); err != nil {
		return nil, fmt.Errorf("queueing meal item update: %w", err)
	}
	return item, nil
}

func (s *NutritionService) DeleteMealItem(ctx context.Context, itemID string) error {
	if err := s.store.DeleteMealItem(ctx, itemID); err != nil {
		return fmt.Errorf("deleting local meal item: %w", err)
	}

	endpoint := "/nutrition/meal-items/" + itemID
	if s.online() {
		if err := s.api.Delete(ctx, endpoint); err == nil {
			return nil
		} else {
			s.log.Warn(ctx, "meal item delete failed, queueing", "id", itemID, "error", err)
		}
	}
	return s.store.Enqueue(ctx, models.MethodDelete, endpoint, nil, "mealItem", itemID)
}

// LogScannedFood persists a third-party catalog food (e.g. a barcode scan)
// as a custom food and then logs it against the meal. The food create is
// sequenced strictly ahead of the dependent meal item: online it completes
// first, offline it occupies the earlier queue slot.
func (s *NutritionService) LogScannedFood(ctx context.Context, mealID string, req models.CreateFoodRequest, servings float64) (*models.MealItem, error) {
	food, err := s.CreateFood(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("creating scanned food: %w", err)
	}
	return s.AddMealItem(ctx, mealID, models.CreateMealItemRequest{FoodID: food.ID, Servings: servings})
}

// CopyMeal is an online-only server-side derivation.
func (s *NutritionService) CopyMeal(ctx context.Context, mealID, newDate, newTime string) (*models.Meal, error) {
	req := models.CopyMealRequest{MealDate: newDate, MealTime: newTime}
	var meal models.Meal
	if err := s.api.Post(ctx, "/nutrition/meals/"+mealID+"/copy", req, &meal); err != nil {
		return nil, err
	}
	if err := s.store.PutMeal(ctx, &meal); err != nil {
		return nil, fmt.Errorf("caching copied meal: %w", err)
	}
	return &meal, nil
}

// Summaries

// GetNutritionSummary prefers the freshest server value, falls back to the
// local cache, and fails only when neither is available.
func (s *NutritionService) GetNutritionSummary(ctx context.Context, date string) (*models.NutritionSummary, error) {
	cached, cacheErr := s.store.GetNutritionSummary(ctx, date)

	if s.online() {
		params := url.Values{}
		params.Set("summary_date", date)
		var summary models.NutritionSummary
		if err := s.api.Get(ctx, "/nutrition/summary", params, &summary); err == nil {
			summary.Date = date
			if err := s.store.PutNutritionSummary(ctx, &summary); err != nil {
				return nil, fmt.Errorf("caching nutrition summary: %w", err)
			}
			return &summary, nil
		} else {
			s.log.Warn(ctx, "nutrition summary fetch failed", "date", date, "error", err)
		}
	}

	if cached != nil {
		return cached, nil
	}
	if cacheErr != nil && !isNotFound(cacheErr) {
		return nil, cacheErr
	}
	return nil, fmt.Errorf("nutrition summary for %s: %w", date, common.ErrOffline)
}

// GetWeeklySummary is an online-only aggregate with no local mirror.
func (s *NutritionService) GetWeeklySummary(ctx context.Context, endDate string) (*models.WeeklySummary, error) {
	if !s.online() {
		return nil, common.ErrOffline
	}
	params := url.Values{}
	params.Set("end_date", endDate)
	var summary models.WeeklySummary
	if err := s.api.Get(ctx, "/nutrition/weekly-average", params, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}
