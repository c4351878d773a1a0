package models

type MealCategory struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	Name         string `json:"name"`
	DisplayOrder int    `json:"display_order"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

type Food struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	ServingSize string  `json:"serving_size"`
	Calories    float64 `json:"calories"`
	Protein     float64 `json:"protein"`
	Carbs       float64 `json:"carbs"`
	Fat         float64 `json:"fat"`
	IsCustom    bool    `json:"is_custom"`
	UserID      *string `json:"user_id"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// MealItem freezes the referenced food's display values at logging time.
// The *_snapshot fields never track later edits of the food.
type MealItem struct {
	ID               string  `json:"id"`
	MealID           string  `json:"meal_id"`
	FoodID           string  `json:"food_id"`
	FoodNameSnapshot string  `json:"food_name_snapshot"`
	CaloriesSnapshot float64 `json:"calories_snapshot"`
	ProteinSnapshot  float64 `json:"protein_snapshot"`
	CarbsSnapshot    float64 `json:"carbs_snapshot"`
	FatSnapshot      float64 `json:"fat_snapshot"`
	Servings         float64 `json:"servings"`
	CreatedAt        string  `json:"created_at"`
}

type Meal struct {
	ID                   string     `json:"id"`
	UserID               string     `json:"user_id"`
	CategoryID           string     `json:"category_id"`
	CategoryNameSnapshot string     `json:"category_name_snapshot"`
	MealDate             string     `json:"meal_date"`
	MealTime             string     `json:"meal_time"`
	CreatedAt            string     `json:"created_at"`
	UpdatedAt            string     `json:"updated_at"`
	Items                []MealItem `json:"items,omitempty"`
}

type NutritionSummary struct {
	Date           string   `json:"date"`
	IsCheatDay     bool     `json:"is_cheat_day"`
	TotalCalories  float64  `json:"total_calories"`
	TotalProtein   float64  `json:"total_protein"`
	TotalCarbs     float64  `json:"total_carbs"`
	TotalFat       float64  `json:"total_fat"`
	TargetCalories *float64 `json:"target_calories"`
	TargetProtein  *float64 `json:"target_protein"`
	TargetCarbs    *float64 `json:"target_carbs"`
	TargetFat      *float64 `json:"target_fat"`
}

type WeeklySummary struct {
	StartDate      string   `json:"start_date"`
	EndDate        string   `json:"end_date"`
	DaysWithData   int      `json:"days_with_data"`
	CheatDayCount  int      `json:"cheat_day_count"`
	CheatDates     []string `json:"cheat_dates"`
	AvgCalories    float64  `json:"avg_calories"`
	AvgProtein     float64  `json:"avg_protein"`
	AvgCarbs       float64  `json:"avg_carbs"`
	AvgFat         float64  `json:"avg_fat"`
	TargetCalories *float64 `json:"target_calories"`
	TargetProtein  *float64 `json:"target_protein"`
	TargetCarbs    *float64 `json:"target_carbs"`
	TargetFat      *float64 `json:"target_fat"`
}

// Request DTOs.

type CreateMealCategoryRequest struct {
	Name         string `json:"name"`
	DisplayOrder int    `json:"display_order,omitempty"`
}

type UpdateMealCategoryRequest struct {
	Name         *string `json:"name,omitempty"`
	DisplayOrder *int    `json:"display_order,omitempty"`
}

type CreateFoodRequest struct {
	Name        string  `json:"name"`
	ServingSize string  `json:"serving_size"`
	Calories    float64 `json:"calories"`
	Protein     float64 `json:"protein"`
	Carbs       float64 `json:"carbs"`
	Fat         float64 `json:"fat"`
}

type UpdateFoodRequest struct {
	Name        *string  `json:"name,omitempty"`
	ServingSize *string  `json:"serving_size,omitempty"`
	Calories    *float64 `json:"calories,omitempty"`
	Protein     *float64 `json:"protein,omitempty"`
	Carbs       *float64 `json:"carbs,omitempty"`
	Fat         *float64 `json:"fat,omitempty"`
}

type CreateMealItemRequest struct {
	FoodID   string  `json:"food_id"`
	Servings float64 `json:"servings"`
}

type CreateMealRequest struct {
	CategoryID string                  `json:"category_id"`
	MealDate   string                  `json:"meal_date"`
	MealTime   string                  `json:"meal_time"`
	Items      []CreateMealItemRequest `json:"items"`
}

type CopyMealRequest struct {
	MealDate string `json:"meal_date"`
	MealTime string `json:"meal_time"`
}
