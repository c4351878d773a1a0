package store

import (
	"context"
	"fmt"

	"github.com/faddenpatrick/ironledger/internal/dbx"
	"github.com/faddenpatrick/ironledger/internal/models"
)

// Meal categories

func (s *Store) GetMealCategory(ctx context.Context, id string) (*models.MealCategory, error) {
	return getDoc[models.MealCategory](ctx, s.db, `SELECT doc FROM meal_categories WHERE id = ?`, id)
}

func (s *Store) ListMealCategories(ctx context.Context) ([]models.MealCategory, error) {
	return listDocs[models.MealCategory](ctx, s.db,
		`SELECT doc FROM meal_categories ORDER BY display_order, name`)
}

func putMealCategory(ctx context.Context, db dbx.DBTX, c *models.MealCategory) error {
	doc, err := marshalDoc(c)
	if err != nil {
		return err
	}
	query := `INSERT INTO meal_categories (id, user_id, name, display_order, doc)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id,
			name = excluded.name,
			display_order = excluded.display_order,
			doc = excluded.doc
	`
	if _, err := db.ExecContext(ctx, query, c.ID, c.UserID, c.Name, c.DisplayOrder, doc); err != nil {
		return fmt.Errorf("failed to upsert meal category: %w", err)
	}
	return nil
}

func (s *Store) PutMealCategory(ctx context.Context, c *models.MealCategory) error {
	return putMealCategory(ctx, s.db, c)
}

func (s *Store) ReplaceMealCategory(ctx context.Context, oldID string, c *models.MealCategory) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM meal_categories WHERE id = ?`, oldID); err != nil {
			return fmt.Errorf("failed to delete meal category %s: %w", oldID, err)
		}
		return putMealCategory(ctx, tx, c)
	})
}

func (s *Store) BulkPutMealCategories(ctx context.Context, categories []models.MealCategory) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for i := range categories {
			if err := putMealCategory(ctx, tx, &categories[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) DeleteMealCategory(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM meal_categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete meal category: %w", err)
	}
	return nil
}

// Foods

func (s *Store) GetFood(ctx context.Context, id string) (*models.Food, error) {
	return getDoc[models.Food](ctx, s.db, `SELECT doc FROM foods WHERE id = ?`, id)
}

// ListFoods matches search as a case-insensitive substring of the name;
// empty search lists everything.
func (s *Store) ListFoods(ctx context.Context, search string) ([]models.Food, error) {
	if search == "" {
		return listDocs[models.Food](ctx, s.db, `SELECT doc FROM foods ORDER BY name`)
	}
	return listDocs[models.Food](ctx, s.db,
		`SELECT doc FROM foods WHERE instr(lower(name), lower(?)) > 0 ORDER BY name`, search)
}

func putFood(ctx context.Context, db dbx.DBTX, f *models.Food) error {
	doc, err := marshalDoc(f)
	if err != nil {
		return err
	}
	query := `INSERT INTO foods (id, name, is_custom, user_id, doc)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name,
			is_custom = excluded.is_custom,
			user_id = excluded.user_id,
			doc = excluded.doc
	`
	if _, err := db.ExecContext(ctx, query, f.ID, f.Name, f.IsCustom, f.UserID, doc); err != nil {
		return fmt.Errorf("failed to upsert food: %w", err)
	}
	return nil
}

func (s *Store) PutFood(ctx context.Context, f *models.Food) error {
	return putFood(ctx, s.db, f)
}

func (s *Store) ReplaceFood(ctx context.Context, oldID string, f *models.Food) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM foods WHERE id = ?`, oldID); err != nil {
			return fmt.Errorf("failed to delete food %s: %w", oldID, err)
		}
		return putFood(ctx, tx, f)
	})
}

func (s *Store) BulkPutFoods(ctx context.Context, foods []models.Food) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for i := range foods {
			if err := putFood(ctx, tx, &foods[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) DeleteFood(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM foods WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete food: %w", err)
	}
	return nil
}

// Meals

func (s *Store) GetMeal(ctx context.Context, id string) (*models.Meal, error) {
	m, err := getDoc[models.Meal](ctx, s.db, `SELECT doc FROM meals WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	items, err := s.ListMealItemsByMeal(ctx, id)
	if err != nil {
		return nil, err
	}
	m.Items = items
	return m, nil
}

// ListMeals returns meals for date (all dates when empty), ordered by
// meal_time. Items are not loaded.
func (s *Store) ListMeals(ctx context.Context, date string) ([]models.Meal, error) {
	if date == "" {
		return listDocs[models.Meal](ctx, s.db, `SELECT doc FROM meals ORDER BY meal_date, meal_time`)
	}
	return listDocs[models.Meal](ctx, s.db,
		`SELECT doc FROM meals WHERE meal_date = ? ORDER BY meal_time`, date)
}

func putMeal(ctx context.Context, db dbx.DBTX, m *models.Meal) error {
	doc, err := marshalDoc(m)
	if err != nil {
		return err
	}
	query := `INSERT INTO meals (id, user_id, category_id, meal_date, meal_time, doc)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id,
			category_id = excluded.category_id,
			meal_date = excluded.meal_date,
			meal_time = excluded.meal_time,
			doc = excluded.doc
	`
	if _, err := db.ExecContext(ctx, query, m.ID, m.UserID, m.CategoryID, m.MealDate, m.MealTime, doc); err != nil {
		return fmt.Errorf("failed to upsert meal: %w", err)
	}
	return nil
}

// PutMeal stores the meal and its items atomically.
func (s *Store) PutMeal(ctx context.Context, m *models.Meal) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := putMeal(ctx, tx, m); err != nil {
			return err
		}
		for i := range m.Items {
			if err := putMealItem(ctx, tx, &m.Items[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceMeal swaps the temp-id meal aggregate (meal plus nested items) for
// the server-confirmed one in a single transaction.
func (s *Store) ReplaceMeal(ctx context.Context, oldID string, m *models.Meal) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM meal_items WHERE meal_id = ?`, oldID); err != nil {
			return fmt.Errorf("failed to delete items of meal %s: %w", oldID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM meals WHERE id = ?`, oldID); err != nil {
			return fmt.Errorf("failed to delete meal %s: %w", oldID, err)
		}
		if err := putMeal(ctx, tx, m); err != nil {
			return err
		}
		for i := range m.Items {
			if err := putMealItem(ctx, tx, &m.Items[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) BulkPutMeals(ctx context.Context, meals []models.Meal) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for i := range meals {
			if err := putMeal(ctx, tx, &meals[i]); err != nil {
				return err
			}
			for j := range meals[i].Items {
				if err := putMealItem(ctx, tx, &meals[i].Items[j]); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *Store) DeleteMeal(ctx context.Context, id string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM meal_items WHERE meal_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete meal items: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM meals WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete meal: %w", err)
		}
		return nil
	})
}

// Meal items

func (s *Store) GetMealItem(ctx context.Context, id string) (*models.MealItem, error) {
	return getDoc[models.MealItem](ctx, s.db, `SELECT doc FROM meal_items WHERE id = ?`, id)
}

func (s *Store) ListMealItemsByMeal(ctx context.Context, mealID string) ([]models.MealItem, error) {
	return listDocs[models.MealItem](ctx, s.db,
		`SELECT doc FROM meal_items WHERE meal_id = ? ORDER BY created_at`, mealID)
}

func putMealItem(ctx context.Context, db dbx.DBTX, item *models.MealItem) error {
	doc, err := marshalDoc(item)
	if err != nil {
		return err
	}
	query := `INSERT INTO meal_items (id, meal_id, food_id, created_at, doc)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET meal_id = excluded.meal_id,
			food_id = excluded.food_id,
			created_at = excluded.created_at,
			doc = excluded.doc
	`
	if _, err := db.ExecContext(ctx, query, item.ID, item.MealID, item.FoodID, item.CreatedAt, doc); err != nil {
		return fmt.Errorf("failed to upsert meal item: %w", err)
	}
	return nil
}

func (s *Store) PutMealItem(ctx context.Context, item *models.MealItem) error {
	return putMealItem(ctx, s.db, item)
}

func (s *Store) DeleteMealItem(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM meal_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete meal item: %w", err)
	}
	return nil
}

// Nutrition summaries (cached server aggregates, keyed by date)

func (s *Store) GetNutritionSummary(ctx context.Context, date string) (*models.NutritionSummary, error) {
	return getDoc[models.NutritionSummary](ctx, s.db,
		`SELECT doc FROM nutrition_summaries WHERE date = ?`, date)
}

func (s *Store) PutNutritionSummary(ctx context.Context, summary *models.NutritionSummary) error {
	doc, err := marshalDoc(summary)
	if err != nil {
		return err
	}
	query := `INSERT INTO nutrition_summaries (date, doc)
		VALUES (?, ?)
		ON CONFLICT(date) DO UPDATE SET doc = excluded.doc
	`
	if _, err := s.db.ExecContext(ctx, query, summary.Date, doc); err != nil {
		return fmt.Errorf("failed to upsert nutrition summary: %w", err)
	}
	return nil
}
