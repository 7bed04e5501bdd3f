package cipher

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// RecipeManager stores named pipelines in memory and, when a store path is
// set, as one JSON file per recipe.
type RecipeManager struct {
	recipes   map[string]*Recipe
	storePath string
	mu        sync.RWMutex
	now       func() time.Time
}

// NewRecipeManager creates a new recipe manager
func NewRecipeManager(storePath string) *RecipeManager {
	return &RecipeManager{
		recipes:   make(map[string]*Recipe),
		storePath: storePath,
		now:       time.Now,
	}
}

// SaveRecipe stores a recipe, assigning an ID on first save
func (rm *RecipeManager) SaveRecipe(recipe *Recipe) error {
	if recipe == nil || recipe.Name == "" {
		return fmt.Errorf("recipe name cannot be empty")
	}
	if len(recipe.Pipeline.Operations) == 0 {
		return fmt.Errorf("recipe %s has no operations", recipe.Name)
	}
	for _, step := range recipe.Pipeline.Operations {
		if _, ok := GetOperation(step.Name); !ok {
			return fmt.Errorf("recipe %s uses unknown operation %s", recipe.Name, step.Name)
		}
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	now := rm.now().UTC()
	if recipe.ID == "" {
		recipe.ID = ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
	}
	stamp := now.Format(time.RFC3339)
	if recipe.CreatedAt == "" {
		recipe.CreatedAt = stamp
	}
	recipe.UpdatedAt = stamp

	rm.recipes[recipe.Name] = recipe

	if rm.storePath != "" {
		return rm.persistRecipe(recipe)
	}
	return nil
}

// GetRecipe retrieves a recipe by name
func (rm *RecipeManager) GetRecipe(name string) (*Recipe, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	recipe, exists := rm.recipes[name]
	return recipe, exists
}

// ListRecipes returns all recipes sorted by name
func (rm *RecipeManager) ListRecipes() []*Recipe {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	recipes := make([]*Recipe, 0, len(rm.recipes))
	for _, recipe := range rm.recipes {
		recipes = append(recipes, recipe)
	}
	sort.Slice(recipes, func(i, j int) bool { return recipes[i].Name < recipes[j].Name })
	return recipes
}

// DeleteRecipe removes a recipe and its file
func (rm *RecipeManager) DeleteRecipe(name string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	delete(rm.recipes, name)

	if rm.storePath != "" {
		recipePath := filepath.Join(rm.storePath, sanitizeFilename(name)+".json")
		if err := os.Remove(recipePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete recipe file: %w", err)
		}
	}
	return nil
}

// LoadRecipes reads every *.json recipe under the store path
func (rm *RecipeManager) LoadRecipes() error {
	if rm.storePath == "" {
		return nil
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if err := os.MkdirAll(rm.storePath, 0o755); err != nil {
		return fmt.Errorf("failed to create recipes directory: %w", err)
	}

	entries, err := os.ReadDir(rm.storePath)
	if err != nil {
		return fmt.Errorf("failed to read recipes directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(rm.storePath, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read recipe %s: %w", entry.Name(), err)
		}

		var recipe Recipe
		if err := json.Unmarshal(data, &recipe); err != nil {
			return fmt.Errorf("failed to parse recipe %s: %w", entry.Name(), err)
		}
		if recipe.ID != "" {
			if _, err := ulid.ParseStrict(recipe.ID); err != nil {
				return fmt.Errorf("recipe %s has malformed id %q: %w", entry.Name(), recipe.ID, err)
			}
		}

		rm.recipes[recipe.Name] = &recipe
	}
	return nil
}

func (rm *RecipeManager) persistRecipe(recipe *Recipe) error {
	if err := os.MkdirAll(rm.storePath, 0o755); err != nil {
		return fmt.Errorf("failed to create recipes directory: %w", err)
	}

	data, err := json.MarshalIndent(recipe, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize recipe: %w", err)
	}

	recipePath := filepath.Join(rm.storePath, sanitizeFilename(recipe.Name)+".json")
	if err := os.WriteFile(recipePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write recipe file: %w", err)
	}
	return nil
}

// sanitizeFilename keeps letters, digits, '-' and '_', mapping spaces to '_'
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "recipe"
	}
	return b.String()
}

// SearchRecipes finds recipes whose name, description or tags contain query,
// ignoring case.
func (rm *RecipeManager) SearchRecipes(query string) []*Recipe {
	q := strings.ToLower(query)
	matches := func(s string) bool { return strings.Contains(strings.ToLower(s), q) }

	results := make([]*Recipe, 0)
	for _, recipe := range rm.ListRecipes() {
		if matches(recipe.Name) || matches(recipe.Description) {
			results = append(results, recipe)
			continue
		}
		for _, tag := range recipe.Tags {
			if matches(tag) {
				results = append(results, recipe)
				break
			}
		}
	}
	return results
}
