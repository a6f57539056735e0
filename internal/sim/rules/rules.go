package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefenseNone is the defense tag used when no valid defense item is armed.
const DefenseNone = "none"

// Catalog is the read-only rule set a shard consults: combat constants and
// the recipe table. Loaded once at startup; never mutated afterwards.
type Catalog struct {
	Combat  CombatConfig
	Recipes RecipeCatalog
}

type CombatConfig struct {
	Requires   Requires                 `json:"requires"`
	BaseDamage float64                  `json:"base_damage"`
	Items      map[string]CombatItem    `json:"items"`
	Opposition map[string]OppositionRow `json:"opposition"`

	Digest string `json:"-"`
}

type Requires struct {
	AttackPower  bool `json:"attack_power"`
	DefensePower bool `json:"defense_power"`
}

type CombatItem struct {
	Attack  string  `json:"attack,omitempty"`
	Defense string  `json:"defense,omitempty"`
	Damage  float64 `json:"damage,omitempty"`
}

type OppositionRow struct {
	Vs map[string]float64 `json:"vs"`
}

type RecipeCatalog struct {
	ByOutput map[string]RecipeDef
	Digest   string
}

type RecipeDef struct {
	Output string         `json:"output"`
	Inputs map[string]int `json:"inputs"`
}

func Load(configDir string) (*Catalog, error) {
	var c Catalog
	if err := loadCombat(filepath.Join(configDir, "combat.json"), &c.Combat); err != nil {
		return nil, err
	}
	if err := loadRecipes(filepath.Join(configDir, "recipes.json"), &c.Recipes); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadCombat(path string, out *CombatConfig) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("combat.json: %w", err)
	}
	if out.BaseDamage <= 0 {
		out.BaseDamage = 1
	}
	out.Digest = sha256Hex(raw)
	return nil
}

func loadRecipes(path string, out *RecipeCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []RecipeDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("recipes.json: %w", err)
	}
	out.ByOutput = map[string]RecipeDef{}
	for _, r := range defs {
		if r.Output == "" {
			return fmt.Errorf("recipes.json: empty output")
		}
		if len(r.Inputs) == 0 {
			return fmt.Errorf("recipes.json: recipe %s has no inputs", r.Output)
		}
		for item, n := range r.Inputs {
			if item == "" || n <= 0 {
				return fmt.Errorf("recipes.json: recipe %s has bad input %q:%d", r.Output, item, n)
			}
		}
		out.ByOutput[r.Output] = r
	}
	return nil
}

// Recipe returns the recipe producing one unit of output, if any.
func (c *Catalog) Recipe(output string) (RecipeDef, bool) {
	r, ok := c.Recipes.ByOutput[output]
	return r, ok
}

// AttackTag returns the attack tag declared for an item, if any.
func (c *Catalog) AttackTag(item string) (string, bool) {
	info, ok := c.Combat.Items[item]
	if !ok || info.Attack == "" {
		return "", false
	}
	return info.Attack, true
}

// DefenseTag returns an item's defense tag, or DefenseNone when the item is
// empty, unknown, or declares no defense.
func (c *Catalog) DefenseTag(item string) string {
	if item == "" {
		return DefenseNone
	}
	info, ok := c.Combat.Items[item]
	if !ok || info.Defense == "" {
		return DefenseNone
	}
	return info.Defense
}

// BaseDamage returns the item's damage, falling back to the global base.
func (c *Catalog) BaseDamage(item string) float64 {
	if info, ok := c.Combat.Items[item]; ok && info.Damage > 0 {
		return info.Damage
	}
	return c.Combat.BaseDamage
}

// OppositionMult looks up the damage multiplier for an (attack, defense) tag
// pair; absent entries default to 1.0.
func (c *Catalog) OppositionMult(attackTag, defenseTag string) float64 {
	row, ok := c.Combat.Opposition[attackTag]
	if !ok || row.Vs == nil {
		return 1.0
	}
	m, ok := row.Vs[defenseTag]
	if !ok {
		return 1.0
	}
	return m
}
