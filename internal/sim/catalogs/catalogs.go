package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"driftbase.gg/internal/sim/item"
)

// Hideout area types. Values match the client's area enum.
const (
	AreaLavatory         = 2
	AreaGenerator        = 4
	AreaWaterCollector   = 6
	AreaScavCase         = 14
	AreaPlaceOfFame      = 16
	AreaAirFilteringUnit = 17
	AreaBitcoinFarm      = 20
	AreaCircleOfCultists = 27
)

// Item base classes the reward/trade paths care about.
const (
	ClassAmmo  = "AMMO"
	ClassMoney = "MONEY"
)

type Catalogs struct {
	Recipes RecipeCatalog
	Areas   AreaCatalog
	Items   ItemCatalog
	Traders TraderCatalog
}

type RecipeCatalog struct {
	ByID   map[string]RecipeDef
	Digest string
}

type RecipeDef struct {
	ID          string  `json:"id"`
	AreaType    int     `json:"area_type"`
	EndProduct  string  `json:"end_product"`
	Count       int     `json:"count"`
	// Seconds to complete one unit of output, before skill adjustments.
	ProductionTime float64 `json:"production_time"`
	Continuous     bool    `json:"continuous,omitempty"`
	// Craft only advances while the generator is powered.
	NeedFuelForAllProductionTime bool `json:"need_fuel_for_all_production_time,omitempty"`
	// Output slot capacity for continuous recipes.
	ProductionLimitCount int           `json:"production_limit_count,omitempty"`
	Requirements         []Requirement `json:"requirements,omitempty"`
}

type Requirement struct {
	Type          string `json:"type"`
	QuestID       string `json:"quest_id,omitempty"`
	RequiredLevel int    `json:"required_level,omitempty"`
}

type AreaCatalog struct {
	ByType map[int]AreaDef
	Digest string
}

type AreaDef struct {
	Type      int    `json:"type"`
	Name      string `json:"name"`
	// Progress in this area is slowed when the generator is off.
	NeedsFuel bool `json:"needs_fuel,omitempty"`
	SlotCount int  `json:"slot_count,omitempty"`
}

type ItemCatalog struct {
	Defs   map[string]ItemDef
	Digest string
}

type ItemDef struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	MaxStackSize int      `json:"max_stack_size"`
	MaxResource  float64  `json:"max_resource,omitempty"`
	// Handbook value; what traders pay per unit when buying from players.
	BasePrice int `json:"base_price,omitempty"`
	BaseClasses  []string `json:"base_classes,omitempty"`
	CanSellOnRagfair bool `json:"can_sell_on_ragfair,omitempty"`
}

func (d ItemDef) IsOfBaseClass(classes ...string) bool {
	for _, want := range classes {
		for _, have := range d.BaseClasses {
			if have == want {
				return true
			}
		}
	}
	return false
}

type TraderCatalog struct {
	ByID   map[string]TraderDef
	Digest string
}

type TraderDef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Money template the trader deals in.
	Currency string `json:"currency"`
	// The special vendor accepts sold items back into its own assortment.
	SpecialVendor bool `json:"special_vendor,omitempty"`
	// Assortment template: root items with children; root Upd carries stock
	// and buy-restriction values. Copied into runtime state on each refresh.
	Assort []item.Item `json:"assort"`
	// Unit price per assort root item id, in the trader's currency.
	Prices map[string]int `json:"prices"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadRecipes(filepath.Join(configDir, "recipes.json"), &c.Recipes); err != nil {
		return nil, err
	}
	if err := loadAreas(filepath.Join(configDir, "areas.json"), &c.Areas); err != nil {
		return nil, err
	}
	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	if err := loadTraders(filepath.Join(configDir, "traders.json"), &c.Traders); err != nil {
		return nil, err
	}

	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
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
	out.ByID = map[string]RecipeDef{}
	for _, r := range defs {
		if r.ID == "" {
			return fmt.Errorf("recipes.json: empty id")
		}
		out.ByID[r.ID] = r
	}
	return nil
}

func loadAreas(path string, out *AreaCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []AreaDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("areas.json: %w", err)
	}
	out.ByType = map[int]AreaDef{}
	for _, a := range defs {
		if a.Name == "" {
			return fmt.Errorf("areas.json: area %d: empty name", a.Type)
		}
		out.ByType[a.Type] = a
	}
	return nil
}

func loadItems(path string, out *ItemCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	out.Defs = map[string]ItemDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("items.json: empty id")
		}
		if d.MaxStackSize <= 0 {
			d.MaxStackSize = 1
		}
		out.Defs[d.ID] = d
	}
	return nil
}

func loadTraders(path string, out *TraderCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []TraderDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("traders.json: %w", err)
	}
	out.ByID = map[string]TraderDef{}
	for _, t := range defs {
		if t.ID == "" {
			return fmt.Errorf("traders.json: empty id")
		}
		out.ByID[t.ID] = t
	}
	return nil
}
