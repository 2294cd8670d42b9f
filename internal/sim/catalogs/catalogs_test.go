package catalogs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	c, err := Load("../../../configs")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if c.Recipes.Digest == "" || c.Areas.Digest == "" ||
		c.Items.Digest == "" || c.Traders.Digest == "" {
		t.Fatalf("empty digest after load")
	}

	btc, ok := c.Recipes.ByID["craft_bitcoin"]
	if !ok {
		t.Fatalf("coin recipe missing")
	}
	if !btc.Continuous || btc.AreaType != AreaBitcoinFarm {
		t.Fatalf("coin recipe: got continuous=%v area=%d", btc.Continuous, btc.AreaType)
	}
	if btc.ProductionLimitCount != 3 {
		t.Fatalf("coin slots: got %d want 3", btc.ProductionLimitCount)
	}

	gen, ok := c.Areas.ByType[AreaGenerator]
	if !ok {
		t.Fatalf("generator area missing")
	}
	if gen.NeedsFuel {
		t.Fatalf("generator marked fuel-dependent on itself")
	}
	if lav := c.Areas.ByType[AreaLavatory]; !lav.NeedsFuel {
		t.Fatalf("lavatory not fuel-dependent")
	}

	fuel, ok := c.Items.Defs["expeditionary_fuel"]
	if !ok {
		t.Fatalf("fuel item missing")
	}
	if fuel.MaxResource != 60 {
		t.Fatalf("fuel capacity: got %v want 60", fuel.MaxResource)
	}
	// Unset stack size backfills to 1.
	if fuel.MaxStackSize != 1 {
		t.Fatalf("fuel stack size: got %d want 1", fuel.MaxStackSize)
	}

	supplier, ok := c.Traders.ByID["supplier"]
	if !ok {
		t.Fatalf("supplier missing")
	}
	if supplier.Currency != "roubles" {
		t.Fatalf("supplier currency: got %q", supplier.Currency)
	}
	if supplier.Prices["assort_ammo_556"] != 350 {
		t.Fatalf("ammo price: got %d want 350", supplier.Prices["assort_ammo_556"])
	}
}

func TestIsOfBaseClass(t *testing.T) {
	d := ItemDef{BaseClasses: []string{"AMMO"}}
	if !d.IsOfBaseClass(ClassAmmo) {
		t.Fatalf("ammo class not matched")
	}
	if !d.IsOfBaseClass(ClassMoney, ClassAmmo) {
		t.Fatalf("multi-class match failed")
	}
	if d.IsOfBaseClass(ClassMoney) {
		t.Fatalf("money matched on ammo item")
	}
	if (ItemDef{}).IsOfBaseClass(ClassAmmo) {
		t.Fatalf("classless item matched")
	}
}

func TestLoad_MissingDir(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("missing config dir accepted")
	}
}

func TestLoad_RejectsEmptyIDs(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"recipes.json": `[{"id":"","area_type":2}]`,
		"areas.json":   `[{"type":2,"name":"Lavatory"}]`,
		"items.json":   `[{"id":"soap","name":"Soap"}]`,
		"traders.json": `[]`,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if _, err := Load(dir); err == nil {
		t.Fatalf("empty recipe id accepted")
	}
}
