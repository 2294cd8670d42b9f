package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickSeconds int `yaml:"tick_seconds"`

	Hideout    Hideout    `yaml:"hideout"`
	Skills     Skills     `yaml:"skills"`
	Experience Experience `yaml:"experience"`
	Trading    Trading    `yaml:"trading"`
	Ragfair    Ragfair    `yaml:"ragfair"`
	RateLimits RateLimits `yaml:"rate_limits"`
}

type Hideout struct {
	// Resource drain per second. Fuel: 1 unit per ~12m38s -> 0.00131.
	GeneratorFuelFlowRate float64 `yaml:"generator_fuel_flow_rate"`
	// Air filter: 300 units over ~17h39m -> 0.004722.
	AirFilterFlowRate float64 `yaml:"air_filter_flow_rate"`
	// Water filter: 100 units over 8h20m -> 0.00333.
	WaterFilterFlowRate float64 `yaml:"water_filter_flow_rate"`

	// Progress multiplier applied to elapsed time while the generator is off.
	GeneratorSpeedWithoutFuel float64 `yaml:"generator_speed_without_fuel"`

	// Each GPU past the first divides coin craft time by 1+(n-1)*rate.
	GpuBoostRate float64 `yaml:"gpu_boost_rate"`

	// Hard floor for skill-adjusted craft times.
	MinCraftSeconds float64 `yaml:"min_craft_seconds"`
}

type Skills struct {
	// Multiplier applied to every skill point award.
	ProgressRate float64 `yaml:"progress_rate"`

	// Per-skill award multipliers, keyed by skill id.
	GainMultipliers map[string]float64 `yaml:"gain_multipliers"`

	CraftingTimeReductionPerLevel           float64 `yaml:"crafting_time_reduction_per_level"`
	HideoutManagementConsumptionPerLevel    float64 `yaml:"hideout_management_consumption_per_level"`
	EliteBitcoinFarmExtraSlots              int     `yaml:"elite_bitcoin_farm_extra_slots"`
}

type Experience struct {
	// XP needed to climb each level: entry 0 takes level 1 to 2, and so on.
	// A profile past the table's end stays at the final level.
	LevelTable []int `yaml:"level_table"`
}

type Trading struct {
	// Seconds between trader assortment refreshes; purchase counters reset
	// on refresh.
	RefreshSeconds int64 `yaml:"refresh_seconds"`
}

type Ragfair struct {
	OfferExpirySeconds int64   `yaml:"offer_expiry_seconds"`
	TaxRate            float64 `yaml:"tax_rate"`
	// Money template flea listings are priced in.
	CurrencyTpl string `yaml:"currency_tpl"`
}

type RateLimits struct {
	ActionsPerSecond float64 `yaml:"actions_per_second"`
	ActionBurst      int     `yaml:"action_burst"`
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.applyDefaults()
	return t, nil
}

func Defaults() Tuning {
	var t Tuning
	t.applyDefaults()
	return t
}

func (t *Tuning) applyDefaults() {
	if t.TickSeconds <= 0 {
		t.TickSeconds = 10
	}
	if t.Hideout.GeneratorFuelFlowRate == 0 {
		t.Hideout.GeneratorFuelFlowRate = 0.00131
	}
	if t.Hideout.AirFilterFlowRate == 0 {
		t.Hideout.AirFilterFlowRate = 0.004722
	}
	if t.Hideout.WaterFilterFlowRate == 0 {
		t.Hideout.WaterFilterFlowRate = 0.00333
	}
	if t.Hideout.GeneratorSpeedWithoutFuel == 0 {
		t.Hideout.GeneratorSpeedWithoutFuel = 0.15
	}
	if t.Hideout.GpuBoostRate == 0 {
		t.Hideout.GpuBoostRate = 0.041225
	}
	if t.Hideout.MinCraftSeconds == 0 {
		t.Hideout.MinCraftSeconds = 5
	}
	if t.Skills.ProgressRate == 0 {
		t.Skills.ProgressRate = 1
	}
	if t.Skills.CraftingTimeReductionPerLevel == 0 {
		t.Skills.CraftingTimeReductionPerLevel = 0.75
	}
	if t.Skills.HideoutManagementConsumptionPerLevel == 0 {
		t.Skills.HideoutManagementConsumptionPerLevel = 0.5
	}
	if t.Skills.EliteBitcoinFarmExtraSlots == 0 {
		t.Skills.EliteBitcoinFarmExtraSlots = 2
	}
	if len(t.Experience.LevelTable) == 0 {
		t.Experience.LevelTable = []int{
			1000, 3489, 5940, 8462, 11068, 13787, 16530, 19380, 22339, 25428,
			28657, 32060, 35591, 39241, 43070, 47062, 51267, 55623, 60135, 64823,
			69706, 74811, 80072, 85520, 91179, 97074, 103147, 109417, 115889, 122576,
		}
	}
	if t.Trading.RefreshSeconds == 0 {
		t.Trading.RefreshSeconds = 3600
	}
	if t.Ragfair.OfferExpirySeconds == 0 {
		t.Ragfair.OfferExpirySeconds = 86400
	}
	if t.Ragfair.TaxRate == 0 {
		t.Ragfair.TaxRate = 0.05
	}
	if t.Ragfair.CurrencyTpl == "" {
		t.Ragfair.CurrencyTpl = "roubles"
	}
	if t.RateLimits.ActionsPerSecond == 0 {
		t.RateLimits.ActionsPerSecond = 5
	}
	if t.RateLimits.ActionBurst == 0 {
		t.RateLimits.ActionBurst = 10
	}
}
