package variant

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skyblock-price-lab/internal/domain"
)

func newTestGenerator(cfg Config) (*Generator, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewGenerator(cfg, log.New(&buf, "", 0)), &buf
}

func TestGenerate_NilWithoutCanonicalID(t *testing.T) {
	g, _ := newTestGenerator(DefaultConfig())

	assert.Nil(t, g.Generate(nil, "RARE"))
	assert.Nil(t, g.Generate(&domain.DecodedItem{}, "RARE"))
	assert.Nil(t, g.Generate(&domain.DecodedItem{CanonicalID: "  "}, "RARE"))
}

func TestGenerate_RarityToken(t *testing.T) {
	g, _ := newTestGenerator(DefaultConfig())

	key := g.Generate(&domain.DecodedItem{CanonicalID: "HYPERION"}, "legendary")
	require.NotNil(t, key)
	assert.Equal(t, "LEGENDARY", *key)
}

func TestGenerate_IgnoreRarity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IgnoreRarity = []string{"ENCHANTED_DIAMOND"}
	g, _ := newTestGenerator(cfg)

	key := g.Generate(&domain.DecodedItem{CanonicalID: "ENCHANTED_DIAMOND"}, "UNCOMMON")
	require.NotNil(t, key)
	assert.Equal(t, "", *key)
}

func TestGenerate_Deterministic(t *testing.T) {
	g, _ := newTestGenerator(DefaultConfig())

	a := &domain.DecodedItem{
		CanonicalID: "ATTRIBUTE_SHARD",
		Attributes:  map[string]string{"mana_pool": "5", "breeze": "3", "dominance": "2"},
	}
	b := &domain.DecodedItem{
		CanonicalID: "ATTRIBUTE_SHARD",
		Attributes:  map[string]string{},
	}
	b.Attributes["dominance"] = "2"
	b.Attributes["mana_pool"] = "5"
	b.Attributes["breeze"] = "3"

	first := g.Generate(a, "EPIC")
	second := g.Generate(a, "EPIC")
	other := g.Generate(b, "EPIC")

	require.NotNil(t, first)
	require.NotNil(t, second)
	require.NotNil(t, other)
	assert.Equal(t, *first, *second)
	assert.Equal(t, *first, *other)
	assert.Equal(t, "EPIC,at:breeze:3,at:dominance:2,at:mana_pool:5", *first)
}

func TestGenerate_AttributeEscaping(t *testing.T) {
	g, _ := newTestGenerator(DefaultConfig())

	key := g.Generate(&domain.DecodedItem{
		CanonicalID: "DRILL",
		Attributes:  map[string]string{"Fuel,Tank": "Titanium,Big"},
	}, "")
	require.NotNil(t, key)
	assert.Equal(t, "at:fuel_tank:titanium_big", *key)
}

func TestGenerate_AttributeNameCaseIsCanonical(t *testing.T) {
	g, _ := newTestGenerator(DefaultConfig())

	a := g.Generate(&domain.DecodedItem{
		CanonicalID: "ATTRIBUTE_SHARD",
		Attributes:  map[string]string{"Alpha": "1", "beta": "2"},
	}, "")
	b := g.Generate(&domain.DecodedItem{
		CanonicalID: "ATTRIBUTE_SHARD",
		Attributes:  map[string]string{"alpha": "1", "Beta": "2"},
	}, "")
	c := g.Generate(&domain.DecodedItem{
		CanonicalID: "ATTRIBUTE_SHARD",
		Attributes:  map[string]string{"Zeta": "1", "alpha": "2"},
	}, "")

	require.NotNil(t, a)
	require.NotNil(t, b)
	require.NotNil(t, c)
	assert.Equal(t, "at:alpha:1,at:beta:2", *a)
	assert.Equal(t, *a, *b)
	assert.Equal(t, "at:alpha:2,at:zeta:1", *c)
}

func TestKeyString_CollidingNamesCollapse(t *testing.T) {
	k := Key{Extras: map[string]string{"Rune": "b", "rune": "a"}}
	assert.Equal(t, "ex:rune:a", k.String())
}

func TestGenerate_PetGroups(t *testing.T) {
	g, _ := newTestGenerator(DefaultConfig())

	cases := []struct {
		level int
		want  string
	}{
		{1, "LEGENDARY,pet:TIGER,pet_group:LVL_1"},
		{50, "LEGENDARY,pet:TIGER,pet_group:LVL_2_99"},
		{100, "LEGENDARY,pet:TIGER,pet_group:LVL_100"},
		{150, "LEGENDARY,pet:TIGER,pet_group:LVL_101_199"},
		{200, "LEGENDARY,pet:TIGER,pet_group:LVL_200"},
		{0, "LEGENDARY,pet:TIGER"},
	}

	for _, tc := range cases {
		key := g.Generate(&domain.DecodedItem{
			CanonicalID: "PET",
			PetInfo:     &domain.PetInfo{Type: "tiger", Level: tc.level},
		}, "LEGENDARY")
		require.NotNil(t, key)
		assert.Equal(t, tc.want, *key, "level %d", tc.level)
	}
}

func TestGenerate_PerItemPetGroups(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ItemPetLevelGroups = map[string][]LevelGroup{
		"GOLDEN_DRAGON": {{Key: "EGG", Min: 1, Max: 101}, {Key: "ADULT", Min: 102, Max: 200}},
	}
	g, _ := newTestGenerator(cfg)

	key := g.Generate(&domain.DecodedItem{
		CanonicalID: "PET",
		PetInfo:     &domain.PetInfo{Type: "GOLDEN_DRAGON", Level: 100},
	}, "")
	require.NotNil(t, key)
	assert.Equal(t, "pet:GOLDEN_DRAGON,pet_group:EGG", *key)
}

func TestGenerate_OverrideReplacesGenericTokens(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ItemOverrides = map[string]Override{
		"HYPERION": {Strategy: StrategyItemAttributes},
	}
	g, _ := newTestGenerator(cfg)

	key := g.Generate(&domain.DecodedItem{
		CanonicalID:  "HYPERION",
		Enchantments: map[string]int{"ultimate_wise": 5},
		Attributes:   map[string]string{"stars": "5"},
	}, "LEGENDARY")
	require.NotNil(t, key)
	assert.Equal(t, "en:ultimate_wise:5,at:stars:5", *key)
}

func TestGenerate_OverrideAppendMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PrefixOverrides = map[string]Override{
		"HYPER": {Strategy: StrategyItemAttributes, Mode: ModeAppend},
	}
	g, _ := newTestGenerator(cfg)

	key := g.Generate(&domain.DecodedItem{
		CanonicalID:  "HYPERION",
		Enchantments: map[string]int{"ultimate_wise": 5},
	}, "LEGENDARY")
	require.NotNil(t, key)
	assert.Equal(t, "LEGENDARY,en:ultimate_wise:5", *key)
}

func TestGenerate_LongestPrefixWins(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PrefixOverrides = map[string]Override{
		"PET":      {Strategy: "Nope"},
		"PET_ITEM": {Strategy: StrategyItemAttributes},
	}
	g, _ := newTestGenerator(cfg)

	key := g.Generate(&domain.DecodedItem{
		CanonicalID: "PET_ITEM_LUCKY_CLOVER",
		Attributes:  map[string]string{"a": "b"},
	}, "EPIC")
	require.NotNil(t, key)
	assert.Equal(t, "at:a:b", *key)
}

func TestGenerate_UnknownStrategy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ItemOverrides = map[string]Override{"HYPERION": {Strategy: "Enchantments"}}
	g, _ := newTestGenerator(cfg)

	key := g.Generate(&domain.DecodedItem{CanonicalID: "HYPERION"}, "LEGENDARY")
	require.NotNil(t, key)
	assert.Equal(t, KeyUnknownStrategy, *key)
}

func TestGenerate_StrategyErrorMapsToSentinel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ItemOverrides = map[string]Override{"BONE": {Strategy: StrategyPetLevel}}
	g, logs := newTestGenerator(cfg)

	key := g.Generate(&domain.DecodedItem{CanonicalID: "BONE"}, "RARE")
	require.NotNil(t, key)
	assert.Equal(t, KeyError, *key)
	assert.Contains(t, logs.String(), "BONE")
}

func TestGenerate_PetLevelStrategy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ItemOverrides = map[string]Override{"PET": {Strategy: StrategyPetLevel}}
	g, _ := newTestGenerator(cfg)

	key := g.Generate(&domain.DecodedItem{
		CanonicalID: "PET",
		PetInfo:     &domain.PetInfo{Type: "ENDER_DRAGON", Level: 100},
		Attributes:  map[string]string{"skin": "baby"},
	}, "LEGENDARY")
	require.NotNil(t, key)
	assert.Equal(t, "pet:ENDER_DRAGON,pet_group:LVL_100", *key)
}

func TestGenerate_RuneExtraTag(t *testing.T) {
	g, _ := newTestGenerator(DefaultConfig())

	key := g.Generate(&domain.DecodedItem{
		CanonicalID: "RUNE",
		Extra:       map[string]string{"rune": "FIRE:3"},
	}, "EPIC")
	require.NotNil(t, key)
	assert.Equal(t, "EPIC,ex:rune:FIRE:3", *key)
}
