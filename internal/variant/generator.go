package variant

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"skyblock-price-lab/internal/domain"
)

// Sentinel keys returned instead of failing a listing.
const (
	KeyUnknownStrategy = "DEFAULT_UNKNOWN_STRATEGY"
	KeyError           = "DEFAULT_ERROR"
)

// Strategy names accepted in overrides.
const (
	StrategyItemAttributes = "ItemAttributes"
	StrategyPetLevel       = "PetLevel"
)

// OverrideMode controls how a strategy combines with the generic tokens.
type OverrideMode string

const (
	// ModeReplace makes the strategy's tokens the entire key.
	ModeReplace OverrideMode = "replace"
	// ModeAppend adds the strategy's tokens to the generic tokens.
	ModeAppend OverrideMode = "append"
)

// Override selects a key strategy for an item id or id prefix.
type Override struct {
	Strategy string       `yaml:"strategy"`
	Mode     OverrideMode `yaml:"mode"`
}

// LevelGroup maps an inclusive pet level range to a group key.
type LevelGroup struct {
	Key string `yaml:"key"`
	Min int    `yaml:"min"`
	Max int    `yaml:"max"`
}

// Config holds variant key generation settings.
type Config struct {
	ItemOverrides   map[string]Override `yaml:"item_overrides"`
	PrefixOverrides map[string]Override `yaml:"prefix_overrides"`
	IgnoreRarity    []string            `yaml:"ignore_rarity"`
	PetLevelGroups  []LevelGroup        `yaml:"pet_level_groups"`
	// ItemPetLevelGroups overrides PetLevelGroups, keyed by item id or pet type.
	ItemPetLevelGroups map[string][]LevelGroup `yaml:"item_pet_level_groups"`
}

// DefaultPetLevelGroups returns the global pet level groups.
func DefaultPetLevelGroups() []LevelGroup {
	return []LevelGroup{
		{Key: "LVL_1", Min: 1, Max: 1},
		{Key: "LVL_2_99", Min: 2, Max: 99},
		{Key: "LVL_100", Min: 100, Max: 100},
		{Key: "LVL_101_199", Min: 101, Max: 199},
		{Key: "LVL_200", Min: 200, Max: 200},
	}
}

// DefaultConfig returns a config with the default pet level groups.
func DefaultConfig() Config {
	return Config{PetLevelGroups: DefaultPetLevelGroups()}
}

var errNoPetInfo = errors.New("item has no pet info")

// producer fills part of a key from a decoded item.
type producer func(g *Generator, item *domain.DecodedItem, rarity string, k *Key) error

var genericProducers = []producer{
	produceRarity,
	producePet,
	produceAttributes,
	produceExtras,
}

var strategyProducers = map[string][]producer{
	StrategyItemAttributes: {produceEnchantments, produceAttributes, produceExtras},
	StrategyPetLevel:       {requirePet},
}

// Generator builds variant keys.
type Generator struct {
	cfg          Config
	ignoreRarity map[string]struct{}
	prefixes     []string
	logger       *log.Logger
}

// NewGenerator creates a generator. A nil logger uses log.Default().
func NewGenerator(cfg Config, logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.Default()
	}

	ignore := make(map[string]struct{}, len(cfg.IgnoreRarity))
	for _, id := range cfg.IgnoreRarity {
		ignore[strings.ToUpper(id)] = struct{}{}
	}

	// Longest prefix wins; ties broken lexically.
	prefixes := make([]string, 0, len(cfg.PrefixOverrides))
	for p := range cfg.PrefixOverrides {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool {
		if len(prefixes[i]) != len(prefixes[j]) {
			return len(prefixes[i]) > len(prefixes[j])
		}
		return prefixes[i] < prefixes[j]
	})

	return &Generator{
		cfg:          cfg,
		ignoreRarity: ignore,
		prefixes:     prefixes,
		logger:       logger,
	}
}

// Generate returns the variant key for an item, or nil if the item has no
// canonical id. It never panics: unknown strategies and generation failures
// map to KeyUnknownStrategy and KeyError.
func (g *Generator) Generate(item *domain.DecodedItem, rarity string) (key *string) {
	if item == nil || strings.TrimSpace(item.CanonicalID) == "" {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			g.logger.Printf("[variant] key generation panicked for %s: %v", item.CanonicalID, r)
			s := KeyError
			key = &s
		}
	}()

	s, err := g.build(item, rarity)
	if err != nil {
		g.logger.Printf("[variant] key generation failed for %s: %v", item.CanonicalID, err)
		s = KeyError
	}
	return &s
}

// Build returns the structured key for an item. The second result is a
// sentinel key when an override names an unknown strategy.
func (g *Generator) Build(item *domain.DecodedItem, rarity string) (Key, string, error) {
	var k Key

	override, hasOverride := g.overrideFor(item.CanonicalID)
	if hasOverride {
		producers, ok := strategyProducers[override.Strategy]
		if !ok {
			return k, KeyUnknownStrategy, nil
		}
		if override.Mode == ModeAppend {
			if err := g.apply(genericProducers, item, rarity, &k); err != nil {
				return k, "", err
			}
		}
		if err := g.apply(producers, item, rarity, &k); err != nil {
			return k, "", fmt.Errorf("strategy %s: %w", override.Strategy, err)
		}
		return k, "", nil
	}

	if err := g.apply(genericProducers, item, rarity, &k); err != nil {
		return k, "", err
	}
	return k, "", nil
}

func (g *Generator) build(item *domain.DecodedItem, rarity string) (string, error) {
	k, sentinel, err := g.Build(item, rarity)
	if err != nil {
		return "", err
	}
	if sentinel != "" {
		return sentinel, nil
	}
	return k.String(), nil
}

func (g *Generator) apply(producers []producer, item *domain.DecodedItem, rarity string, k *Key) error {
	for _, p := range producers {
		if err := p(g, item, rarity, k); err != nil {
			return err
		}
	}
	return nil
}

// overrideFor looks up an exact item override, then the longest prefix.
func (g *Generator) overrideFor(itemID string) (Override, bool) {
	if o, ok := g.cfg.ItemOverrides[itemID]; ok {
		return normalizeOverride(o), true
	}
	for _, p := range g.prefixes {
		if strings.HasPrefix(itemID, p) {
			return normalizeOverride(g.cfg.PrefixOverrides[p]), true
		}
	}
	return Override{}, false
}

func normalizeOverride(o Override) Override {
	if o.Mode == "" {
		o.Mode = ModeReplace
	}
	return o
}

// PetGroup returns the first configured level group containing level.
func (g *Generator) PetGroup(item *domain.DecodedItem, level int) (string, bool) {
	groups := g.cfg.PetLevelGroups
	if custom, ok := g.cfg.ItemPetLevelGroups[item.CanonicalID]; ok {
		groups = custom
	} else if item.PetInfo != nil {
		if custom, ok := g.cfg.ItemPetLevelGroups[strings.ToUpper(item.PetInfo.Type)]; ok {
			groups = custom
		}
	}

	for _, grp := range groups {
		if level >= grp.Min && level <= grp.Max {
			return grp.Key, true
		}
	}
	return "", false
}

func produceRarity(g *Generator, item *domain.DecodedItem, rarity string, k *Key) error {
	rarity = strings.TrimSpace(rarity)
	if rarity == "" {
		return nil
	}
	if _, skip := g.ignoreRarity[strings.ToUpper(item.CanonicalID)]; skip {
		return nil
	}
	k.Rarity = strings.ToUpper(rarity)
	return nil
}

func producePet(g *Generator, item *domain.DecodedItem, _ string, k *Key) error {
	if item.PetInfo == nil {
		return nil
	}
	return requirePet(g, item, "", k)
}

func requirePet(g *Generator, item *domain.DecodedItem, _ string, k *Key) error {
	if item.PetInfo == nil {
		return errNoPetInfo
	}
	if t := strings.TrimSpace(item.PetInfo.Type); t != "" {
		k.Pet = strings.ToUpper(t)
	}
	if group, ok := g.PetGroup(item, item.PetInfo.Level); ok {
		k.PetGroup = group
	}
	return nil
}

func produceEnchantments(_ *Generator, item *domain.DecodedItem, _ string, k *Key) error {
	for name, level := range item.Enchantments {
		if k.Enchantments == nil {
			k.Enchantments = make(map[string]int, len(item.Enchantments))
		}
		k.Enchantments[name] = level
	}
	return nil
}

func produceAttributes(_ *Generator, item *domain.DecodedItem, _ string, k *Key) error {
	for name, value := range item.Attributes {
		if k.Attributes == nil {
			k.Attributes = make(map[string]string, len(item.Attributes))
		}
		k.Attributes[name] = value
	}
	return nil
}

func produceExtras(_ *Generator, item *domain.DecodedItem, _ string, k *Key) error {
	for name, value := range item.Extra {
		if k.Extras == nil {
			k.Extras = make(map[string]string, len(item.Extra))
		}
		k.Extras[name] = value
	}
	return nil
}
