package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"skyblock-price-lab/internal/variant"
)

// VariantFile is the YAML document holding structured variant settings.
// Omitted sections keep their defaults.
//
//	item_overrides:
//	  PET: {strategy: PetLevel}
//	  HYPERION: {strategy: ItemAttributes, mode: append}
//	prefix_overrides:
//	  STARRED_: {strategy: ItemAttributes}
//	ignore_rarity: [RUNE]
//	pet_level_groups:
//	  - {key: LVL_1, min: 1, max: 1}
//	bundle_allow_list: [PET, RUNE, UNIQUE_RUNE]
type VariantFile struct {
	variant.Config  `yaml:",inline"`
	BundleAllowList []string `yaml:"bundle_allow_list"`
}

// LoadVariantFile reads and validates a variant settings file.
func LoadVariantFile(path string) (*VariantFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read variant config: %w", err)
	}
	return ParseVariantFile(data)
}

// ParseVariantFile decodes a variant settings document. Unknown fields are rejected.
func ParseVariantFile(data []byte) (*VariantFile, error) {
	var vf VariantFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&vf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse variant config: %w", err)
	}
	if err := validateVariant(vf.Config); err != nil {
		return nil, err
	}
	return &vf, nil
}

// Apply copies the non-empty sections into cfg.
func (vf *VariantFile) Apply(cfg *Config) {
	if vf.ItemOverrides != nil {
		cfg.Variant.ItemOverrides = vf.ItemOverrides
	}
	if vf.PrefixOverrides != nil {
		cfg.Variant.PrefixOverrides = vf.PrefixOverrides
	}
	if vf.IgnoreRarity != nil {
		cfg.Variant.IgnoreRarity = vf.IgnoreRarity
	}
	if vf.PetLevelGroups != nil {
		cfg.Variant.PetLevelGroups = vf.PetLevelGroups
	}
	if vf.ItemPetLevelGroups != nil {
		cfg.Variant.ItemPetLevelGroups = vf.ItemPetLevelGroups
	}
	if vf.BundleAllowList != nil {
		cfg.BundleAllowList = vf.BundleAllowList
	}
}

func validateVariant(v variant.Config) error {
	overrides := func(section string, m map[string]variant.Override) error {
		for id, o := range m {
			if id == "" {
				return fmt.Errorf("%s: empty item id", section)
			}
			if o.Strategy == "" {
				return fmt.Errorf("%s.%s: strategy is required", section, id)
			}
			switch o.Mode {
			case "", variant.ModeReplace, variant.ModeAppend:
			default:
				return fmt.Errorf("%s.%s: mode must be replace or append (got %q)", section, id, o.Mode)
			}
		}
		return nil
	}
	if err := overrides("item_overrides", v.ItemOverrides); err != nil {
		return err
	}
	if err := overrides("prefix_overrides", v.PrefixOverrides); err != nil {
		return err
	}

	groups := func(section string, gs []variant.LevelGroup) error {
		for i, g := range gs {
			if g.Key == "" {
				return fmt.Errorf("%s[%d]: key is required", section, i)
			}
			if g.Min > g.Max {
				return fmt.Errorf("%s[%d]: min %d greater than max %d", section, i, g.Min, g.Max)
			}
		}
		return nil
	}
	if err := groups("pet_level_groups", v.PetLevelGroups); err != nil {
		return err
	}
	for id, gs := range v.ItemPetLevelGroups {
		if err := groups("item_pet_level_groups."+id, gs); err != nil {
			return err
		}
	}
	return nil
}
