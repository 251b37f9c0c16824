package variant

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Bundle errors.
var (
	// ErrNotEligible is returned for ids outside the bundle allow-list.
	ErrNotEligible = errors.New("item is not eligible for bundle queries")

	// ErrInvalidBundle is returned when a bundle key cannot be parsed.
	ErrInvalidBundle = errors.New("invalid bundle key")
)

const bundlePrefix = "bundle"

// BundleCategory is the structural property a bundle groups by.
type BundleCategory string

const (
	BundlePet  BundleCategory = "pet"
	BundleRune BundleCategory = "rune"
)

// Bundle is a parsed synthetic multi-variant query.
type Bundle struct {
	Category   BundleCategory
	Identifier string
	Level      *int // rune bundles only; nil matches any level
}

// DefaultBundleAllowList returns the ids eligible for bundle queries by default.
func DefaultBundleAllowList() []string {
	return []string{"PET", "RUNE", "UNIQUE_RUNE"}
}

// ParseBundleKey parses "bundle:<category>:<identifier>[:<level>]".
// Returns nil if the key is not a recognized bundle.
func ParseBundleKey(s string) *Bundle {
	parts := strings.Split(s, partSeparator)
	if len(parts) < 3 || parts[0] != bundlePrefix {
		return nil
	}

	identifier := strings.ToUpper(strings.TrimSpace(parts[2]))
	if identifier == "" {
		return nil
	}

	switch BundleCategory(strings.ToLower(parts[1])) {
	case BundlePet:
		return &Bundle{Category: BundlePet, Identifier: identifier}
	case BundleRune:
		b := &Bundle{Category: BundleRune, Identifier: identifier}
		if len(parts) > 3 {
			if level, err := strconv.Atoi(strings.TrimSpace(parts[3])); err == nil {
				b.Level = &level
			}
		}
		return b
	default:
		return nil
	}
}

// MatchesVariantBundle reports whether a stored variant key belongs to the bundle.
func MatchesVariantBundle(variantKey string, b *Bundle) bool {
	if b == nil {
		return false
	}

	k := FromKey(variantKey)
	switch b.Category {
	case BundlePet:
		return k.Pet != "" && strings.EqualFold(k.Pet, b.Identifier)
	case BundleRune:
		name, level, ok := parseRune(k.Extras["rune"])
		if !ok || !strings.EqualFold(name, b.Identifier) {
			return false
		}
		return b.Level == nil || *b.Level == level
	default:
		return false
	}
}

// parseRune splits a "NAME:LEVEL" rune tag.
func parseRune(tag string) (string, int, bool) {
	name, levelStr, ok := strings.Cut(tag, partSeparator)
	if !ok || name == "" {
		return "", 0, false
	}
	level, err := strconv.Atoi(levelStr)
	if err != nil {
		return "", 0, false
	}
	return name, level, true
}

// VariantKeyLister lists the stored variant keys of an item.
type VariantKeyLister interface {
	ListVariantKeys(ctx context.Context, itemID string) ([]string, error)
}

// BundleService resolves bundle queries against stored variant keys.
type BundleService struct {
	allowed map[string]struct{}
	keys    VariantKeyLister
}

// NewBundleService creates a bundle service over an allow-list.
func NewBundleService(allowList []string, keys VariantKeyLister) *BundleService {
	allowed := make(map[string]struct{}, len(allowList))
	for _, id := range allowList {
		allowed[strings.ToUpper(strings.TrimSpace(id))] = struct{}{}
	}
	return &BundleService{allowed: allowed, keys: keys}
}

// IsEligible reports whether a skyblock id may be queried by bundle.
func (s *BundleService) IsEligible(skyblockID string) bool {
	_, ok := s.allowed[strings.ToUpper(skyblockID)]
	return ok
}

// Resolve returns the stored variant keys of skyblockID matching bundleKey.
// An ineligible id yields ErrNotEligible; no matches yields an empty slice.
func (s *BundleService) Resolve(ctx context.Context, skyblockID, bundleKey string) ([]string, error) {
	if !s.IsEligible(skyblockID) {
		return nil, fmt.Errorf("%s: %w", skyblockID, ErrNotEligible)
	}

	b := ParseBundleKey(bundleKey)
	if b == nil {
		return nil, fmt.Errorf("%q: %w", bundleKey, ErrInvalidBundle)
	}

	keys, err := s.keys.ListVariantKeys(ctx, strings.ToUpper(skyblockID))
	if err != nil {
		return nil, fmt.Errorf("list variant keys: %w", err)
	}

	matched := make([]string, 0)
	for _, k := range keys {
		if MatchesVariantBundle(k, b) {
			matched = append(matched, k)
		}
	}
	return matched, nil
}
