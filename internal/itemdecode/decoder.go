// Package itemdecode turns auction item payloads (base64 gzip NBT) into
// domain.DecodedItem values.
package itemdecode

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"skyblock-price-lab/internal/domain"
	"skyblock-price-lab/internal/ingestion"
)

// PetItemID is the canonical id of every pet item.
const PetItemID = "PET"

var (
	colorCode = regexp.MustCompile(`§.`)
	petLevel  = regexp.MustCompile(`^\[Lvl (\d+)\]`)
)

// Decoder implements ingestion.ItemDecoder.
type Decoder struct{}

// NewDecoder creates a Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Compile-time interface check.
var _ ingestion.ItemDecoder = (*Decoder)(nil)

// Decode parses one payload. Any malformed layer wraps ingestion.ErrDecode.
// A payload without ExtraAttributes.id decodes to an item with an empty
// CanonicalID.
func (d *Decoder) Decode(itemBytes string) (*domain.DecodedItem, error) {
	raw, err := base64.StdEncoding.DecodeString(itemBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", ingestion.ErrDecode, err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: gzip: %v", ingestion.ErrDecode, err)
	}
	defer zr.Close()

	p, err := readPayload(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ingestion.ErrDecode, err)
	}
	if len(p.Items) == 0 {
		return nil, fmt.Errorf("%w: no item in payload", ingestion.ErrDecode)
	}

	return fromTag(p.Items[0].Tag)
}

func fromTag(tag itemTag) (*domain.DecodedItem, error) {
	extra := tag.ExtraAttributes
	item := &domain.DecodedItem{
		CanonicalID: extra.ID,
		Name:        strings.TrimSpace(colorCode.ReplaceAllString(tag.Display.Name, "")),
	}

	if ench := intMap(extra.Enchantments); len(ench) > 0 {
		item.Enchantments = ench
	}

	if attrs := intMap(extra.Attributes); len(attrs) > 0 {
		item.Attributes = make(map[string]string, len(attrs))
		for name, level := range attrs {
			item.Attributes[name] = strconv.Itoa(level)
		}
	}

	if r, ok := firstRune(extra.Runes); ok {
		item.Extra = map[string]string{"rune": r}
	}

	if raw := extra.PetInfo; raw != "" {
		pet, err := parsePetInfo(raw, item.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ingestion.ErrDecode, err)
		}
		item.PetInfo = pet
		if item.CanonicalID == "" {
			item.CanonicalID = PetItemID
		}
	}

	return item, nil
}

type petInfoJSON struct {
	Type string `json:"type"`
	Tier string `json:"tier"`
}

// parsePetInfo reads the petInfo JSON. The level comes from the
// "[Lvl N]" display name prefix; 0 when absent.
func parsePetInfo(raw, name string) (*domain.PetInfo, error) {
	var info petInfoJSON
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return nil, fmt.Errorf("petInfo: %w", err)
	}
	if info.Type == "" {
		return nil, fmt.Errorf("petInfo: missing type")
	}

	pet := &domain.PetInfo{Type: info.Type, Tier: info.Tier}
	if m := petLevel.FindStringSubmatch(name); m != nil {
		pet.Level, _ = strconv.Atoi(m[1])
	}
	return pet, nil
}

// firstRune returns "NAME:LEVEL" of the alphabetically first rune.
func firstRune(runes map[string]any) (string, bool) {
	levels := intMap(runes)
	if len(levels) == 0 {
		return "", false
	}
	names := make([]string, 0, len(levels))
	for name := range levels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names[0] + ":" + strconv.Itoa(levels[names[0]]), true
}

// intMap extracts the integer-valued children of a compound.
func intMap(c map[string]any) map[string]int {
	if len(c) == 0 {
		return nil
	}
	out := make(map[string]int, len(c))
	for name, v := range c {
		if n, ok := asInt(v); ok {
			out[name] = n
		}
	}
	return out
}
