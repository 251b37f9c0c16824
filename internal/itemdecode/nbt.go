package itemdecode

import (
	"fmt"
	"io"

	"github.com/Tnze/go-mc/nbt"
)

// itemPayload is the auction item envelope: a root compound holding the
// item stack list "i".
type itemPayload struct {
	Items []itemStack `nbt:"i"`
}

type itemStack struct {
	Count int8    `nbt:"Count"`
	Tag   itemTag `nbt:"tag"`
}

type itemTag struct {
	Display struct {
		Name string `nbt:"Name"`
	} `nbt:"display"`
	ExtraAttributes extraAttributes `nbt:"ExtraAttributes"`
}

// extraAttributes holds the SkyBlock item data. Level maps keep raw NBT
// values since their integer width varies between items.
type extraAttributes struct {
	ID           string         `nbt:"id"`
	PetInfo      string         `nbt:"petInfo"`
	Enchantments map[string]any `nbt:"enchantments"`
	Attributes   map[string]any `nbt:"attributes"`
	Runes        map[string]any `nbt:"runes"`
}

// readPayload decodes uncompressed NBT into the item envelope.
func readPayload(r io.Reader) (*itemPayload, error) {
	var p itemPayload
	if _, err := nbt.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("nbt: %w", err)
	}
	return &p, nil
}

// asInt converts any NBT integer value.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int8:
		return int(n), true
	case uint8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	default:
		return 0, false
	}
}
