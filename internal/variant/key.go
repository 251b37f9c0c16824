// Package variant builds and parses canonical variant keys and bundle queries.
package variant

import (
	"sort"
	"strconv"
	"strings"
)

// Token tags. Rarity is written as a bare token by String and is therefore
// not recoverable by FromKey; only an explicit "r:" token is parsed back.
const (
	tagRarity      = "r"
	tagPet         = "pet"
	tagPetGroup    = "pet_group"
	tagEnchantment = "en"
	tagAttribute   = "at"
	tagExtra       = "ex"

	tokenSeparator = ","
	partSeparator  = ":"
)

// Key is the structured form of a variant key.
type Key struct {
	Rarity       string
	Pet          string
	PetGroup     string
	Enchantments map[string]int
	Attributes   map[string]string
	Extras       map[string]string
}

// String serializes the key. Map-backed tokens are sorted on their normalized
// names so the output depends on neither map order nor name case.
func (k Key) String() string {
	tokens := make([]string, 0, 3+len(k.Enchantments)+len(k.Attributes)+len(k.Extras))

	if k.Rarity != "" {
		tokens = append(tokens, escapePart(strings.ToUpper(k.Rarity)))
	}
	if k.Pet != "" {
		tokens = append(tokens, tagPet+partSeparator+escapePart(k.Pet))
	}
	if k.PetGroup != "" {
		tokens = append(tokens, tagPetGroup+partSeparator+escapePart(k.PetGroup))
	}

	tokens = append(tokens, tagged(tagEnchantment, k.Enchantments, strconv.Itoa)...)
	tokens = append(tokens, tagged(tagAttribute, k.Attributes, func(v string) string {
		return escapeValue(strings.ToLower(v))
	})...)
	tokens = append(tokens, tagged(tagExtra, k.Extras, escapeValue)...)

	return strings.Join(tokens, tokenSeparator)
}

// IsEmpty reports whether the key carries no tokens.
func (k Key) IsEmpty() bool {
	return k.Rarity == "" && k.Pet == "" && k.PetGroup == "" &&
		len(k.Enchantments) == 0 && len(k.Attributes) == 0 && len(k.Extras) == 0
}

// FromKey parses the tagged tokens of a serialized variant key.
// Untagged tokens (including generated rarity) and malformed tokens are ignored.
func FromKey(s string) Key {
	var k Key
	if s == "" {
		return k
	}

	for _, token := range strings.Split(s, tokenSeparator) {
		tag, rest, ok := strings.Cut(token, partSeparator)
		if !ok || rest == "" {
			continue
		}

		switch tag {
		case tagRarity:
			k.Rarity = strings.ToUpper(rest)
		case tagPet:
			k.Pet = rest
		case tagPetGroup:
			k.PetGroup = rest
		case tagEnchantment:
			i := strings.LastIndex(rest, partSeparator)
			if i <= 0 {
				continue
			}
			level, err := strconv.Atoi(rest[i+1:])
			if err != nil {
				continue
			}
			if k.Enchantments == nil {
				k.Enchantments = make(map[string]int)
			}
			k.Enchantments[rest[:i]] = level
		case tagAttribute:
			name, value, ok := strings.Cut(rest, partSeparator)
			if !ok {
				continue
			}
			if k.Attributes == nil {
				k.Attributes = make(map[string]string)
			}
			k.Attributes[name] = value
		case tagExtra:
			name, value, ok := strings.Cut(rest, partSeparator)
			if !ok {
				continue
			}
			if k.Extras == nil {
				k.Extras = make(map[string]string)
			}
			k.Extras[name] = value
		}
	}

	return k
}

// escapePart removes both separators from a key part.
func escapePart(s string) string {
	return strings.NewReplacer(tokenSeparator, "_", partSeparator, "_").Replace(strings.TrimSpace(s))
}

// escapeValue removes the token separator from a value. Values may contain
// ':' (e.g. rune "FIRE:3").
func escapeValue(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), tokenSeparator, "_")
}

// tagged renders one map section as "tag:name:value" tokens ordered by the
// lower-cased, escaped name. Names that normalize to the same part collapse
// to the token that sorts first.
func tagged[V any](tag string, m map[string]V, value func(V) string) []string {
	byName := make(map[string]string, len(m))
	for name, v := range m {
		part := escapePart(strings.ToLower(name))
		token := tag + partSeparator + part + partSeparator + value(v)
		if prev, ok := byName[part]; ok && prev <= token {
			continue
		}
		byName[part] = token
	}

	names := make([]string, 0, len(byName))
	for part := range byName {
		names = append(names, part)
	}
	sort.Strings(names)

	tokens := make([]string, len(names))
	for i, part := range names {
		tokens[i] = byName[part]
	}
	return tokens
}
