package variant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestParseBundleKey(t *testing.T) {
	cases := []struct {
		in   string
		want *Bundle
	}{
		{"bundle:pet:TIGER", &Bundle{Category: BundlePet, Identifier: "TIGER"}},
		{"bundle:pet:tiger:100", &Bundle{Category: BundlePet, Identifier: "TIGER"}},
		{"bundle:rune:FIRE:3", &Bundle{Category: BundleRune, Identifier: "FIRE", Level: intPtr(3)}},
		{"bundle:rune:fire", &Bundle{Category: BundleRune, Identifier: "FIRE"}},
		{"bundle:rune:FIRE:x", &Bundle{Category: BundleRune, Identifier: "FIRE"}},
		{"not-a-bundle", nil},
		{"bundle:skin:TIGER", nil},
		{"bundle:pet", nil},
		{"bundle:pet:", nil},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseBundleKey(tc.in), tc.in)
	}
}

func TestMatchesVariantBundle_Pet(t *testing.T) {
	key := "LEGENDARY,pet:TIGER,pet_group:LVL_100"

	assert.True(t, MatchesVariantBundle(key, ParseBundleKey("bundle:pet:TIGER")))
	assert.True(t, MatchesVariantBundle(key, &Bundle{Category: BundlePet, Identifier: "tiger"}))
	assert.False(t, MatchesVariantBundle(key, ParseBundleKey("bundle:pet:LION")))
	assert.False(t, MatchesVariantBundle("LEGENDARY", ParseBundleKey("bundle:pet:TIGER")))
}

func TestMatchesVariantBundle_Rune(t *testing.T) {
	key := "EPIC,ex:rune:FIRE:3"

	assert.True(t, MatchesVariantBundle(key, ParseBundleKey("bundle:rune:FIRE:3")))
	assert.True(t, MatchesVariantBundle(key, ParseBundleKey("bundle:rune:FIRE")))
	assert.True(t, MatchesVariantBundle("ex:rune:fire:3", ParseBundleKey("bundle:rune:FIRE")))
	assert.False(t, MatchesVariantBundle(key, ParseBundleKey("bundle:rune:FIRE:4")))
	assert.False(t, MatchesVariantBundle(key, ParseBundleKey("bundle:rune:ICE")))
	assert.False(t, MatchesVariantBundle("ex:rune:FIRE", ParseBundleKey("bundle:rune:FIRE")))
	assert.False(t, MatchesVariantBundle(key, nil))
}

type fakeKeyLister struct {
	keys map[string][]string
	err  error
}

func (f *fakeKeyLister) ListVariantKeys(_ context.Context, itemID string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.keys[itemID], nil
}

func TestBundleService_Resolve(t *testing.T) {
	lister := &fakeKeyLister{keys: map[string][]string{
		"PET": {
			"LEGENDARY,pet:TIGER,pet_group:LVL_1",
			"LEGENDARY,pet:TIGER,pet_group:LVL_100",
			"EPIC,pet:LION,pet_group:LVL_100",
		},
	}}
	svc := NewBundleService(DefaultBundleAllowList(), lister)

	keys, err := svc.Resolve(context.Background(), "pet", "bundle:pet:TIGER")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"LEGENDARY,pet:TIGER,pet_group:LVL_1",
		"LEGENDARY,pet:TIGER,pet_group:LVL_100",
	}, keys)

	keys, err = svc.Resolve(context.Background(), "PET", "bundle:pet:WOLF")
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.NotNil(t, keys)
}

func TestBundleService_IneligibleIsDistinct(t *testing.T) {
	svc := NewBundleService([]string{"PET"}, &fakeKeyLister{})

	assert.True(t, svc.IsEligible("PET"))
	assert.False(t, svc.IsEligible("HYPERION"))

	_, err := svc.Resolve(context.Background(), "HYPERION", "bundle:pet:TIGER")
	assert.ErrorIs(t, err, ErrNotEligible)

	_, err = svc.Resolve(context.Background(), "PET", "bundle:skin:TIGER")
	assert.ErrorIs(t, err, ErrInvalidBundle)
}

func TestBundleService_ListError(t *testing.T) {
	boom := errors.New("db down")
	svc := NewBundleService([]string{"RUNE"}, &fakeKeyLister{err: boom})

	_, err := svc.Resolve(context.Background(), "RUNE", "bundle:rune:FIRE")
	assert.ErrorIs(t, err, boom)
}
