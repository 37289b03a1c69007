package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalCredentialBundle_DecodesKnownPlatforms(t *testing.T) {
	raw := `{
		"BIGBASKET": {"auth_cookies": {"a": "1"}, "headers": {"x-csurftoken": "tok"}, "buildId": "abc123", "lat": 12.9, "lon": 77.6},
		"ZEPTO": {"store_id": "s1", "device_id": "d1", "session_id": "sess1", "xsrf_token": "xsrf1", "serviceable": true}
	}`

	bundle, err := UnmarshalCredentialBundle([]byte(raw))
	require.NoError(t, err)
	require.Len(t, bundle, 2)

	bb, ok := bundle[BigBasket].(*BigBasketCredential)
	require.True(t, ok)
	assert.Equal(t, "abc123", bb.BuildID)
	assert.True(t, bb.Ready())

	zepto, ok := bundle[Zepto].(*ZeptoCredential)
	require.True(t, ok)
	assert.Equal(t, "s1", zepto.StoreID)
	assert.True(t, zepto.Ready())
}

func TestUnmarshalCredentialBundle_IgnoresUnknownPlatformKey(t *testing.T) {
	raw := `{"NOTAPLATFORM": {"foo": "bar"}, "DMART": {"place_id": "p1", "serviceable": true}}`

	bundle, err := UnmarshalCredentialBundle([]byte(raw))
	require.NoError(t, err)
	require.Len(t, bundle, 1)
	assert.Contains(t, bundle, DMart)
}

func TestUnmarshalCredentialBundle_EmptyInput(t *testing.T) {
	bundle, err := UnmarshalCredentialBundle(nil)
	require.NoError(t, err)
	assert.Empty(t, bundle)
}

func TestUnmarshalCredentialBundle_DropsUnknownNestedFields(t *testing.T) {
	raw := `{"DMART": {"place_id": "p1", "serviceable": false, "totally_unknown_field": 42}}`

	bundle, err := UnmarshalCredentialBundle([]byte(raw))
	require.NoError(t, err)
	dm, ok := bundle[DMart].(*DMartCredential)
	require.True(t, ok)
	assert.Equal(t, "p1", dm.PlaceID)
	assert.False(t, dm.Serviceable)
}

func TestCredentialBundle_MarshalJSON_SkipsNil(t *testing.T) {
	bundle := CredentialBundle{
		DMart: &DMartCredential{PlaceID: "p1", Serviceable: true},
		Zepto: nil,
	}
	out, err := json.Marshal(bundle)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Contains(t, decoded, "DMART")
	assert.NotContains(t, decoded, "ZEPTO")
}

func TestCredentialBundle_Clone_IsIndependentMap(t *testing.T) {
	original := CredentialBundle{DMart: &DMartCredential{PlaceID: "p1"}}
	clone := original.Clone()
	clone[Zepto] = &ZeptoCredential{StoreID: "s1"}

	assert.NotContains(t, original, Zepto)
	assert.Contains(t, clone, Zepto)
}

func TestInstamartCredential_Ready_NonServiceableShortCircuits(t *testing.T) {
	c := &InstamartCredential{Serviceable: false}
	assert.True(t, c.Ready())
}

func TestInstamartCredential_Ready_ServiceableRequiresStoreAndCookies(t *testing.T) {
	incomplete := &InstamartCredential{Serviceable: true}
	assert.False(t, incomplete.Ready())

	complete := &InstamartCredential{Serviceable: true, PrimaryStoreID: "store1", Cookies: map[string]string{"a": "b"}}
	assert.True(t, complete.Ready())
}

func TestZeptoCredential_Ready_NonServiceableShortCircuits(t *testing.T) {
	c := &ZeptoCredential{Serviceable: false}
	assert.True(t, c.Ready())
}

func TestNilCredential_Ready_IsFalse(t *testing.T) {
	var bb *BigBasketCredential
	assert.False(t, bb.Ready())
}

func TestCredentialBundle_Get_NilBundle(t *testing.T) {
	var bundle CredentialBundle
	assert.Nil(t, bundle.Get(Zepto))
}
