package domain

import "encoding/json"

// PlatformCredential is implemented by every platform's credential blob.
// Each variant carries exactly the fields its platform's search call needs;
// a blob missing a required field must be treated as absent by the handler
// and re-acquired rather than trusted.
type PlatformCredential interface {
	Platform() Platform
	// Ready reports whether the blob has every field its search call needs.
	Ready() bool
}

// BigBasketCredential is BigBasket's acquired session state: storefront
// cookies, the headers accumulated along the way (notably x-csurftoken),
// the Next.js buildId used to address the search data route, and the
// coordinates the address was set for.
type BigBasketCredential struct {
	Cookies map[string]string `json:"auth_cookies"`
	Headers map[string]string `json:"headers"`
	BuildID string            `json:"buildId"`
	Lat     float64           `json:"lat"`
	Lon     float64           `json:"lon"`
}

func (c *BigBasketCredential) Platform() Platform { return BigBasket }
func (c *BigBasketCredential) Ready() bool {
	return c != nil && c.BuildID != "" && len(c.Cookies) > 0
}

// BlinkitCredential is Blinkit's device/session identity plus the auth key
// exchanged for it.
type BlinkitCredential struct {
	DeviceID   string            `json:"device_id"`
	AppVersion string            `json:"app_version"`
	AuthKey    string            `json:"auth_key"`
	Cookies    map[string]string `json:"cookies"`
	Lat        float64           `json:"lat"`
	Lon        float64           `json:"lon"`
}

func (c *BlinkitCredential) Platform() Platform { return Blinkit }
func (c *BlinkitCredential) Ready() bool {
	return c != nil && c.AuthKey != "" && c.DeviceID != ""
}

// InstamartCredential is Instamart's cookie jar plus the resolved store ids
// for the serviced location. SecondaryStoreID is optional.
type InstamartCredential struct {
	Cookies          map[string]string `json:"cookies"`
	PrimaryStoreID   string            `json:"primary_store_id"`
	SecondaryStoreID string            `json:"secondary_store_id,omitempty"`
	Serviceable      bool              `json:"serviceable"`
}

func (c *InstamartCredential) Platform() Platform { return Instamart }
func (c *InstamartCredential) Ready() bool {
	if c == nil {
		return false
	}
	if !c.Serviceable {
		// A persisted non-serviceable verdict is itself a "ready" (usable,
		// no re-acquisition needed) credential: the handler short-circuits.
		return true
	}
	return c.PrimaryStoreID != "" && len(c.Cookies) > 0
}

// DMartCredential carries no durable auth; it only records whether the
// resolved place is serviceable, since a fresh serviceability check is the
// entire acquisition step.
type DMartCredential struct {
	PlaceID     string `json:"place_id"`
	Serviceable bool   `json:"serviceable"`
}

func (c *DMartCredential) Platform() Platform { return DMart }
func (c *DMartCredential) Ready() bool {
	return c != nil && c.PlaceID != ""
}

// ZeptoCredential is Zepto's resolved store id plus the device/session/XSRF
// triple extracted from its cookie jar.
type ZeptoCredential struct {
	StoreID     string `json:"store_id"`
	DeviceID    string `json:"device_id"`
	SessionID   string `json:"session_id"`
	XSRFToken   string `json:"xsrf_token"`
	Serviceable bool   `json:"serviceable"`
}

func (c *ZeptoCredential) Platform() Platform { return Zepto }
func (c *ZeptoCredential) Ready() bool {
	if c == nil {
		return false
	}
	if !c.Serviceable {
		return true
	}
	return c.StoreID != "" && c.SessionID != ""
}

// CredentialBundle maps each platform to its credential blob. It is owned by
// the caller between requests; the engine never persists it itself.
type CredentialBundle map[Platform]PlatformCredential

// Clone returns a shallow copy of the bundle, safe to hand to a concurrent
// task without risk of the orchestrator's later writes racing with it.
func (b CredentialBundle) Clone() CredentialBundle {
	clone := make(CredentialBundle, len(b))
	for k, v := range b {
		clone[k] = v
	}
	return clone
}

// Get returns the credential for a platform, or nil if absent.
func (b CredentialBundle) Get(p Platform) PlatformCredential {
	if b == nil {
		return nil
	}
	return b[p]
}

// MarshalJSON emits the bundle as {"<PLATFORM>": {...blob...}}, matching the
// wire shape in spec §6's response schema.
func (b CredentialBundle) MarshalJSON() ([]byte, error) {
	raw := make(map[Platform]PlatformCredential, len(b))
	for k, v := range b {
		if v != nil {
			raw[k] = v
		}
	}
	return json.Marshal(raw)
}

// UnmarshalCredentialBundle decodes a wire-format credential bundle. Unknown
// top-level platform keys are ignored (tolerant wire schema); each known
// platform's blob is decoded strictly into its Go struct, with unknown
// nested fields silently dropped by encoding/json's default behavior.
func UnmarshalCredentialBundle(data []byte) (CredentialBundle, error) {
	if len(data) == 0 {
		return CredentialBundle{}, nil
	}
	var raw map[Platform]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	bundle := make(CredentialBundle, len(raw))
	for platform, blob := range raw {
		cred, err := decodeCredential(platform, blob)
		if err != nil || cred == nil {
			continue
		}
		bundle[platform] = cred
	}
	return bundle, nil
}

func decodeCredential(platform Platform, blob json.RawMessage) (PlatformCredential, error) {
	switch platform {
	case BigBasket:
		var c BigBasketCredential
		if err := json.Unmarshal(blob, &c); err != nil {
			return nil, err
		}
		return &c, nil
	case Blinkit:
		var c BlinkitCredential
		if err := json.Unmarshal(blob, &c); err != nil {
			return nil, err
		}
		return &c, nil
	case Instamart:
		var c InstamartCredential
		if err := json.Unmarshal(blob, &c); err != nil {
			return nil, err
		}
		return &c, nil
	case DMart:
		var c DMartCredential
		if err := json.Unmarshal(blob, &c); err != nil {
			return nil, err
		}
		return &c, nil
	case Zepto:
		var c ZeptoCredential
		if err := json.Unmarshal(blob, &c); err != nil {
			return nil, err
		}
		return &c, nil
	default:
		// Unknown platform key: ignored, per the tolerant wire schema.
		return nil, nil
	}
}
