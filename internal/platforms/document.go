package platforms

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/strrl/cc-launcher/pkg/models"
)

// Document is the platforms.json content. Platforms keep the order in which
// they appear in the file; first-available selection depends on it.
type Document struct {
	Platforms       []models.Platform
	DefaultPlatform string
	Aliases         map[string]string
}

type documentJSON struct {
	Platforms       json.RawMessage   `json:"platforms"`
	DefaultPlatform string            `json:"default_platform"`
	Aliases         map[string]string `json:"aliases"`
}

// DefaultDocument returns the configuration written on first use
func DefaultDocument() *Document {
	return &Document{
		Platforms: []models.Platform{
			{
				ID: "gaccode",
				Profile: models.PlatformProfile{
					Name:       "GAC Code",
					APIBaseURL: "https://relay05.gaccode.com/claudecode",
					Model:      "claude-3-5-sonnet-20241022",
					Enabled:    true,
				},
			},
			{
				ID: "deepseek",
				Profile: models.PlatformProfile{
					Name:       "DeepSeek",
					APIBaseURL: "https://api.deepseek.com/anthropic",
					Model:      "deepseek-chat",
					Enabled:    true,
				},
			},
		},
		DefaultPlatform: "gaccode",
		Aliases: map[string]string{
			"gc": "gaccode",
			"dp": "deepseek",
			"ds": "deepseek",
		},
	}
}

// Get returns the profile stored under id
func (d *Document) Get(id string) (models.PlatformProfile, bool) {
	for _, p := range d.Platforms {
		if p.ID == id {
			return p.Profile, true
		}
	}
	return models.PlatformProfile{}, false
}

// Set replaces the profile for id in place, or appends a new entry
func (d *Document) Set(id string, profile models.PlatformProfile) {
	for i := range d.Platforms {
		if d.Platforms[i].ID == id {
			d.Platforms[i].Profile = profile
			return
		}
	}
	d.Platforms = append(d.Platforms, models.Platform{ID: id, Profile: profile})
}

// IDs lists platform ids in stored order
func (d *Document) IDs() []string {
	ids := make([]string, 0, len(d.Platforms))
	for _, p := range d.Platforms {
		ids = append(ids, p.ID)
	}
	return ids
}

func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range d.Platforms {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(p.ID)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(p.Profile)
		if err != nil {
			return nil, fmt.Errorf("platform %s: %w", p.ID, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')

	aliases := d.Aliases
	if aliases == nil {
		aliases = map[string]string{}
	}
	return json.Marshal(documentJSON{
		Platforms:       buf.Bytes(),
		DefaultPlatform: d.DefaultPlatform,
		Aliases:         aliases,
	})
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var raw documentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	d.DefaultPlatform = raw.DefaultPlatform
	d.Aliases = raw.Aliases
	if d.Aliases == nil {
		d.Aliases = map[string]string{}
	}
	d.Platforms = nil

	if len(raw.Platforms) == 0 || string(raw.Platforms) == "null" {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw.Platforms))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("platforms: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		id, ok := tok.(string)
		if !ok {
			return fmt.Errorf("platforms: expected key, got %v", tok)
		}
		var profile models.PlatformProfile
		if err := dec.Decode(&profile); err != nil {
			return fmt.Errorf("platform %s: %w", id, err)
		}
		d.Set(id, profile)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
