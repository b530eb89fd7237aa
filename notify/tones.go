// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package notify

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/danielhkuo/hoa-assembly/models"
)

//go:embed tones.yaml
var tonesYAML []byte

// Tone is the wording of one reminder kind.
type Tone struct {
	Subject  string `yaml:"subject"`
	Headline string `yaml:"headline"`
	Intro    string `yaml:"intro"`
	Closing  string `yaml:"closing"`
	Urgent   bool   `yaml:"urgent"`
}

var loadTones = sync.OnceValues(func() (map[models.ReminderKind]Tone, error) {
	return ParseTones(tonesYAML)
})

// ParseTones decodes a tone table and checks every reminder kind has an entry.
func ParseTones(data []byte) (map[models.ReminderKind]Tone, error) {
	var raw map[string]Tone
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("notify: decode tones: %w", err)
	}
	tones := make(map[models.ReminderKind]Tone, len(raw))
	for key, tone := range raw {
		kind := models.ReminderKind(key)
		if !kind.Valid() {
			return nil, fmt.Errorf("notify: unknown reminder kind %q in tones", key)
		}
		tones[kind] = tone
	}
	for _, kind := range models.ReminderKinds {
		if _, ok := tones[kind]; !ok {
			return nil, fmt.Errorf("notify: no tone for reminder kind %q", kind)
		}
	}
	return tones, nil
}

// ToneFor returns the embedded wording of a reminder kind.
func ToneFor(kind models.ReminderKind) (Tone, error) {
	tones, err := loadTones()
	if err != nil {
		return Tone{}, err
	}
	tone, ok := tones[kind]
	if !ok {
		return Tone{}, fmt.Errorf("notify: no tone for reminder kind %q", kind)
	}
	return tone, nil
}
