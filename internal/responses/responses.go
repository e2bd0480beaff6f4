package responses

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
)

// Keys the catalog file must define. Load fails if any is missing or empty,
// so a bad catalog stops the process at startup instead of mid-conversation.
var RequiredKeys = []string{
	"menu",
	"cancel",
	"user_not_registered",
	"user_new_keyboard_button",
	"user_new_prompt",
	"user_register_success",
	"username_invalid_characters",
	"username_too_short",
	"username_too_long",
	"joke_new_prompt",
	"joke_submitted",
	"joke_too_short",
	"joke_too_long",
	"no_new_jokes",
	"joke_no_favorite",
	"joke_no_current",
	"hah_or_nah",
	"after_vote",
}

// Catalog holds the reply texts keyed by conversation event. Each key maps to
// one or more variants; Random picks among them so the bot does not sound
// like a broken record.
type Catalog struct {
	entries map[string][]string
}

func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read responses file %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var entries map[string][]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse responses: %w", err)
	}

	for _, key := range RequiredKeys {
		variants, ok := entries[key]
		if !ok || len(variants) == 0 {
			return nil, fmt.Errorf("responses catalog is missing key %q", key)
		}
	}

	return &Catalog{entries: entries}, nil
}

// One returns the first variant for the key. Used where the text must be
// stable, like the register keyboard button the router matches against.
func (c *Catalog) One(key string) string {
	variants := c.entries[key]
	if len(variants) == 0 {
		return key
	}
	return variants[0]
}

// Random returns a uniformly random variant for the key.
func (c *Catalog) Random(key string) string {
	variants := c.entries[key]
	if len(variants) == 0 {
		return key
	}
	return variants[rand.IntN(len(variants))]
}
