package prompt

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Prompt represents the structure of a TOML preamble file
type Prompt struct {
	System string `toml:"system"`
}

// LoadPrompt loads a preamble file and returns its contents
func LoadPrompt(filePath string) (*Prompt, error) {
	var prompt Prompt
	if _, err := toml.DecodeFile(filePath, &prompt); err != nil {
		return nil, fmt.Errorf("error decoding preamble file: %w", err)
	}
	if prompt.System == "" {
		return nil, fmt.Errorf("preamble file %s has an empty system field", filePath)
	}
	return &prompt, nil
}
