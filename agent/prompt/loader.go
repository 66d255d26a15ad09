package prompt

import (
	_ "embed"
	"os"
	"strings"
)

//go:embed template/waiter.txt
var waiterRaw string

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Waiter string
}

// LoadPromptSet returns the embedded prompts, trimmed.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Waiter: strings.TrimSpace(waiterRaw),
	}
}

// LoadPromptSetFrom reads the waiter prompt from path, falling back to the
// embedded one when path is empty.
func LoadPromptSetFrom(path string) (PromptSet, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return LoadPromptSet(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return PromptSet{}, err
	}
	return PromptSet{Waiter: strings.TrimSpace(string(raw))}, nil
}
