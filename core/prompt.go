package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ContextPlaceholder marks where extracted document text goes in a prompt
// template.
const ContextPlaceholder = "{{context}}"

// DefaultTitle is the heading of the web page and of exported documents.
const DefaultTitle = "📊 Volkswirtschaftliche Prognose für die Mittelfristplanung"

// DefaultDescription is shown under the title.
const DefaultDescription = "Die Prognose basiert auf einem vordefinierten Experten-Prompt."

// DefaultPromptTemplate is the built-in economist prompt.
const DefaultPromptTemplate = `Du bist ein Ökonom und erstellst eine volkswirtschaftliche Prognose für die Mittelfristplanung einer kleinen deutschen Regionalbank. Gib einen vollständigen Ausblick für die nächsten 3–5 Jahre:

1. Bruttoinlandsprodukt (BIP)
2. Inflation (HVPI)
3. Arbeitsmarkt (Beschäftigung, Arbeitslosenquote)
4. Geldpolitik der EZB (Leitzinsen, Zinsprognose)
5. Zinsstruktur (Swapkurve)
6. Erwartungen zu geopolitischen Risiken
7. Auswirkungen auf das Bankgeschäft
8. Wirtschaftliche Risiken

Berücksichtige die folgenden Hintergrundinformationen aus den bereitgestellten Dokumenten, sofern vorhanden:

---
{{context}}
---

Bitte professionell und strukturiert antworten, ideal für ein Vorstandsgremium.`

// PromptProfile is the optional YAML or TOML file named by PROMPT_FILE.
// Zero fields keep the built-in value; environment variables still win
// over the file.
type PromptProfile struct {
	Title           string   `yaml:"title" toml:"title"`
	Description     string   `yaml:"description" toml:"description"`
	Template        string   `yaml:"template" toml:"template"`
	Model           string   `yaml:"model" toml:"model"`
	Temperature     *float64 `yaml:"temperature" toml:"temperature"`
	MaxOutputTokens int      `yaml:"max_output_tokens" toml:"max_output_tokens"`
	Budget          int      `yaml:"budget" toml:"budget"`
	ChunkChars      int      `yaml:"chunk_chars" toml:"chunk_chars"`
}

// Profile file formats, chosen by extension.
const (
	ProfileFormatYAML = "yaml"
	ProfileFormatTOML = "toml"
)

// ProfileFormat returns the format for path. Anything that is not .toml
// is read as YAML.
func ProfileFormat(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return ProfileFormatTOML
	}
	return ProfileFormatYAML
}

// DefaultPromptProfile returns the built-in profile.
func DefaultPromptProfile() PromptProfile {
	temp := 0.7
	return PromptProfile{
		Title:           DefaultTitle,
		Description:     DefaultDescription,
		Template:        DefaultPromptTemplate,
		Model:           "gpt-4",
		Temperature:     &temp,
		MaxOutputTokens: 1800,
		Budget:          6000,
		ChunkChars:      1000,
	}
}

// LoadPromptProfile reads path and merges it over the built-in profile.
func LoadPromptProfile(path string) (PromptProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PromptProfile{}, ErrPromptProfile(path, err)
	}
	p, err := ParsePromptProfileFormat(data, ProfileFormat(path))
	if err != nil {
		return PromptProfile{}, ErrPromptProfile(path, err)
	}
	return p, nil
}

// ParsePromptProfile decodes YAML and merges it over the built-in profile.
func ParsePromptProfile(data []byte) (PromptProfile, error) {
	return ParsePromptProfileFormat(data, ProfileFormatYAML)
}

// ParsePromptProfileFormat decodes data in the given format and merges it
// over the built-in profile. Unknown keys are rejected so that typos do
// not go unnoticed.
func ParsePromptProfileFormat(data []byte, format string) (PromptProfile, error) {
	var file PromptProfile
	switch format {
	case ProfileFormatTOML:
		md, err := toml.Decode(string(data), &file)
		if err != nil {
			return PromptProfile{}, fmt.Errorf("invalid TOML: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return PromptProfile{}, fmt.Errorf("invalid TOML: unknown keys %s", strings.Join(keys, ", "))
		}
	case ProfileFormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
			return PromptProfile{}, fmt.Errorf("invalid YAML: %w", err)
		}
	default:
		return PromptProfile{}, fmt.Errorf("unsupported profile format %q", format)
	}

	return mergeProfile(file)
}

func mergeProfile(file PromptProfile) (PromptProfile, error) {
	p := DefaultPromptProfile()
	if s := strings.TrimSpace(file.Title); s != "" {
		p.Title = s
	}
	if s := strings.TrimSpace(file.Description); s != "" {
		p.Description = s
	}
	if strings.TrimSpace(file.Template) != "" {
		p.Template = strings.TrimRight(file.Template, "\n")
	}
	if s := strings.TrimSpace(file.Model); s != "" {
		p.Model = s
	}
	if file.Temperature != nil {
		p.Temperature = file.Temperature
	}
	if file.MaxOutputTokens != 0 {
		p.MaxOutputTokens = file.MaxOutputTokens
	}
	if file.Budget != 0 {
		p.Budget = file.Budget
	}
	if file.ChunkChars != 0 {
		p.ChunkChars = file.ChunkChars
	}

	if n := strings.Count(p.Template, ContextPlaceholder); n != 1 {
		return PromptProfile{}, ErrPromptTemplate(fmt.Sprintf("found %d occurrences of %s", n, ContextPlaceholder))
	}
	return p, nil
}
