package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultPromptTemplate(t *testing.T) {
	if n := strings.Count(DefaultPromptTemplate, ContextPlaceholder); n != 1 {
		t.Fatalf("placeholder count = %d, want 1", n)
	}
	for _, topic := range []string{"Bruttoinlandsprodukt (BIP)", "Inflation (HVPI)", "Zinsstruktur (Swapkurve)", "Wirtschaftliche Risiken"} {
		if !strings.Contains(DefaultPromptTemplate, topic) {
			t.Errorf("template misses topic %q", topic)
		}
	}
}

func TestParsePromptProfile(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		wantErr  bool
		validate func(t *testing.T, p PromptProfile)
	}{
		{
			name: "empty file keeps defaults",
			yaml: "",
			validate: func(t *testing.T, p PromptProfile) {
				if p.Template != DefaultPromptTemplate || p.Budget != 6000 || *p.Temperature != 0.7 {
					t.Errorf("profile = %+v", p)
				}
			},
		},
		{
			name: "explicit zero temperature",
			yaml: "temperature: 0\nchunk_chars: 250\n",
			validate: func(t *testing.T, p PromptProfile) {
				if *p.Temperature != 0 || p.ChunkChars != 250 {
					t.Errorf("temperature = %v, chunk = %d", *p.Temperature, p.ChunkChars)
				}
			},
		},
		{name: "unknown key", yaml: "budgett: 10\n", wantErr: true},
		{name: "template without placeholder", yaml: "template: nur Text\n", wantErr: true},
		{name: "template with two placeholders", yaml: "template: \"{{context}} {{context}}\"\n", wantErr: true},
		{name: "malformed yaml", yaml: "title: [unclosed\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePromptProfile([]byte(tt.yaml))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePromptProfile() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.validate != nil {
				tt.validate(t, p)
			}
		})
	}
}

func TestParsePromptProfileFormat_TOML(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
		check   func(t *testing.T, p PromptProfile)
	}{
		{
			name: "overrides",
			input: `title = "Zinsausblick"
temperature = 0.2
budget = 3000
template = """
Kurzer Ausblick.
{{context}}"""
`,
			check: func(t *testing.T, p PromptProfile) {
				if p.Title != "Zinsausblick" || p.Budget != 3000 || *p.Temperature != 0.2 {
					t.Errorf("profile = %+v", p)
				}
				if p.Template != "Kurzer Ausblick.\n{{context}}" {
					t.Errorf("Template = %q", p.Template)
				}
				if p.Model != "gpt-4" || p.ChunkChars != 1000 {
					t.Errorf("defaults lost: model %q, chunk %d", p.Model, p.ChunkChars)
				}
			},
		},
		{name: "unknown key", input: "titel = \"x\"\n", wantErr: "unknown keys titel"},
		{name: "syntax error", input: "title = \n", wantErr: "invalid TOML"},
		{name: "missing placeholder", input: "template = \"ohne Platzhalter\"\n", wantErr: "0 occurrences"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePromptProfileFormat([]byte(tt.input), ProfileFormatTOML)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, p)
		})
	}
}

func TestProfileFormat(t *testing.T) {
	tests := map[string]string{
		"prompt.toml": ProfileFormatTOML,
		"PROMPT.TOML": ProfileFormatTOML,
		"prompt.yaml": ProfileFormatYAML,
		"prompt.yml":  ProfileFormatYAML,
		"prompt":      ProfileFormatYAML,
	}
	for path, want := range tests {
		if got := ProfileFormat(path); got != want {
			t.Errorf("ProfileFormat(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestLoadPromptProfile_TOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.toml")
	if err := os.WriteFile(path, []byte("model = \"gpt-4o\"\nmax_output_tokens = 900\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	p, err := LoadPromptProfile(path)
	if err != nil {
		t.Fatalf("LoadPromptProfile() error = %v", err)
	}
	if p.Model != "gpt-4o" || p.MaxOutputTokens != 900 || p.Template != DefaultPromptTemplate {
		t.Errorf("profile = %+v", p)
	}

	if _, err := ParsePromptProfileFormat(nil, "ini"); err == nil {
		t.Error("unknown format accepted")
	}
}
