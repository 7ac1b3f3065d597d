package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// embeds all .yaml files in the templates folder into Go program at compile time
//
//go:embed templates/*.yaml
var templateFS embed.FS

// template names
const (
	NextQuestion = "next_question"
	Evaluation   = "evaluation"

	DefaultVariant = "default"
)

// PromptProvider renders prompts; satisfied by *PromptManager.
type PromptProvider interface {
	BuildPrompt(name, variant string, data any) (string, error)
	GetTemplates() []string
}

type PromptManager struct {
	prompts map[string]map[string]*template.Template // name -> variant -> compiled prompt
}

// loaded prompt template
type PromptTemplate struct {
	BasePrompt string            `yaml:"base_prompt"`
	Variants   map[string]string `yaml:"variants"`
}

var funcs = template.FuncMap{
	"join": strings.Join,
}

// creates a new prompt manager and loads templates
func NewPromptManager() (*PromptManager, error) {
	pm := &PromptManager{
		prompts: make(map[string]map[string]*template.Template),
	}

	if err := pm.loadPrompts(); err != nil {
		return nil, fmt.Errorf("failed to load prompt templates: %w", err)
	}

	return pm, nil
}

// BuildPrompt renders the named template variant with data.
func (pm *PromptManager) BuildPrompt(name, variant string, data any) (string, error) {
	variants, exists := pm.prompts[name]
	if !exists {
		return "", fmt.Errorf("template not found: %s", name)
	}

	tmpl, exists := variants[variant]
	if !exists {
		return "", fmt.Errorf("variant '%s' not found for template '%s'", variant, name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s/%s: %w", name, variant, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// GetTemplates lists loaded templates as name/variant pairs.
func (pm *PromptManager) GetTemplates() []string {
	var out []string
	for name, variants := range pm.prompts {
		for variant := range variants {
			out = append(out, name+"/"+variant)
		}
	}
	sort.Strings(out)
	return out
}

// loadPrompts loads all YAML prompt files from the embedded filesystem
func (pm *PromptManager) loadPrompts() error {
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return fmt.Errorf("failed to read templates directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		data, err := templateFS.ReadFile("templates/" + entry.Name())
		if err != nil {
			return fmt.Errorf("failed to read template file %s: %w", entry.Name(), err)
		}

		var promptTemplate PromptTemplate
		if err := yaml.Unmarshal(data, &promptTemplate); err != nil {
			return fmt.Errorf("failed to parse template file %s: %w", entry.Name(), err)
		}

		name := strings.TrimSuffix(entry.Name(), ".yaml")
		pm.prompts[name] = make(map[string]*template.Template)

		for variant, body := range promptTemplate.Variants {
			var full strings.Builder
			if promptTemplate.BasePrompt != "" {
				full.WriteString(promptTemplate.BasePrompt)
				full.WriteString("\n\n")
			}
			full.WriteString(body)

			tmpl, err := template.New(name + "/" + variant).Funcs(funcs).Option("missingkey=error").Parse(full.String())
			if err != nil {
				return fmt.Errorf("failed to compile %s/%s: %w", name, variant, err)
			}
			pm.prompts[name][variant] = tmpl
		}
	}

	return nil
}
