package models

import "time"

// Template pairs a YAML field skeleton with natural-language generation
// instructions used to steer the model's output
type Template struct {
	// Frontmatter fields
	ID           string    `yaml:"id" json:"id"`
	Name         string    `yaml:"name" json:"name"`
	Description  string    `yaml:"description" json:"description"`
	YAMLSkeleton string    `yaml:"yaml_skeleton" json:"yamlSkeleton"`
	IsBuiltIn    bool      `yaml:"-" json:"isBuiltIn"`
	CreatedAt    time.Time `yaml:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `yaml:"updated_at" json:"updatedAt"`

	// Content fields
	Instructions string `yaml:"-" json:"generationInstructions"` // Markdown body after frontmatter
	FilePath     string `yaml:"-" json:"-"`
}

// TemplateInput holds the user-editable fields of a template
type TemplateInput struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	YAMLSkeleton string `json:"yamlSkeleton"`
	Instructions string `json:"generationInstructions"`
}

// TemplatePatch is a partial update; nil fields are left untouched
type TemplatePatch struct {
	Name         *string `json:"name,omitempty"`
	Description  *string `json:"description,omitempty"`
	YAMLSkeleton *string `json:"yamlSkeleton,omitempty"`
	Instructions *string `json:"generationInstructions,omitempty"`
}

// TemplateSuggestion scores how well a template fits a document
type TemplateSuggestion struct {
	Template   Template `json:"template"`
	Confidence float64  `json:"confidence"`
	Reason     string   `json:"reason,omitempty"`
}
