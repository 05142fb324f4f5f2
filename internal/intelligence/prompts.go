package intelligence

import (
	"bytes"
	_ "embed"
	"github.com/myrjola/chronicler/internal/ai"
	"github.com/myrjola/chronicler/internal/errors"
	"gopkg.in/yaml.v3"
	"strings"
	"text/template"
)

//go:embed prompts.yaml
var promptsYAML []byte

type promptTemplate struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

type promptCatalogue struct {
	Analyze     promptTemplate `yaml:"analyze"`
	ExpandNotes promptTemplate `yaml:"expand_notes"`
}

// Prompts renders the model requests from the embedded prompt catalogue.
type Prompts struct {
	analyzeSystem string
	analyzeUser   *template.Template
	expandSystem  string
	expandUser    *template.Template
}

func LoadPrompts() (*Prompts, error) {
	var catalogue promptCatalogue
	if err := yaml.Unmarshal(promptsYAML, &catalogue); err != nil {
		return nil, errors.Wrap(err, "decode prompt catalogue")
	}
	analyzeUser, err := template.New("analyze").Option("missingkey=error").Parse(catalogue.Analyze.User)
	if err != nil {
		return nil, errors.Wrap(err, "parse analyze prompt")
	}
	expandUser, err := template.New("expand_notes").Option("missingkey=error").Parse(catalogue.ExpandNotes.User)
	if err != nil {
		return nil, errors.Wrap(err, "parse expand notes prompt")
	}
	if catalogue.Analyze.System == "" || catalogue.ExpandNotes.System == "" {
		return nil, errors.New("prompt catalogue is missing a system prompt")
	}
	return &Prompts{
		analyzeSystem: catalogue.Analyze.System,
		analyzeUser:   analyzeUser,
		expandSystem:  catalogue.ExpandNotes.System,
		expandUser:    expandUser,
	}, nil
}

type relationshipView struct {
	From string
	To   string
	Type string
}

type analyzeView struct {
	Payload
	Relationships []relationshipView
}

// Analyze renders the JSON mode request that asks for suggestions about payload.
func (p *Prompts) Analyze(payload Payload) (ai.Request, error) {
	names := make(map[string]string, len(payload.Characters))
	for _, character := range payload.Characters {
		names[character.ID] = character.Name
	}
	view := analyzeView{Payload: payload, Relationships: make([]relationshipView, 0, len(payload.Relationships))}
	for _, relationship := range payload.Relationships {
		label := relationship.RelationshipType
		if relationship.RelationshipLabel != nil && *relationship.RelationshipLabel != "" {
			label += " (" + *relationship.RelationshipLabel + ")"
		}
		view.Relationships = append(view.Relationships, relationshipView{
			From: names[relationship.CharacterID],
			To:   names[relationship.RelatedCharacterID],
			Type: label,
		})
	}
	var prompt bytes.Buffer
	if err := p.analyzeUser.Execute(&prompt, view); err != nil {
		return ai.Request{}, errors.Wrap(err, "render analyze prompt")
	}
	return ai.Request{
		System:    p.analyzeSystem,
		Prompt:    prompt.String(),
		JSON:      true,
		MaxTokens: 0,
	}, nil
}

// ExpandNotesInput is the content of a notes expansion request.
type ExpandNotesInput struct {
	CampaignName string
	Characters   []string
	Notes        string
}

// ExpandNotes renders the streaming request that rewrites quick notes into sections.
func (p *Prompts) ExpandNotes(input ExpandNotesInput) (ai.Request, error) {
	var prompt bytes.Buffer
	data := struct {
		CampaignName string
		Characters   string
		Notes        string
	}{
		CampaignName: input.CampaignName,
		Characters:   strings.Join(input.Characters, ", "),
		Notes:        input.Notes,
	}
	if err := p.expandUser.Execute(&prompt, data); err != nil {
		return ai.Request{}, errors.Wrap(err, "render expand notes prompt")
	}
	return ai.Request{
		System:    p.expandSystem,
		Prompt:    strings.TrimSpace(prompt.String()),
		JSON:      false,
		MaxTokens: 0,
	}, nil
}
