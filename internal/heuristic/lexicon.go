package heuristic

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexicon []byte

// Lexicon holds every word list the extractor scores against.
type Lexicon struct {
	Diseases          []DiseaseEntry `yaml:"diseases"`
	GenericQualifiers []string       `yaml:"genericQualifiers"`
	Countries         []CountryEntry `yaml:"countries"`
	Keywords          KeywordTiers   `yaml:"keywords"`
	Status            StatusCues     `yaml:"status"`
}

// DiseaseEntry maps surface terms to a canonical disease name.
type DiseaseEntry struct {
	Name     string   `yaml:"name"`
	Pathogen string   `yaml:"pathogen"`
	Terms    []string `yaml:"terms"`
}

// CountryEntry is one gazetteer row.
type CountryEntry struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

// KeywordTiers groups the scoring word lists.
type KeywordTiers struct {
	Outbreak         []string `yaml:"outbreak"`
	SeverityHigh     []string `yaml:"severityHigh"`
	SeverityModerate []string `yaml:"severityModerate"`
}

// StatusCues are phrases that imply an outbreak status.
type StatusCues struct {
	Resolved   []string `yaml:"resolved"`
	Controlled []string `yaml:"controlled"`
	Emerging   []string `yaml:"emerging"`
	Ongoing    []string `yaml:"ongoing"`
}

// DefaultLexicon returns the lexicon compiled into the binary.
func DefaultLexicon() (Lexicon, error) {
	return parseLexicon(defaultLexicon)
}

// LoadLexicon reads a YAML lexicon from path; an empty path yields the default.
func LoadLexicon(path string) (Lexicon, error) {
	if path == "" {
		return DefaultLexicon()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Lexicon{}, fmt.Errorf("read lexicon %s: %w", path, err)
	}
	lex, err := parseLexicon(raw)
	if err != nil {
		return Lexicon{}, fmt.Errorf("lexicon %s: %w", path, err)
	}
	return lex, nil
}

func parseLexicon(raw []byte) (Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(raw, &lex); err != nil {
		return Lexicon{}, fmt.Errorf("parse lexicon: %w", err)
	}
	if len(lex.Diseases) == 0 {
		return Lexicon{}, fmt.Errorf("lexicon has no diseases")
	}
	if len(lex.Countries) == 0 {
		return Lexicon{}, fmt.Errorf("lexicon has no countries")
	}
	return lex, nil
}
