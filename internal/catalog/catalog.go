// Package catalog provides the seed set of topics and problems inserted into
// an empty store. The default set is embedded; an alternative YAML file with
// the same shape can be supplied at start-up.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/sakif/practice-tracker/internal/model"
)

//go:embed seed.yaml
var defaultSeed []byte

//go:embed schema.json
var schemaJSON string

type seedDocument struct {
	Topics []seedTopic `yaml:"topics"`
}

type seedTopic struct {
	Title       string        `yaml:"title"`
	Description string        `yaml:"description"`
	Problems    []seedProblem `yaml:"problems"`
}

type seedProblem struct {
	Title          string `yaml:"title"`
	Level          string `yaml:"level"`
	LeetcodeLink   string `yaml:"leetcodeLink"`
	CodeforcesLink string `yaml:"codeforcesLink"`
	YoutubeLink    string `yaml:"youtubeLink"`
	ArticleLink    string `yaml:"articleLink"`
}

// Default returns the embedded seed catalog.
func Default() ([]model.Topic, error) {
	return Parse(defaultSeed)
}

// Load returns the catalog at path, or the embedded one when path is empty.
func Load(path string) ([]model.Topic, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: reading %s: %w", path, err)
	}
	topics, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", path, err)
	}
	return topics, nil
}

// Parse decodes a YAML seed document and validates it against the catalog schema.
func Parse(data []byte) ([]model.Topic, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding seed yaml: %w", err)
	}
	if err := validate(raw); err != nil {
		return nil, err
	}

	var doc seedDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding seed yaml: %w", err)
	}

	topics := make([]model.Topic, 0, len(doc.Topics))
	for _, st := range doc.Topics {
		t := model.Topic{
			Title:       st.Title,
			Description: st.Description,
			Problems:    make([]model.Problem, 0, len(st.Problems)),
		}
		for _, sp := range st.Problems {
			t.Problems = append(t.Problems, model.Problem{
				Title:          sp.Title,
				Level:          sp.Level,
				LeetcodeLink:   sp.LeetcodeLink,
				CodeforcesLink: sp.CodeforcesLink,
				YoutubeLink:    sp.YoutubeLink,
				ArticleLink:    sp.ArticleLink,
			})
		}
		topics = append(topics, t)
	}
	return topics, nil
}

func validate(doc any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemaJSON),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("validating seed: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid seed catalog: %s", strings.Join(msgs, "; "))
}
