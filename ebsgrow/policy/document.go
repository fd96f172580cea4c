package policy

import (
	"encoding/json"
	"fmt"
	"os"
)

const Version = "2012-10-17"

// StringOrArr accepts either a JSON string or an array of strings, as IAM
// does for Action and Resource.
type StringOrArr []string

func (s *StringOrArr) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = StringOrArr{single}
		return nil
	}

	var multi []string
	if err := json.Unmarshal(data, &multi); err != nil {
		return fmt.Errorf("expected string or array of strings: %w", err)
	}
	*s = multi
	return nil
}

type Statement struct {
	Sid      string      `json:"Sid,omitempty"`
	Effect   string      `json:"Effect"`
	Action   StringOrArr `json:"Action"`
	Resource StringOrArr `json:"Resource"`
}

type PolicyDocument struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

// ParseDocument decodes a policy document and checks every statement has a
// known effect.
func ParseDocument(data []byte) (*PolicyDocument, error) {
	var doc PolicyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid policy document: %w", err)
	}

	for i, stmt := range doc.Statement {
		if stmt.Effect != "Allow" && stmt.Effect != "Deny" {
			return nil, fmt.Errorf("statement %d: invalid effect %q", i, stmt.Effect)
		}
	}
	return &doc, nil
}

// LoadDocument reads a policy document from path
func LoadDocument(path string) (*PolicyDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseDocument(data)
}
