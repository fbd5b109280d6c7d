package config

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
)

// PolicyDocument is the YAML form of a policy. Omitted thresholds take the
// default policy's values.
type PolicyDocument struct {
	Name                 string  `yaml:"name"`
	CreatedBy            string  `yaml:"created_by"`
	ReviewThreshold      float64 `yaml:"risk_review_threshold"`
	DraftThreshold       float64 `yaml:"draft_order_threshold"`
	AutoThreshold        float64 `yaml:"auto_order_threshold"`
	MaxAutoActionsPerDay int     `yaml:"max_auto_actions_per_day"`
	Activate             bool    `yaml:"activate"`
}

// LoadedPolicy is a validated policy with the digest of its source document.
type LoadedPolicy struct {
	Policy   model.Policy
	Hash     string
	Bytes    []byte
	Activate bool
}

// LoadPolicyFile reads, validates and hashes a YAML policy document.
func LoadPolicyFile(path string) (LoadedPolicy, error) {
	// #nosec G304 -- path is supplied by the operator.
	data, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return LoadedPolicy{}, fmt.Errorf("failed to read policy file: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes a YAML policy document. Unknown keys are rejected so a
// misspelled threshold cannot silently fall back to its default.
func ParsePolicy(data []byte) (LoadedPolicy, error) {
	doc := PolicyDocument{
		ReviewThreshold:      model.DefaultReviewThreshold,
		DraftThreshold:       model.DefaultDraftThreshold,
		AutoThreshold:        model.DefaultAutoThreshold,
		MaxAutoActionsPerDay: model.DefaultMaxAutoActionsPerDay,
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return LoadedPolicy{}, fmt.Errorf("failed to parse policy document: %w", err)
	}

	p := model.Policy{
		ID:                   uuid.NewString(),
		Name:                 doc.Name,
		CreatedBy:            doc.CreatedBy,
		CreatedAt:            time.Now().UTC(),
		ReviewThreshold:      doc.ReviewThreshold,
		DraftThreshold:       doc.DraftThreshold,
		AutoThreshold:        doc.AutoThreshold,
		MaxAutoActionsPerDay: doc.MaxAutoActionsPerDay,
	}
	if err := p.Validate(); err != nil {
		return LoadedPolicy{}, err
	}

	return LoadedPolicy{
		Policy:   p,
		Hash:     Digest(data),
		Bytes:    data,
		Activate: doc.Activate,
	}, nil
}

// Digest returns the prefixed SHA-256 digest of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// PolicyHash digests the decision-relevant fields of a policy. Two policies
// with the same name, thresholds and quota hash the same regardless of ID or
// creation time.
func PolicyHash(p model.Policy) string {
	canonical := struct {
		Name    string  `json:"name"`
		Review  float64 `json:"risk_review_threshold"`
		Draft   float64 `json:"draft_order_threshold"`
		Auto    float64 `json:"auto_order_threshold"`
		MaxAuto int     `json:"max_auto_actions_per_day"`
	}{p.Name, p.ReviewThreshold, p.DraftThreshold, p.AutoThreshold, p.MaxAutoActionsPerDay}

	// Marshaling a struct of strings and numbers cannot fail.
	data, _ := json.Marshal(canonical)
	return Digest(data)
}
