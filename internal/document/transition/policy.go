package transition

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"notaria/internal/document/models"
	id "notaria/pkg/domain"
	dErrors "notaria/pkg/domain-errors"
)

// Category classifies why a transition needs confirmation.
type Category string

const (
	CategoryNone           Category = "none"
	CategoryCritical       Category = "critical"
	CategoryDirectDelivery Category = "direct_delivery"
	CategoryReversion      Category = "reversion"
)

// Confirmation is the answer to "does this change need explicit approval?".
type Confirmation struct {
	Required bool     `json:"required"`
	Reason   string   `json:"reason,omitempty"`
	Category Category `json:"category"`
}

const (
	reasonCritical       = "the client will be notified of this change"
	reasonDirectDelivery = "confirm the documents are being handed directly to the client"
	reasonReversion      = "reverting may contradict information already sent to the client; a reason is required"
)

type ruleKey struct {
	role     id.Role
	from, to models.Status
}

// Policy decides confirmation requirements. Reversions are always confirmed.
// A (role, from, to) override takes precedence over the generic critical flag
// but never over a reversion.
type Policy struct {
	overrides map[ruleKey]Confirmation
}

// DefaultPolicy lets drafters and archivists hand documents straight to the
// client under the lighter direct-delivery confirmation.
func DefaultPolicy() *Policy {
	p := &Policy{overrides: make(map[ruleKey]Confirmation)}
	direct := Confirmation{Required: true, Reason: reasonDirectDelivery, Category: CategoryDirectDelivery}
	p.overrides[ruleKey{id.RoleDrafter, models.StatusReady, models.StatusDelivered}] = direct
	p.overrides[ruleKey{id.RoleArchive, models.StatusReady, models.StatusDelivered}] = direct
	return p
}

// RequiresConfirmation classifies from -> to for role. Invalid edges need no
// confirmation; Validate rejects them.
func (p *Policy) RequiresConfirmation(from, to models.Status, role id.Role) Confirmation {
	if !IsValid(from, to) {
		return Confirmation{Category: CategoryNone}
	}
	if IsReversion(from, to) {
		return Confirmation{Required: true, Reason: reasonReversion, Category: CategoryReversion}
	}
	if c, ok := p.overrides[ruleKey{role, from, to}]; ok {
		return c
	}
	if IsCritical(from, to) {
		return Confirmation{Required: true, Reason: reasonCritical, Category: CategoryCritical}
	}
	return Confirmation{Category: CategoryNone}
}

// Rule is one YAML override entry.
type Rule struct {
	Role         string `yaml:"role"`
	From         string `yaml:"from"`
	To           string `yaml:"to"`
	Confirmation string `yaml:"confirmation"`
	Reason       string `yaml:"reason"`
}

type policyFile struct {
	Defaults *bool  `yaml:"defaults"`
	Rules    []Rule `yaml:"rules"`
}

// LoadPolicyFile reads a YAML policy. An empty path returns DefaultPolicy.
func LoadPolicyFile(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open confirmation policy: %w", err)
	}
	defer f.Close()
	return LoadPolicy(f)
}

// LoadPolicy parses overrides layered on DefaultPolicy, or on an empty table
// when the document sets `defaults: false`.
func LoadPolicy(r io.Reader) (*Policy, error) {
	var pf policyFile
	if err := yaml.NewDecoder(r).Decode(&pf); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode confirmation policy: %w", err)
	}
	p := DefaultPolicy()
	if pf.Defaults != nil && !*pf.Defaults {
		p.overrides = make(map[ruleKey]Confirmation)
	}
	for i, rule := range pf.Rules {
		key, c, err := rule.compile()
		if err != nil {
			return nil, fmt.Errorf("confirmation policy rule %d: %w", i, err)
		}
		p.overrides[key] = c
	}
	return p, nil
}

func (r Rule) compile() (ruleKey, Confirmation, error) {
	role, err := id.ParseRole(r.Role)
	if err != nil {
		return ruleKey{}, Confirmation{}, err
	}
	from, err := models.ParseStatus(r.From)
	if err != nil {
		return ruleKey{}, Confirmation{}, err
	}
	to, err := models.ParseStatus(r.To)
	if err != nil {
		return ruleKey{}, Confirmation{}, err
	}
	if !IsValid(from, to) {
		return ruleKey{}, Confirmation{}, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("transition from %s to %s is not allowed", from, to))
	}
	if IsReversion(from, to) {
		return ruleKey{}, Confirmation{}, dErrors.New(dErrors.CodeValidation, "reversions are always confirmed and cannot be overridden")
	}
	key := ruleKey{role, from, to}
	switch Category(strings.ToLower(strings.TrimSpace(r.Confirmation))) {
	case CategoryNone:
		return key, Confirmation{Category: CategoryNone}, nil
	case CategoryCritical:
		return key, Confirmation{Required: true, Reason: orDefault(r.Reason, reasonCritical), Category: CategoryCritical}, nil
	case CategoryDirectDelivery:
		return key, Confirmation{Required: true, Reason: orDefault(r.Reason, reasonDirectDelivery), Category: CategoryDirectDelivery}, nil
	default:
		return ruleKey{}, Confirmation{}, dErrors.New(dErrors.CodeValidation, "unknown confirmation "+r.Confirmation)
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
