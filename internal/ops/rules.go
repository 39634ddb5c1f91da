package ops

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hpungsan/bitext/internal/config"
	"github.com/hpungsan/bitext/internal/db"
	"github.com/hpungsan/bitext/internal/errors"
	"github.com/hpungsan/bitext/internal/model"
	"github.com/hpungsan/bitext/internal/segmenter"
)

// Rule scopes reported by ListRules and EffectiveRules.
const (
	ScopeProject = "project"
	ScopeDefault = "default"
	ScopeBuiltin = "builtin"
)

// RuleStore supplies stored segmentation rules ordered by position.
type RuleStore interface {
	GetAll(ctx context.Context, projectID string, lang model.Language) ([]model.Rule, error)
	GetAllDefault(ctx context.Context, lang model.Language) ([]model.Rule, error)
}

// EffectiveRules returns the rules used to segment lang for a project: the
// project's own rules, else the stored default rules, else the built-in set.
func EffectiveRules(ctx context.Context, rs RuleStore, projectID string, lang model.Language) ([]model.Rule, string, error) {
	if projectID != "" {
		rules, err := rs.GetAll(ctx, projectID, lang)
		if err != nil {
			return nil, "", err
		}
		if len(rules) > 0 {
			return rules, ScopeProject, nil
		}
	}
	rules, err := rs.GetAllDefault(ctx, lang)
	if err != nil {
		return nil, "", err
	}
	if len(rules) > 0 {
		return rules, ScopeDefault, nil
	}
	return segmenter.DefaultRules(lang), ScopeBuiltin, nil
}

// resolveScope maps an optional project reference to a rule scope. Rules for
// a project must use one of its two languages.
func resolveScope(ctx context.Context, database *sql.DB, projectRef string, lang model.Language) (*string, error) {
	if strings.TrimSpace(projectRef) == "" {
		return nil, nil
	}
	p, err := ResolveProject(ctx, database, projectRef)
	if err != nil {
		return nil, err
	}
	if lang != p.SourceLang && lang != p.TargetLang {
		return nil, errors.NewInvalidRequest(fmt.Sprintf(
			"language %s is not used by project %s (%s/%s)", lang, p.Name, p.SourceLang, p.TargetLang))
	}
	return &p.ID, nil
}

// AddRuleInput contains parameters for AddRule.
type AddRuleInput struct {
	Project  string // optional; empty adds to the default scope
	Language string // required
	Before   string
	After    string
	Breaking *bool // default: true
}

// AddRule appends one rule to the end of its scope's list.
func AddRule(ctx context.Context, database *sql.DB, input AddRuleInput) (*model.Rule, error) {
	lang, err := parseLanguage("language", input.Language)
	if err != nil {
		return nil, err
	}
	if input.Before == "" && input.After == "" {
		return nil, errors.NewInvalidRequest("before and after must not both be empty")
	}
	breaking := true
	if input.Breaking != nil {
		breaking = *input.Breaking
	}
	rule := model.Rule{
		Language:      lang,
		BeforePattern: input.Before,
		AfterPattern:  input.After,
		Breaking:      breaking,
	}
	if _, err := segmenter.Compile([]model.Rule{rule}); err != nil {
		return nil, err
	}

	projectID, err := resolveScope(ctx, database, input.Project, lang)
	if err != nil {
		return nil, err
	}
	rules := []model.Rule{rule}
	if err := db.AppendRules(ctx, database, projectID, lang, rules); err != nil {
		return nil, err
	}
	return &rules[0], nil
}

// ListRulesInput contains parameters for ListRules.
type ListRulesInput struct {
	Project  string // optional; empty lists the default scope
	Language string // required

	// Effective lists the rules an import would use, following the
	// project -> default -> built-in fallback.
	Effective bool
}

// ListRulesOutput contains the result of ListRules.
type ListRulesOutput struct {
	Language model.Language `json:"language"`
	Scope    string         `json:"scope"`
	Rules    []model.Rule   `json:"rules"`
}

// ListRules returns the rules of one scope, or the effective rules.
func ListRules(ctx context.Context, database *sql.DB, input ListRulesInput) (*ListRulesOutput, error) {
	lang, err := parseLanguage("language", input.Language)
	if err != nil {
		return nil, err
	}
	projectID, err := resolveScope(ctx, database, input.Project, lang)
	if err != nil {
		return nil, err
	}

	if input.Effective {
		id := ""
		if projectID != nil {
			id = *projectID
		}
		rules, scope, err := EffectiveRules(ctx, db.NewRuleStore(database), id, lang)
		if err != nil {
			return nil, err
		}
		return &ListRulesOutput{Language: lang, Scope: scope, Rules: rules}, nil
	}

	rules, err := db.ListRules(ctx, database, projectID, lang)
	if err != nil {
		return nil, err
	}
	scope := ScopeDefault
	if projectID != nil {
		scope = ScopeProject
	}
	return &ListRulesOutput{Language: lang, Scope: scope, Rules: rules}, nil
}

// DeleteRule deletes one stored rule.
func DeleteRule(ctx context.Context, database *sql.DB, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.NewInvalidRequest("id is required")
	}
	return db.DeleteRule(ctx, database, id)
}

// ImportRulesInput contains parameters for ImportRules.
type ImportRulesInput struct {
	Path    string // required, .yaml or .yml
	Project string // optional; empty imports into the default scope

	// Replace drops the scope's existing rules for the file's language first.
	Replace bool
}

// ImportRulesOutput contains the result of ImportRules.
type ImportRulesOutput struct {
	Language model.Language `json:"language"`
	Scope    string         `json:"scope"`
	Imported int            `json:"imported"`
	Replaced bool           `json:"replaced"`
}

// ImportRules loads a YAML rule file into a scope.
func ImportRules(ctx context.Context, database *sql.DB, cfg *config.Config, input ImportRulesInput) (*ImportRulesOutput, error) {
	if err := ValidatePath(input.Path, PathCheckRules, cfg); err != nil {
		return nil, err
	}
	f, err := openFileNoFollowRead(input.Path)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open rule file: %w", err))
	}
	defer f.Close()

	lang, rules, err := segmenter.LoadRuleFile(f)
	if err != nil {
		return nil, err
	}
	projectID, err := resolveScope(ctx, database, input.Project, lang)
	if err != nil {
		return nil, err
	}

	if input.Replace {
		err = db.ReplaceRules(ctx, database, projectID, lang, rules)
	} else {
		err = db.AppendRules(ctx, database, projectID, lang, rules)
	}
	if err != nil {
		return nil, err
	}

	scope := ScopeDefault
	if projectID != nil {
		scope = ScopeProject
	}
	return &ImportRulesOutput{Language: lang, Scope: scope, Imported: len(rules), Replaced: input.Replace}, nil
}

// ExportRules renders the effective rules for a language as a YAML rule file.
func ExportRules(ctx context.Context, database *sql.DB, input ListRulesInput) ([]byte, error) {
	input.Effective = true
	out, err := ListRules(ctx, database, input)
	if err != nil {
		return nil, err
	}
	data, err := segmenter.MarshalRuleFile(out.Language, out.Rules)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return data, nil
}
