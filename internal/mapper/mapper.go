// Package mapper resolves natural-language issue fields against project
// metadata, producing a fully validated field set ready for submission.
//
// Map never stops at the first problem: every invalid or ambiguous field
// is collected into one ValidationError so the caller can fix the whole
// request in a single round trip.
package mapper

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/constructo/acc-issues-mcp/internal/metadata"
	"github.com/constructo/acc-issues-mcp/pkg/types"
)

// Field length limits imposed by the remote API, in characters.
const (
	TitleMaxLen       = 100
	DescriptionMaxLen = 1000
	LocationMaxLen    = 250
)

// IssueRequest is the natural-language or semi-structured input
// describing a desired issue. Transient, owned by one tool invocation.
type IssueRequest struct {
	Title            string
	Description      string
	IssueType        string // type/subtype words, e.g. "quality" or "punch list"
	Status           string
	AssignedTo       string
	DueDate          string // ISO 8601 date
	LocationDetails  string
	CustomAttributes map[string]any
}

// AttributeValue is a resolved custom attribute ready for submission.
type AttributeValue struct {
	DefinitionID string
	Value        any
}

// MappedIssue is the validated field set derived from an IssueRequest
// and the project schema.
type MappedIssue struct {
	Title            string
	Description      string
	TypeID           string
	SubtypeID        string
	Status           string // resolved status name
	AssignedTo       string
	DueDate          string
	LocationDetails  string
	CustomAttributes []AttributeValue
}

// Map validates and resolves req against meta. On failure it returns a
// ValidationError listing every violation found.
func Map(req IssueRequest, meta *metadata.ProjectMetadata) (*MappedIssue, error) {
	var violations []types.Violation
	mapped := &MappedIssue{
		AssignedTo:      req.AssignedTo,
		LocationDetails: req.LocationDetails,
	}

	switch {
	case strings.TrimSpace(req.Title) == "":
		violations = append(violations, types.Violation{
			Field: "title", Reason: "title is required",
		})
	case utf8.RuneCountInString(req.Title) > TitleMaxLen:
		violations = append(violations, types.Violation{
			Field: "title", Value: truncate(req.Title),
			Reason: fmt.Sprintf("must be at most %d characters", TitleMaxLen),
		})
	default:
		mapped.Title = req.Title
	}

	if utf8.RuneCountInString(req.Description) > DescriptionMaxLen {
		violations = append(violations, types.Violation{
			Field: "description", Value: truncate(req.Description),
			Reason: fmt.Sprintf("must be at most %d characters", DescriptionMaxLen),
		})
	} else {
		mapped.Description = req.Description
	}

	if utf8.RuneCountInString(req.LocationDetails) > LocationMaxLen {
		violations = append(violations, types.Violation{
			Field: "location_details", Value: truncate(req.LocationDetails),
			Reason: fmt.Sprintf("must be at most %d characters", LocationMaxLen),
		})
		mapped.LocationDetails = ""
	}

	typeID, subtypeID, v := resolveIssueType(req.IssueType, meta)
	if v != nil {
		violations = append(violations, *v)
	} else {
		mapped.TypeID = typeID
		mapped.SubtypeID = subtypeID
	}

	// Status scoping depends on the subtype. With the subtype unknown,
	// the word is still checked against every project status so a bad
	// status is reported in the same round trip as the bad type.
	if subtypeID != "" {
		status, v := ResolveStatus(req.Status, subtypeID, meta)
		if v != nil {
			violations = append(violations, *v)
		} else if status != nil {
			mapped.Status = status.Name
		}
	} else if v := checkStatusAgainstAll(req.Status, meta); v != nil {
		violations = append(violations, *v)
	}

	if req.DueDate != "" {
		normalized, v := parseDueDate(req.DueDate)
		if v != nil {
			violations = append(violations, *v)
		} else {
			mapped.DueDate = normalized
		}
	}

	attrs, attrViolations := resolveAttributes(req.CustomAttributes, meta)
	violations = append(violations, attrViolations...)
	mapped.CustomAttributes = attrs

	if len(violations) > 0 {
		return nil, &types.ValidationError{Violations: violations}
	}
	return mapped, nil
}

// resolveIssueType matches the free-form type words against active
// subtype names (and "type subtype" combinations).
func resolveIssueType(query string, meta *metadata.ProjectMetadata) (typeID, subtypeID string, v *types.Violation) {
	type candidate struct {
		typeID, subtypeID, label string
	}
	var all []candidate
	for _, it := range meta.IssueTypes {
		if !it.IsActive {
			continue
		}
		for _, st := range it.Subtypes {
			if !st.IsActive {
				continue
			}
			all = append(all, candidate{it.ID, st.ID, st.Name})
			if !strings.EqualFold(it.Name, st.Name) {
				all = append(all, candidate{it.ID, st.ID, it.Name + " " + st.Name})
			}
		}
	}

	if strings.TrimSpace(query) == "" {
		return "", "", &types.Violation{
			Field:   "issue_type",
			Reason:  "issue type is required",
			Allowed: candidateLabels(all, func(c candidate) string { return c.label }),
		}
	}

	labels := make([]string, len(all))
	for i, c := range all {
		labels[i] = c.label
	}
	idx, matches := matchName(query, labels)
	switch {
	case idx >= 0:
		return all[idx].typeID, all[idx].subtypeID, nil
	case len(matches) == 0:
		return "", "", &types.Violation{
			Field: "issue_type", Value: query,
			Reason:  "no matching issue type",
			Allowed: candidateLabels(all, func(c candidate) string { return c.label }),
		}
	default:
		return "", "", &types.Violation{
			Field: "issue_type", Value: query,
			Reason:  "ambiguous issue type",
			Allowed: matches,
		}
	}
}

// ResolveStatus matches free-form status words against the statuses
// valid for the given subtype. An empty query resolves to the subtype's
// default status (nil when none is defined). Exported for update paths
// that validate a status change against an existing issue's subtype.
func ResolveStatus(query, subtypeID string, meta *metadata.ProjectMetadata) (*metadata.Status, *types.Violation) {
	valid := meta.StatusesForSubtype(subtypeID)

	if strings.TrimSpace(query) == "" {
		return meta.DefaultStatusForSubtype(subtypeID), nil
	}

	names := make([]string, len(valid))
	for i, s := range valid {
		names[i] = s.Name
	}
	idx, matches := matchName(query, names)
	switch {
	case idx >= 0:
		cp := valid[idx]
		return &cp, nil
	case len(matches) == 0:
		return nil, &types.Violation{
			Field: "status", Value: query,
			Reason:  "no matching status for this issue type",
			Allowed: names,
		}
	default:
		return nil, &types.Violation{
			Field: "status", Value: query,
			Reason:  "ambiguous status",
			Allowed: matches,
		}
	}
}

// checkStatusAgainstAll matches a status word against the union of all
// project statuses. Used when the subtype could not be resolved: the
// proper scoped check is impossible, but a word matching no status at
// all is a violation worth reporting alongside the type failure.
func checkStatusAgainstAll(query string, meta *metadata.ProjectMetadata) *types.Violation {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	names := make([]string, len(meta.Statuses))
	for i, s := range meta.Statuses {
		names[i] = s.Name
	}
	// Ambiguity is tolerated here; the scoped check may settle it once
	// the caller fixes the issue type.
	idx, matches := matchName(query, names)
	if idx >= 0 || len(matches) > 0 {
		return nil
	}
	return &types.Violation{
		Field: "status", Value: query,
		Reason:  "no matching status",
		Allowed: names,
	}
}

// resolveAttributes validates custom attribute values against their
// definitions: unknown names, wrong data types, and list values outside
// the allowed options are all violations.
func resolveAttributes(attrs map[string]any, meta *metadata.ProjectMetadata) ([]AttributeValue, []types.Violation) {
	if len(attrs) == 0 {
		return nil, nil
	}

	var out []AttributeValue
	var violations []types.Violation
	for name, value := range attrs {
		def := meta.AttributeByTitle(name)
		if def == nil {
			violations = append(violations, types.Violation{
				Field:   "custom_attributes." + name,
				Reason:  "unknown custom attribute",
				Allowed: attributeTitles(meta),
			})
			continue
		}

		resolved, v := resolveAttributeValue(def, name, value)
		if v != nil {
			violations = append(violations, *v)
			continue
		}
		out = append(out, AttributeValue{DefinitionID: def.ID, Value: resolved})
	}
	return out, violations
}

func resolveAttributeValue(def *metadata.CustomAttribute, name string, value any) (any, *types.Violation) {
	field := "custom_attributes." + name

	switch def.DataType {
	case metadata.AttrText, metadata.AttrParagraph:
		s, ok := value.(string)
		if !ok {
			return nil, &types.Violation{
				Field: field, Value: fmt.Sprint(value),
				Reason: "must be a string",
			}
		}
		return s, nil

	case metadata.AttrNumeric:
		switch n := value.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case json.Number:
			f, err := n.Float64()
			if err == nil {
				return f, nil
			}
		}
		return nil, &types.Violation{
			Field: field, Value: fmt.Sprint(value),
			Reason: "must be a number",
		}

	case metadata.AttrList:
		s, ok := value.(string)
		if !ok {
			return nil, &types.Violation{
				Field: field, Value: fmt.Sprint(value),
				Reason:  "must be one of the allowed options",
				Allowed: optionValues(def),
			}
		}
		for _, opt := range def.Options {
			if strings.EqualFold(opt.Value, s) {
				// The API expects the option ID, not its display value.
				return opt.ID, nil
			}
		}
		return nil, &types.Violation{
			Field: field, Value: s,
			Reason:  "not an allowed option",
			Allowed: optionValues(def),
		}

	default:
		// Unrecognized definition type: pass the value through and let
		// the remote API arbitrate.
		return value, nil
	}
}

// parseDueDate accepts a bare ISO date or a full RFC 3339 timestamp and
// normalizes to YYYY-MM-DD.
func parseDueDate(raw string) (string, *types.Violation) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.Format("2006-01-02"), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.Format("2006-01-02"), nil
	}
	return "", &types.Violation{
		Field: "due_date", Value: raw,
		Reason: "not an ISO 8601 date (YYYY-MM-DD)",
	}
}

// matchName resolves query against names: a case-insensitive exact match
// wins outright; otherwise substring containment (either direction)
// produces candidates, and a unique candidate is accepted. Returns the
// matched index, or -1 with the candidate list.
func matchName(query string, names []string) (int, []string) {
	q := strings.ToLower(strings.TrimSpace(query))

	for i, name := range names {
		if strings.ToLower(name) == q {
			return i, nil
		}
	}

	var candidateIdx []int
	for i, name := range names {
		n := strings.ToLower(name)
		if strings.Contains(n, q) || strings.Contains(q, n) {
			candidateIdx = append(candidateIdx, i)
		}
	}
	if len(candidateIdx) == 1 {
		return candidateIdx[0], nil
	}

	matches := make([]string, len(candidateIdx))
	for i, idx := range candidateIdx {
		matches[i] = names[idx]
	}
	return -1, matches
}

func candidateLabels[T any](items []T, label func(T) string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = label(it)
	}
	return out
}

func attributeTitles(meta *metadata.ProjectMetadata) []string {
	out := make([]string, len(meta.CustomAttributes))
	for i, a := range meta.CustomAttributes {
		out[i] = a.Title
	}
	return out
}

func optionValues(def *metadata.CustomAttribute) []string {
	out := make([]string, len(def.Options))
	for i, o := range def.Options {
		out[i] = o.Value
	}
	return out
}

func truncate(s string) string {
	const max = 40
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
