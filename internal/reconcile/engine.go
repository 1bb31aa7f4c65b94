package reconcile

import (
	"reflect"
	"strings"

	"github.com/transmeralda/fleetdocs/constants"
	"github.com/transmeralda/fleetdocs/internal/entity"
	"github.com/transmeralda/fleetdocs/internal/extract"
)

// Source tells where a reconciled value came from.
type Source string

const (
	SourceOverride  Source = "override"
	SourceExtracted Source = "extracted"
	SourcePreserved Source = "preserved"
)

// Delta is one field-level reconciliation decision. Every registry
// field whose source categories were part of the batch gets exactly one
// entry: override or extracted when the value changed, preserved
// otherwise. Preserved deltas keep New equal to Previous.
type Delta struct {
	Field    string `json:"field"`
	Previous any    `json:"previous"`
	New      any    `json:"new"`
	Source   Source `json:"source"`
}

// Reconcile merges extracted document evidence and operator overrides
// into a copy of the snapshot. Precedence per field is override, then
// validated extracted value, then the snapshot value. Identity fields
// already set on the snapshot never change; neither do id, created_at
// or created_by. The snapshot itself is not modified.
func Reconcile(snapshot *entity.Driver, docs []extract.ExtractedDocument, overrides map[string]any) (*entity.Driver, []Delta) {
	merged := snapshot.Clone()
	var deltas []Delta

	for _, spec := range fieldSpecs() {
		current := spec.Get(merged)
		preserved := Delta{Field: spec.Name, Previous: current, New: current, Source: SourcePreserved}

		candidate, src, found := resolveCandidate(spec, docs, overrides)
		if !found {
			if categoryProcessed(spec, docs) {
				deltas = append(deltas, preserved)
			}
			continue
		}
		if spec.Immutable && !isEmpty(current) {
			deltas = append(deltas, preserved)
			continue
		}
		if !spec.Validate(candidate) {
			deltas = append(deltas, preserved)
			continue
		}
		if valuesEqual(current, candidate) {
			deltas = append(deltas, preserved)
			continue
		}
		spec.Set(merged, candidate)
		deltas = append(deltas, Delta{Field: spec.Name, Previous: current, New: spec.Get(merged), Source: src})
	}

	if delta, changed := reconcilePermit(snapshot, merged, docs); changed {
		deltas = append(deltas, delta)
	}

	// Record identity is never rewritten by reconciliation.
	merged.ID = snapshot.ID
	merged.CreatedAt = snapshot.CreatedAt
	merged.CreatedBy = snapshot.CreatedBy
	merged.Status = snapshot.Status

	return merged, deltas
}

func resolveCandidate(spec fieldSpec, docs []extract.ExtractedDocument, overrides map[string]any) (any, Source, bool) {
	if v, ok := overrides[spec.Name]; ok {
		return v, SourceOverride, true
	}
	for _, source := range spec.Sources {
		for _, doc := range docs {
			if doc.Category != source || doc.FailedToParse {
				continue
			}
			for _, key := range spec.Keys {
				if v, ok := doc.Fields[key]; ok && !isEmpty(v) {
					return v, SourceExtracted, true
				}
			}
		}
	}
	return nil, "", false
}

// categoryProcessed reports whether any document in the batch, parsed
// or not, covers one of the field's source categories. Fields whose
// sources were never examined this run get no delta.
func categoryProcessed(spec fieldSpec, docs []extract.ExtractedDocument) bool {
	for _, source := range spec.Sources {
		for _, doc := range docs {
			if doc.Category == source {
				return true
			}
		}
	}
	return false
}

// reconcilePermit rebuilds the permit block from the permit document.
// A document without a readable permit number offers no evidence and
// the existing block stays.
func reconcilePermit(snapshot, merged *entity.Driver, docs []extract.ExtractedDocument) (Delta, bool) {
	var permitDoc *extract.ExtractedDocument
	for i := range docs {
		if docs[i].Category == constants.Permit && !docs[i].FailedToParse {
			permitDoc = &docs[i]
			break
		}
	}
	if permitDoc == nil {
		return Delta{}, false
	}

	number, _ := permitDoc.Fields["number"].(string)
	number = strings.TrimSpace(number)
	if number == "" {
		return Delta{}, false
	}

	next := &entity.Permit{Number: number}
	if v, ok := permitDoc.Fields["issued_on"].(string); ok && validDate(v) {
		next.IssuedOn = v
	}
	if v, ok := permitDoc.Fields["issuer"].(string); ok {
		next.Issuer = strings.TrimSpace(v)
	}
	if v, ok := permitDoc.Fields["restrictions"].(string); ok {
		next.Restrictions = strings.TrimSpace(v)
	}
	if list, ok := permitDoc.Fields["classes"].([]any); ok {
		isClass := validEnum(constants.PermitClasses)
		for _, item := range list {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			class, _ := m["class"].(string)
			if !isClass(class) {
				continue
			}
			pc := entity.PermitClass{Class: class}
			if until, ok := m["valid_until"].(string); ok && validDate(until) {
				pc.ValidUntil = until
			}
			next.Classes = append(next.Classes, pc)
		}
	}

	if reflect.DeepEqual(snapshot.Permit, next) {
		return Delta{}, false
	}
	previous := merged.Permit
	merged.Permit = next
	return Delta{Field: "permit", Previous: previous, New: next, Source: SourceExtracted}, true
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case float64:
		return t == 0
	case []any:
		return len(t) == 0
	default:
		return false
	}
}

func valuesEqual(current, candidate any) bool {
	if cs, ok := current.(string); ok {
		if ns, ok := candidate.(string); ok {
			return cs == strings.TrimSpace(ns)
		}
		return false
	}
	if cf, ok := current.(float64); ok {
		if nf, valid := toFloat(candidate); valid {
			return cf == nf
		}
		return false
	}
	return reflect.DeepEqual(current, candidate)
}
