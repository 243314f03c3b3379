package prism

import (
	"errors"
	"fmt"
	"strings"
)

// ParseError wraps a malformed scene document. Loading aborts before any
// World mutation.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("scene parse: %v", e.Err)
	}
	return fmt.Sprintf("scene parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// UnresolvedAssetReferenceError reports a component or material referencing
// an asset name absent from the scene manifest.
type UnresolvedAssetReferenceError struct {
	Kind   AssetKind
	Name   string
	Entity string
}

func (e *UnresolvedAssetReferenceError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("unresolved %s reference %q", e.Kind, e.Name)
	}
	return fmt.Sprintf("unresolved %s reference %q on entity %q", e.Kind, e.Name, e.Entity)
}

// UnresolvedParentReferenceError reports an entity whose parent name does not
// match any previously created entity. Parent references are backward-only.
type UnresolvedParentReferenceError struct {
	Entity string
	Parent string
}

func (e *UnresolvedParentReferenceError) Error() string {
	return fmt.Sprintf("entity %q references unknown parent %q", e.Entity, e.Parent)
}

// UnknownComponentTypeError reports a component record whose type tag is not
// in the closed component set. The offending entity's remaining component
// list is skipped, the rest of the scene still loads.
type UnknownComponentTypeError struct {
	Entity string
	Tag    string
}

func (e *UnknownComponentTypeError) Error() string {
	return fmt.Sprintf("entity %q declares unknown component type %q", e.Entity, e.Tag)
}

// MissingMainCameraError is fatal to a load whose designated main camera
// does not exist or carries no camera component. Name is always set: scenes
// without a designation fall back to the first camera instead.
type MissingMainCameraError struct {
	Name string
}

func (e *MissingMainCameraError) Error() string {
	return fmt.Sprintf("main camera %q not found in scene", e.Name)
}

// InvalidMaterialError reports a material whose declared texture slots did
// not all resolve. The renderer skips affected draws instead of failing the
// frame.
type InvalidMaterialError struct {
	Material string
	Slot     string
}

func (e *InvalidMaterialError) Error() string {
	return fmt.Sprintf("material %q has unresolved texture slot %q", e.Material, e.Slot)
}

// DuplicateComponentError reports a second component of an already attached
// kind. Per-entity recoverable: the offending component is skipped.
type DuplicateComponentError struct {
	Entity EntityId
	Kind   string
}

func (e *DuplicateComponentError) Error() string {
	return fmt.Sprintf("entity %d already has a %s component", e.Entity, e.Kind)
}

// ShaderCompileError marks a material whose shader failed to compile on the
// device. Fatal to that material only; entities using it render as skipped.
type ShaderCompileError struct {
	Shader string
	Err    error
}

func (e *ShaderCompileError) Error() string {
	return fmt.Sprintf("shader %q failed to compile: %v", e.Shader, e.Err)
}

func (e *ShaderCompileError) Unwrap() error { return e.Err }

// CyclicParentError is fatal: the entity records form a parent cycle.
type CyclicParentError struct {
	Entity string
}

func (e *CyclicParentError) Error() string {
	return fmt.Sprintf("entity %q participates in a parent cycle", e.Entity)
}

// LoadReport aggregates everything a scene load had to say. Fatal errors
// discard the partially built World; issues are per-entity recoverable and
// informational only.
type LoadReport struct {
	Fatal  []error
	Issues []error
}

func (r *LoadReport) fatalf(err error)  { r.Fatal = append(r.Fatal, err) }
func (r *LoadReport) reportf(err error) { r.Issues = append(r.Issues, err) }

// Failed reports whether the load must be discarded.
func (r *LoadReport) Failed() bool { return len(r.Fatal) > 0 }

// Err collapses the fatal set into a single aggregated error, nil when the
// load succeeded.
func (r *LoadReport) Err() error {
	if !r.Failed() {
		return nil
	}
	return fmt.Errorf("scene load failed: %w", errors.Join(r.Fatal...))
}

func (r *LoadReport) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d fatal, %d recoverable", len(r.Fatal), len(r.Issues))
	for _, err := range r.Fatal {
		sb.WriteString("\n  fatal: ")
		sb.WriteString(err.Error())
	}
	for _, err := range r.Issues {
		sb.WriteString("\n  issue: ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}
