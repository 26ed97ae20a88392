package scanners

import (
	"encoding/json"

	"pentellia/scan-core/internal/model"
)

// Category names the shape of a tool's raw output. Tools with the same
// category share a normalizer implementation.
type Category string

const (
	CategoryStructuredList   Category = "structured-list"
	CategoryFreeText         Category = "free-text"
	CategoryBooleanDetection Category = "boolean-detection"
	CategoryComposite        Category = "composite"
	CategoryPathList         Category = "path-list"
	CategoryCanonical        Category = "canonical"
)

// Input is what a normalizer sees: the tool identifier as dispatched, the
// scan target (may be empty) and the raw result blob.
type Input struct {
	Tool   string
	Target string
	Raw    json.RawMessage
}

// Normalizer converts one category of raw tool output into canonical findings.
// Implementations must be pure and must not retain or mutate Raw. Severity
// counts in the returned Summary are recomputed by the Registry; a normalizer
// only needs to set Score and Grade when it derives them.
type Normalizer interface {
	Category() Category
	Normalize(in Input) model.Result
}
