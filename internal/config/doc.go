// Package config loads and validates pipeline definitions.
//
// A definition lists the frame stages in execution order together with
// their qualified-name options. Every name is parsed during Validate, so a
// malformed "category.label" string is rejected before any frame is
// processed.
package config
