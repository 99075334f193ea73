// Package domain contains the core data model for the passage pipeline.
// It has no dependencies on infrastructure and is shared by all layers.
package domain
