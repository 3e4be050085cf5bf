// Package core defines the shared language of mortwatch.
//
// This package contains:
//   - Domain entities (Series, Detection, Wave, Evaluation, Run, Trial)
//   - Detector parameter types and their validation
//   - Service interfaces (Store)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
