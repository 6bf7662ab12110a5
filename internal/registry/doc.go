// Package registry maps stage names to their definitions.
//
// A Registry is one named table of stage definitions, filled by modules at
// startup. A Set groups registries by name and resolves a (registry, stage)
// pair, which is the lookup workflows receive when they deserialize stages.
// Sets are owned by the caller; there is no process-wide table.
package registry
