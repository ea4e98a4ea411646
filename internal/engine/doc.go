// Package engine implements the change-detection and chunking engine: the
// directory walk with glob-based exclusion, text/binary classification, the
// size guard, content fingerprinting, the per-file delta decision, and
// line-accumulation chunking.
//
// The engine has no knowledge of embeddings or storage; it turns a filesystem
// tree into eligible entries, fingerprints, and bounded chunks, and leaves
// persistence to the orchestrator.
package engine
