// Package memory keeps the agent inside its context window. The Store is a
// namespaced key-value scratchpad the model drives through tools; the
// Compressor folds the oldest stretch of conversation into a model-written
// narrative once the log grows past a threshold.
//
// Invariants:
// - Compression never splits an assistant turn from its tool responses.
// - The most recent turns are always preserved verbatim.
// - A failed summarization discards old turns rather than blocking the loop.
package memory
