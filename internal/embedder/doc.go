// Package embedder abstracts the embedding service: text in, fixed-length
// float vector out. Two providers exist: an HTTP provider for
// OpenAI-compatible endpoints with retry and an in-process deterministic
// fallback seeded from the input text's hash. The fallback doubles as the
// degraded mode when the HTTP endpoint is unreachable, keeping indexing
// functional during provider outages.
package embedder
