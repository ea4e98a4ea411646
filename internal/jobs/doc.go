// Package jobs tracks asynchronous indexing jobs: lifecycle state, progress
// milestones, a bounded per-job log, per-project serialization, and retention
// based garbage collection of finished jobs.
package jobs
