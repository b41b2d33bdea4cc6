// Package comfy drives a ComfyUI server through its asynchronous job
// protocol: a workflow graph is submitted with POST /prompt, GET
// /history/{id} is polled until the job appears, and every produced image is
// fetched with GET /view and written to disk.
//
// Workflow templates carry typed placeholders (prompt text, seed, output
// prefix) that Graph.Substitute replaces in a deep copy, so one loaded
// template can serve every shot concurrently. Waiting for a job is bounded by
// the caller's context and the configured collect timeout; expiry is reported
// as services.ErrTimeout, distinct from services.ErrCollection for jobs that
// finished without usable artifacts.
package comfy
