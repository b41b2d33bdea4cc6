// Package preflight provides readiness checks for the ComfyUI server, the
// workflow template, and the filesystem paths reelforge writes into.
//
// These checks run in two contexts:
//   - The render and images commands call RunAll first so a misconfigured
//     server fails fast instead of after the first submission.
//   - The CLI "reelforge doctor" command prints every check alongside the
//     binary checks from CheckSystemDeps.
package preflight
