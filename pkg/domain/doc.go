// Package domain models a multi-track, frame-indexed experimental dataset:
// image-bearing primary tracks, low-rate secondary tracks, derived per-frame
// signal entries, named protocols with dual-domain event timing, spatial
// landmarks with per-frame state, and analysis units joining landmarks with
// protocols. The Dataset aggregate enforces every cross-collection invariant;
// structural edits (frame removal, concatenation, sub-selection extraction,
// adoption) run validate-then-build-then-commit and never apply partially.
package domain
