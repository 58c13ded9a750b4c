// Package domain holds the core data model for ranked battle sessions:
// participants and their roster utilities, the narrative branching graph,
// actor context resolution, the session state machine, and the realtime
// timeline/presence/drop-in snapshot types.
package domain
