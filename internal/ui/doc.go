// Package ui renders dump progress on the terminal.
//
// Two renderers consume the [tasks.ProgressUpdate] channel filled by the fetch orchestrator:
//  1. [ProgramRenderer] : a bubbletea program with a spinner and a progress bar, used on terminals
//  2. [LineRenderer] : one line per finished step, used when output is redirected
//
// [NewRenderer] picks one based on whether the writer is a terminal. Both return once the channel is closed.
//
// Finished steps are printed with the [DonePrefix] marker in the palette's success color. Neither renderer
// reads input; interrupting the process is left to the caller's context.
package ui
