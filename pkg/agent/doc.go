// Package agent answers free-text questions by having a model write Go code
// against the tool catalog and running it.
//
// Ask runs up to Rounds outer rounds. Each round retrieves background
// knowledge and selects tools; a "solved" selection returns the knowledge
// directly. Otherwise up to Attempts code generation attempts follow: the
// model writes code, the required imports are added, the code runs and its
// yielded values are rendered into a transcript. A failed attempt feeds its
// code and error into the next prompt of the same round. The first
// successful attempt is reviewed and assembled into the answer. When every
// round fails, Ask returns ErrNoAnswer.
package agent
