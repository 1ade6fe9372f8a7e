// Package coordinator implements the bingo room event handlers.
//
// Each inbound client event (create-room, join-room, request-admin,
// call-number, player-bingo, mark-cell and the implicit disconnect) maps to
// one Coordinator method. A method looks up or mutates room state through the
// registry, draws numbers or checks cards through the bingo package, and
// reports the outcome through a Notifier: either to the calling connection
// alone or to everyone joined to the room.
//
// Failures never escape as panics. They become error-room, error-msg,
// admin-denied or invalid-bingo notifications to the caller, or a MarkResult
// with Success false. The returned error is for logging and tests.
//
// The coordinator holds no locks. It expects to be driven from one goroutine,
// which the websocket hub's Run loop provides.
package coordinator
