// Package service orchestrates check-in gated test cycles.
//
// Overview
// The Manager owns a registry of pending execution requests, a caretaker of
// saved requests, a lifecycle subject with its observers and a list of log
// sinks. A request is executed only after a source code check-in and every
// completed cycle consumes the check-in.
//
// Data flow:
//
//   Trigger / scheduler      Manager                 Invoker{request}
//       |                       |                          |
//   Trigger() --- signal ------>| Do: RunAll               |
//       |                       | Drain registry           |
//       |                       | Save to caretaker        |
//       |                       | build pipeline --------->| [checkin]
//       |                       |<------ StartCycle -------| execute
//       |                       |  phase Running           |
//       |                       |  execute tree            |
//       |                       |  append log entry        |
//       |                       |  phase Completed         |
//       |                       |<------ Report -----------| report
//
// States: Awaiting check-in -> Running -> Completed -> Awaiting check-in.
//
// Invariants:
//   - A cycle never starts without a check-in; it is rejected with
//     model.ErrGateViolation and nothing is executed nor logged.
//   - Cycles are serialized and one check-in allows exactly one cycle. A
//     check-in made while a cycle runs arms the next cycle.
//   - Observers are notified without holding the check-in lock.
//   - RunAll calls are serialized, a drained request runs at most once.
//   - A failed log append never rolls the cycle back.
//   - Observers are notified synchronously in the attachment order.
//
// NextFire computes the first fire of a recurring trigger: a start in the
// past is moved forward by whole periods, missed fires are not caught up.
package service
