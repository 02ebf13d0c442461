// Package fleet is the deployment command dispatcher: it translates a
// logical command (create, remove, start, stop) over a set of nodes into a
// single TaskRequest submitted to the external fleet-management facility,
// and turns the facility's integer result code into an error or nil.
//
// The fleet facility itself is out of scope; Client is the boundary this
// package talks across. No polling of task completion happens here — the
// Manager treats a successful AddTaskReq acknowledgement as the fleet step
// of a mutation being complete.
package fleet
