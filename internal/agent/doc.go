// Package agent supervises the content generator and web agent scripts.
//
// Supervision is file based: a launcher script starts the agent in the
// background and writes a PID file, the agent writes timestamped logs to a
// reports directory, and the supervisor reads those files back to report
// status. There is no scheduler, retry, or restart policy.
package agent
