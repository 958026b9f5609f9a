// Package trigger starts replays from MQTT run commands.
//
// A command is published to autofill/command/run/{website_id} with an
// optional JSON body:
//
//	{"id": "cmd-1", "owner_id": "alice", "variables": {"email": "a@b.c"}, "start_index": 0}
//
// Every command is answered on autofill/command/run/{website_id}/ack with
// status "accepted" and the run ID, or "rejected" with an error code.
// Run progress itself is published on the run event topics.
package trigger
