// Command watchq is the command line surface for the watch queue daemon:
// queue management, playback control, settings, and diagnostics over the
// daemon's JSON-RPC socket, plus a live state follower over the bridge.
package main
