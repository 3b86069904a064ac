package main

import "testing"

func TestPlayPauseWithoutTabs(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, []string{"play"}, env.socketPath)
	requireContains(t, out, "No playable tab responded")

	out = mustRunCLI(t, []string{"pause"}, env.socketPath)
	requireContains(t, out, "No playable tab responded")
}
