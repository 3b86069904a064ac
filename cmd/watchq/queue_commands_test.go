package main

import (
	"strings"
	"testing"
)

func addEpisode(t *testing.T, env *cliTestEnv, url string) {
	t.Helper()
	mustRunCLI(t, []string{"queue", "add", url}, env.socketPath)
}

func TestQueueAddListSelect(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, []string{"queue", "add", "https://www.crunchyroll.com/watch/EP1/first", "--title", "First"}, env.socketPath)
	requireContains(t, out, "Added EP1 (1 queued)")

	out = mustRunCLI(t, []string{"queue", "list"}, env.socketPath)
	requireContains(t, out, "EP1")
	requireContains(t, out, "First")
	requireContains(t, out, "Japanese")

	out = mustRunCLI(t, []string{"queue", "select", "EP1"}, env.socketPath)
	requireContains(t, out, "Current episode: EP1")

	out = mustRunCLI(t, []string{"queue", "select"}, env.socketPath)
	requireContains(t, out, "Selection cleared")
}

func TestQueueAddRejectsUnknownLanguage(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"queue", "add", "https://www.crunchyroll.com/watch/EP1", "--language", "xx-XX"}, env.socketPath)
	if err == nil {
		t.Fatal("an unknown language should be rejected")
	}
	requireContains(t, err.Error(), "unknown audio language")

	if app := env.daemon.GetState(); len(app.Queue) != 0 {
		t.Fatalf("queue = %#v", app.Queue)
	}
}

func TestQueueSetLanguageRemoveClear(t *testing.T) {
	env := setupCLITestEnv(t)
	addEpisode(t, env, "https://www.crunchyroll.com/watch/EP1")
	addEpisode(t, env, "https://www.crunchyroll.com/watch/EP2")

	out := mustRunCLI(t, []string{"queue", "set-language", "EP1", "de-DE"}, env.socketPath)
	requireContains(t, out, "Audio language for EP1 set to German")
	if app := env.daemon.GetState(); app.Queue[0].AudioLanguage != "de-DE" {
		t.Fatalf("language = %q", app.Queue[0].AudioLanguage)
	}

	if _, _, err := runCLI(t, []string{"queue", "set-language", "EP1", "xx-XX"}, env.socketPath); err == nil {
		t.Fatal("an unknown language should be rejected")
	}

	out = mustRunCLI(t, []string{"queue", "remove", "EP1"}, env.socketPath)
	requireContains(t, out, "Removed EP1 (1 queued)")

	out = mustRunCLI(t, []string{"queue", "clear"}, env.socketPath)
	requireContains(t, out, "Queue cleared")
	out = mustRunCLI(t, []string{"queue", "list"}, env.socketPath)
	requireContains(t, out, "Queue is empty")
}

func TestQueueReorder(t *testing.T) {
	env := setupCLITestEnv(t)
	addEpisode(t, env, "https://www.crunchyroll.com/watch/EP1")
	addEpisode(t, env, "https://www.crunchyroll.com/watch/EP2")
	addEpisode(t, env, "https://www.crunchyroll.com/watch/EP3")

	out := mustRunCLI(t, []string{"queue", "reorder", "EP3"}, env.socketPath)
	if strings.Index(out, "EP3") > strings.Index(out, "EP1") {
		t.Fatalf("EP3 should be listed first:\n%s", out)
	}

	app := env.daemon.GetState()
	ids := make([]string, 0, len(app.Queue))
	for _, episode := range app.Queue {
		ids = append(ids, episode.ID)
	}
	if len(ids) != 3 || ids[0] != "EP3" || ids[1] != "EP1" || ids[2] != "EP2" {
		t.Fatalf("queue order = %v, want [EP3 EP1 EP2]", ids)
	}
}

func TestEpisodeIDFromURL(t *testing.T) {
	cases := map[string]string{
		"https://www.crunchyroll.com/watch/EP1/some-title": "EP1",
		"https://www.crunchyroll.com/watch/EP2":            "EP2",
		"https://www.crunchyroll.com/browse":               "https://www.crunchyroll.com/browse",
		"https://www.crunchyroll.com/watch/":               "https://www.crunchyroll.com/watch/",
		"://bad":                                           "://bad",
	}
	for input, want := range cases {
		if got := episodeIDFromURL(input); got != want {
			t.Errorf("episodeIDFromURL(%q) = %q, want %q", input, got, want)
		}
	}
}
