// Package tabs tracks which connected page sessions belong to the target
// streaming site and relays directives into them.
//
// Playback control targets the single active tab of the current window;
// audio-language directives fan out to every active matching tab in every
// window, because a language preference should propagate everywhere while a
// play/pause gesture is inherently single-tab. A missing tab is a normal
// outcome reported as a plain failure, never an error.
package tabs
