package content

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"watchq/internal/state"
)

type attrOp struct {
	path  string
	attrs map[string]string
}

type menuOp struct {
	path    string
	entries []MenuEntry
}

// scanLocked walks the current mirror and returns the page effects to apply:
// attribute stamps for newly discovered cards and menu entries for unmarked
// menus under annotated cards. The mirror is updated in place so repeated
// scans over the same document are no-ops.
func (e *Engine) scanLocked() ([]attrOp, []menuOp) {
	if e.doc == nil {
		return nil, nil
	}

	var attrOps []attrOp
	anchorSelector := fmt.Sprintf(`a[href*="/%s/"]`, e.opts.Site.WatchPathSegment)
	cardSelector := strings.Join(e.opts.Site.CardSelectors, ", ")
	e.doc.Find(anchorSelector).Each(func(_ int, anchor *goquery.Selection) {
		card := anchor.Closest(cardSelector)
		if card.Length() == 0 {
			return
		}
		if _, annotated := card.Attr(attrAnnotated); annotated {
			return
		}
		href, _ := anchor.Attr("href")
		id, resolved := episodeIDFromURL(href, e.pageURL, e.opts.Site.WatchPathSegment)
		attrs := map[string]string{
			attrEpisodeID:  id,
			attrEpisodeURL: resolved,
		}
		title := firstText(card, e.opts.Site.TitleSelectors)
		if title == "" {
			title = strings.TrimSpace(anchor.Text())
		}
		attrs[attrEpisodeTitle] = title
		if subtitle := firstText(card, e.opts.Site.SubtitleSelectors); subtitle != "" {
			attrs[attrEpisodeSubtitle] = subtitle
		}
		if thumb, ok := card.Find("img").First().Attr("src"); ok && thumb != "" {
			attrs[attrEpisodeThumbnail] = thumb
		}
		attrs[attrAnnotated] = "true"
		for key, value := range attrs {
			card.SetAttr(key, value)
		}
		attrOps = append(attrOps, attrOp{path: nodePath(card), attrs: attrs})
	})

	var menuOps []menuOp
	e.doc.Find(e.opts.Site.MenuSelector).Each(func(_ int, menu *goquery.Selection) {
		if _, marked := menu.Attr(attrMenuMarker); marked {
			return
		}
		card := menu.Closest("[" + attrEpisodeID + "]")
		if card.Length() == 0 {
			return
		}
		episodeID, _ := card.Attr(attrEpisodeID)
		single := MenuEntry{ID: uuid.NewString(), Label: labelAddSingle}
		newer := MenuEntry{ID: uuid.NewString(), Label: labelAddNewer}
		e.actions[single.ID] = menuAction{episodeID: episodeID}
		e.actions[newer.ID] = menuAction{episodeID: episodeID, newer: true}
		menu.SetAttr(attrMenuMarker, "true")
		menuOps = append(menuOps, menuOp{path: nodePath(menu), entries: []MenuEntry{single, newer}})
	})

	return attrOps, menuOps
}

// firstText returns the trimmed text of the first selector in the ordered
// list that matches anything under root.
func firstText(root *goquery.Selection, selectors []string) string {
	for _, selector := range selectors {
		if match := root.Find(selector).First(); match.Length() > 0 {
			if text := strings.TrimSpace(match.Text()); text != "" {
				return text
			}
		}
	}
	return ""
}

// episodeIDFromURL extracts the path segment following the watch marker from
// rawURL resolved against base. URLs without the marker fall back to the
// resolved URL itself as the id; unparsable URLs fall back to the raw input.
func episodeIDFromURL(rawURL, base, watchSegment string) (id, resolved string) {
	ref, err := url.Parse(rawURL)
	if err != nil {
		return rawURL, rawURL
	}
	if baseURL, err := url.Parse(base); err == nil && base != "" {
		ref = baseURL.ResolveReference(ref)
	}
	resolved = ref.String()
	segments := splitPath(ref.Path)
	for i, segment := range segments {
		if segment == watchSegment && i+1 < len(segments) {
			return segments[i+1], resolved
		}
	}
	return resolved, resolved
}

// watchPageEpisodeID reports the episode id when rawURL is a watch page.
func watchPageEpisodeID(rawURL, watchSegment string) (string, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	segments := splitPath(parsed.Path)
	for i, segment := range segments {
		if segment == watchSegment && i+1 < len(segments) {
			return segments[i+1], true
		}
	}
	return "", false
}

func splitPath(path string) []string {
	var segments []string
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}

// episodeFromCard reads a previously stamped card back into an Episode.
func episodeFromCard(card *goquery.Selection) state.Episode {
	episode := state.Episode{}
	episode.ID, _ = card.Attr(attrEpisodeID)
	episode.URL, _ = card.Attr(attrEpisodeURL)
	episode.Title, _ = card.Attr(attrEpisodeTitle)
	episode.Subtitle, _ = card.Attr(attrEpisodeSubtitle)
	episode.Thumbnail, _ = card.Attr(attrEpisodeThumbnail)
	return episode
}
