package content

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"watchq/internal/logging"
	"watchq/internal/protocol"
	"watchq/internal/state"
)

// handleMenuClick resolves an injected entry id to its card and dispatches
// the matching add command. Unknown ids are stale entries from a previous
// document and are ignored.
func (e *Engine) handleMenuClick(ctx context.Context, entryID string) {
	e.mu.Lock()
	action, known := e.actions[entryID]
	var episodes []state.Episode
	if known {
		episodes = e.gatherLocked(action.episodeID, action.newer)
	}
	e.mu.Unlock()

	if !known {
		e.logger.Debug("click on unknown menu entry", logging.String("entry_id", entryID))
		return
	}
	if len(episodes) == 0 {
		return
	}
	if action.newer {
		e.dispatch(ctx, protocol.MustMessage(protocol.TypeAddEpisodeAndNewer, episodes))
		return
	}
	e.dispatch(ctx, protocol.MustMessage(protocol.TypeAddEpisode, episodes[0]))
}

// gatherLocked collects the clicked card's episode, plus all annotated
// sibling cards from the clicked one onward in document order when newer is
// set. The card's parent bounds the sibling search, so "newer" never crosses
// into another list.
func (e *Engine) gatherLocked(episodeID string, newer bool) []state.Episode {
	if e.doc == nil {
		return nil
	}
	card := e.doc.Find(fmt.Sprintf(`[%s=%q]`, attrEpisodeID, episodeID)).First()
	if card.Length() == 0 {
		return nil
	}
	if !newer {
		return []state.Episode{episodeFromCard(card)}
	}

	var all []state.Episode
	start := -1
	card.Parent().Find("[" + attrEpisodeID + "]").Each(func(i int, sibling *goquery.Selection) {
		if id, _ := sibling.Attr(attrEpisodeID); id == episodeID && start == -1 {
			start = i
		}
		all = append(all, episodeFromCard(sibling))
	})
	if start == -1 {
		return []state.Episode{episodeFromCard(card)}
	}
	return all[start:]
}
