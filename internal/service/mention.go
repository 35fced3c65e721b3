package service

import (
	"regexp"

	"github.com/Gopher0727/occult/internal/model"
)

var mentionPattern = regexp.MustCompile(`<@([0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})>`)

// parseMentions returns the distinct user ids referenced as <@id> in
// content, in order of first occurrence.
func parseMentions(content string) []model.ID {
	matches := mentionPattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[model.ID]struct{}, len(matches))
	ids := make([]model.ID, 0, len(matches))
	for _, m := range matches {
		id, err := model.ParseID(m[1])
		if err != nil || id.IsNil() {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// keepMembers filters candidates down to members, preserving order.
func keepMembers(candidates, members []model.ID) []model.ID {
	set := make(map[model.ID]struct{}, len(members))
	for _, id := range members {
		set[id] = struct{}{}
	}
	kept := make([]model.ID, 0, len(candidates))
	for _, id := range candidates {
		if _, ok := set[id]; ok {
			kept = append(kept, id)
		}
	}
	return kept
}
