package compiler

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NamespaceSeparator joins the segments of a qualified class name.
const NamespaceSeparator = "::"

// QualifyName derives a display name from a script file path: the leading
// path segment (the script root) and the file suffix are dropped, and the
// remaining segments are joined with NamespaceSeparator.
//
//	scripts/game/door.cue            -> game::door
//	scripts\game\npc\guard.entity.cue -> game::npc::guard
//	door.cue                          -> door
func QualifyName(file string) string {
	file = strings.ReplaceAll(norm.NFC.String(file), "\\", "/")
	file = strings.Trim(file, "/")

	segments := strings.Split(file, "/")
	if len(segments) > 1 {
		segments = segments[1:]
	}
	last := segments[len(segments)-1]
	if i := strings.IndexByte(last, '.'); i > 0 {
		segments[len(segments)-1] = last[:i]
	}
	return strings.Join(segments, NamespaceSeparator)
}
