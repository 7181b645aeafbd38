//go:build darwin

package clipboard

import (
	"log/slog"
	"os/exec"
	"strings"
)

// fileListScript collects the file URLs on the pasteboard, one path per
// line. Copying files in Finder puts public.file-url entries on each
// pasteboard item.
const fileListScript = `ObjC.import('AppKit');
const pb = $.NSPasteboard.generalPasteboard;
const items = pb.pasteboardItems;
const out = [];
for (let i = 0; i < items.count; i++) {
	const u = items.objectAtIndex(i).stringForType('public.file-url');
	if (!u.isNil()) out.push(ObjC.unwrap($.NSURL.URLWithString(u).path));
}
out.join('\n');`

func readFileList(logger *slog.Logger) []string {
	out, err := exec.Command("osascript", "-l", "JavaScript", "-e", fileListScript).Output()
	if err != nil {
		logger.Warn("reading pasteboard file list", "error", err)
		return nil
	}

	var paths []string
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			paths = append(paths, line)
		}
	}
	return paths
}
