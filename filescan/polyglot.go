package filescan

import "bytes"

// polyglotScanWindow bounds how far past the image header a script-opening
// token still counts as a dual-interpretation payload.
const polyglotScanWindow = 1024

var imageHeaders = [][]byte{
	[]byte("GIF87a"),
	[]byte("GIF89a"),
	{0xFF, 0xD8, 0xFF},       // JPEG
	{0x89, 'P', 'N', 'G'},    // PNG
	{'R', 'I', 'F', 'F'},     // WebP container
	{0x42, 0x4D},             // BMP
}

var scriptOpeners = [][]byte{
	[]byte("<script"),
	[]byte("<?php"),
	[]byte("<%"),
	[]byte("#!"),
	[]byte("<html"),
}

// checkPolyglot rejects files whose leading bytes form a valid image header
// immediately followed by script content. Such files pass naive image checks
// while remaining executable to a lenient interpreter.
func checkPolyglot(data []byte) string {
	var matched bool
	for _, header := range imageHeaders {
		if bytes.HasPrefix(data, header) {
			matched = true
			break
		}
	}
	if !matched {
		return ""
	}

	window := data
	if len(window) > polyglotScanWindow {
		window = window[:polyglotScanWindow]
	}
	lower := bytes.ToLower(window)
	for _, opener := range scriptOpeners {
		if bytes.Contains(lower, opener) {
			return "polyglot file: image header followed by script content"
		}
	}
	return ""
}
