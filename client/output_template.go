package client

import "strings"

// outputTemplateData supplies the token values available to an output path
// template (yt-dlp's %(field)s convention).
type outputTemplateData struct {
	VideoID  string
	Title    string
	Uploader string
	Ext      string
	Itag     string
}

var outputPathSanitizer = strings.NewReplacer(
	"/", "_",
	`\`, "_",
	":", "_",
	"*", "_",
	"?", "_",
	`"`, "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// renderOutputPathTemplate substitutes %(field)s tokens in tmpl with values
// from data, sanitizing each substituted value so it can't introduce path
// separators or other characters a filesystem would reject. Only the
// substituted values are sanitized; literal path separators already present
// in tmpl (e.g. a directory prefix) are left alone.
func renderOutputPathTemplate(tmpl string, data outputTemplateData) string {
	replacer := strings.NewReplacer(
		"%(id)s", outputPathSanitizer.Replace(data.VideoID),
		"%(title)s", outputPathSanitizer.Replace(data.Title),
		"%(uploader)s", outputPathSanitizer.Replace(data.Uploader),
		"%(ext)s", outputPathSanitizer.Replace(data.Ext),
		"%(itag)s", outputPathSanitizer.Replace(data.Itag),
	)
	return replacer.Replace(tmpl)
}

// hasOutputPathTemplate reports whether path contains any %(field)s token.
func hasOutputPathTemplate(path string) bool {
	return strings.Contains(path, "%(")
}
