package perception

import (
	"regexp"
	"strings"

	"nlfind/internal/types"
)

// =============================================================================
// KEYWORD TAXONOMY
// =============================================================================
// Keyword tables drive both the filter extractor and the local classifier.
// Matching is done on lowercase word tokens; a trailing plural "s" is accepted.

// searchVerbs trigger the search action (rule 1).
var searchVerbs = []string{"find", "search", "show"}

// organizeVerbs trigger the organize action (rule 2).
var organizeVerbs = []string{"organize", "sort"}

// deleteVerbs trigger the delete action (rule 3).
var deleteVerbs = []string{"delete", "remove"}

// specificTypes maps explicit extension keywords (and a few product names) to extensions.
// "go" and "c" are deliberately absent: they collide with ordinary English.
var specificTypes = map[string][]string{
	"pdf":        {"pdf"},
	"doc":        {"doc"},
	"docx":       {"docx"},
	"txt":        {"txt"},
	"rtf":        {"rtf"},
	"odt":        {"odt"},
	"word":       {"doc", "docx"},
	"xls":        {"xls"},
	"xlsx":       {"xlsx"},
	"csv":        {"csv"},
	"excel":      {"xls", "xlsx"},
	"ppt":        {"ppt"},
	"pptx":       {"pptx"},
	"powerpoint": {"ppt", "pptx"},
	"jpg":        {"jpg", "jpeg"},
	"jpeg":       {"jpg", "jpeg"},
	"png":        {"png"},
	"gif":        {"gif"},
	"bmp":        {"bmp"},
	"svg":        {"svg"},
	"webp":       {"webp"},
	"tiff":       {"tiff"},
	"mp3":        {"mp3"},
	"wav":        {"wav"},
	"flac":       {"flac"},
	"mp4":        {"mp4"},
	"avi":        {"avi"},
	"mkv":        {"mkv"},
	"mov":        {"mov"},
	"zip":        {"zip"},
	"rar":        {"rar"},
	"tar":        {"tar"},
	"gz":         {"gz"},
	"7z":         {"7z"},
	"py":         {"py"},
	"python":     {"py"},
	"js":         {"js"},
	"javascript": {"js"},
	"ts":         {"ts"},
	"typescript": {"ts"},
	"golang":     {"go"},
	"java":       {"java"},
	"cpp":        {"cpp"},
	"rust":       {"rs"},
	"html":       {"html", "htm"},
	"css":        {"css"},
	"json":       {"json"},
	"xml":        {"xml"},
	"yaml":       {"yaml", "yml"},
	"markdown":   {"md"},
	"log":        {"log"},
	"tmp":        {"tmp"},
	"bak":        {"bak"},
}

// categoryTypes maps broad category words to extension sets.
var categoryTypes = map[string][]string{
	"document":     {"doc", "docx", "txt", "rtf", "odt"},
	"image":        {"jpg", "jpeg", "png", "gif", "bmp", "svg", "webp", "tiff"},
	"photo":        {"jpg", "jpeg", "png", "gif", "bmp", "svg", "webp", "tiff"},
	"picture":      {"jpg", "jpeg", "png", "gif", "bmp", "svg", "webp", "tiff"},
	"audio":        {"mp3", "wav", "flac", "aac", "ogg", "m4a", "wma"},
	"music":        {"mp3", "wav", "flac", "aac", "ogg", "m4a", "wma"},
	"song":         {"mp3", "wav", "flac", "aac", "ogg", "m4a", "wma"},
	"video":        {"mp4", "avi", "mkv", "mov", "wmv", "flv", "webm"},
	"movie":        {"mp4", "avi", "mkv", "mov", "wmv", "flv", "webm"},
	"archive":      {"zip", "rar", "tar", "gz", "7z", "bz2", "xz"},
	"compressed":   {"zip", "rar", "tar", "gz", "7z", "bz2", "xz"},
	"code":         {"py", "js", "ts", "go", "java", "c", "cpp", "h", "rs", "rb", "php", "cs", "swift", "kt", "sh"},
	"source":       {"py", "js", "ts", "go", "java", "c", "cpp", "h", "rs", "rb", "php", "cs", "swift", "kt", "sh"},
	"script":       {"py", "js", "sh", "rb", "php", "ps1", "bat"},
	"spreadsheet":  {"xls", "xlsx", "csv", "ods"},
	"presentation": {"ppt", "pptx", "odp", "key"},
	"slide":        {"ppt", "pptx", "odp", "key"},
	"temporary":    {"tmp", "temp", "bak", "swp", "cache"},
	"temp":         {"tmp", "temp", "bak", "swp", "cache"},
}

var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

// tokenize lowercases text and splits it into alphanumeric words.
func tokenize(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// keywordMatches reports whether token is kw or its plural.
func keywordMatches(token, kw string) bool {
	return token == kw || token == kw+"s"
}

// containsAny reports whether any token matches any keyword.
func containsAny(tokens, keywords []string) bool {
	for _, tok := range tokens {
		for _, kw := range keywords {
			if keywordMatches(tok, kw) {
				return true
			}
		}
	}
	return false
}

// lookupTypes unions the extensions of every table key that matches a token.
func lookupTypes(tokens []string, table map[string][]string) []string {
	var exts []string
	for _, tok := range tokens {
		if v, ok := table[tok]; ok {
			exts = append(exts, v...)
			continue
		}
		if strings.HasSuffix(tok, "s") {
			if v, ok := table[strings.TrimSuffix(tok, "s")]; ok {
				exts = append(exts, v...)
			}
		}
	}
	return types.CanonicalExtensions(exts)
}
