package classify

import "strings"

// Exact media types that are always text
var textContentTypes = map[string]struct{}{
	"application/json":                  {},
	"application/xml":                   {},
	"application/javascript":            {},
	"application/x-javascript":          {},
	"application/ecmascript":            {},
	"application/x-www-form-urlencoded": {},
	"application/graphql":               {},
	"application/x-yaml":                {},
	"application/yaml":                  {},
	"application/rss+xml":               {},
	"application/atom+xml":              {},
	"application/xhtml+xml":             {},
	"application/soap+xml":              {},
	"application/vnd.api+json":          {},
	"application/ld+json":               {},
	"application/hal+json":              {},
	"application/problem+json":          {},
	"application/x-ndjson":              {},
}

// Exact media types that are always binary
var binaryContentTypes = map[string]struct{}{
	"application/octet-stream":      {},
	"application/pdf":               {},
	"application/zip":               {},
	"application/x-zip-compressed":  {},
	"application/x-rar-compressed":  {},
	"application/vnd.rar":           {},
	"application/x-7z-compressed":   {},
	"application/x-tar":             {},
	"application/gzip":              {},
	"application/x-gzip":            {},
	"application/x-bzip2":           {},
	"application/x-xz":              {},
	"application/zstd":              {},
	"application/x-executable":      {},
	"application/x-msdownload":      {},
	"application/x-msdos-program":   {},
	"application/x-mach-binary":     {},
	"application/java-archive":      {},
	"application/x-java-archive":    {},
	"application/java-vm":           {},
	"application/msword":            {},
	"application/x-shockwave-flash": {},
	"application/wasm":              {},
	"application/vnd.sqlite3":       {},
	"application/x-x509-ca-cert":    {},
	"application/pkix-cert":         {},
	"application/pkcs12":            {},
}

var binaryContentTypePrefixes = []string{
	"image/",
	"audio/",
	"video/",
	"font/",
	"application/vnd.ms-",
	"application/vnd.openxmlformats-",
	"application/x-font-",
	"application/font-",
}

// MediaType lowercases a Content-Type value and strips its parameters
func MediaType(contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// ClassifyContentType matches a Content-Type value against the text
// allow-list first and the binary deny-list second.
func ClassifyContentType(contentType string) Result {
	mediaType := MediaType(contentType)
	if mediaType == "" {
		return Result{}
	}

	if isTextMediaType(mediaType) {
		return Result{Verdict: Text, Evidence: EvidenceContentType, Detail: mediaType}
	}
	if isBinaryMediaType(mediaType) {
		return Result{Verdict: Binary, Evidence: EvidenceContentType, Detail: mediaType}
	}
	return Result{}
}

func isTextMediaType(mediaType string) bool {
	if strings.HasPrefix(mediaType, "text/") {
		return true
	}
	if _, ok := textContentTypes[mediaType]; ok {
		return true
	}
	// Structured syntax suffixes on application types (RFC 6839)
	if strings.HasPrefix(mediaType, "application/") {
		return strings.HasSuffix(mediaType, "+json") || strings.HasSuffix(mediaType, "+xml") ||
			strings.HasSuffix(mediaType, "+yaml")
	}
	return false
}

func isBinaryMediaType(mediaType string) bool {
	if _, ok := binaryContentTypes[mediaType]; ok {
		return true
	}
	for _, prefix := range binaryContentTypePrefixes {
		if strings.HasPrefix(mediaType, prefix) {
			return true
		}
	}
	return false
}
