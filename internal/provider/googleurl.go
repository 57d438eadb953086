package provider

import "strings"

// rewriteGoogleURL applies the Google-only URL post-processing: strip
// fife width hints and edge=curl, upgrade scheme, trim a trailing '?' or
// '&'. It deliberately leaves an existing zoom=<n> value untouched —
// googleVariants forces zoom=0 as a separate, explicit variant so the
// two candidates it produces aren't identical by construction.
func rewriteGoogleURL(raw string) string {
	s := raw

	if strings.HasPrefix(s, "http://") {
		s = "https://" + strings.TrimPrefix(s, "http://")
	}

	s = stripParamPrefix(s, "fife=w")
	s = stripParam(s, "edge=curl")

	s = strings.TrimSuffix(s, "?")
	s = strings.TrimSuffix(s, "&")
	return s
}

// isLikelyGoogleCover reports whether raw lacks a page-number hint
// (pg=...) and isn't an edge=curl preview render. Both conditions must
// hold; printsec=frontcover / pt=frontcover are positive signals but
// their absence doesn't disqualify a URL.
func isLikelyGoogleCover(raw string) bool {
	if hasParam(raw, "pg=") {
		return false
	}
	if strings.Contains(raw, "edge=curl") {
		return false
	}
	return true
}

// replaceZoomParam rewrites zoom=<n> to zoom=<value> wherever it appears.
func replaceZoomParam(s, value string) string {
	const key = "zoom="
	idx := strings.Index(s, key)
	if idx < 0 {
		return s
	}
	start := idx + len(key)
	end := start
	for end < len(s) && s[end] != '&' {
		end++
	}
	return s[:start] + value + s[end:]
}

// stripParamPrefix removes a "<prefix><digits...>" query fragment,
// including a leading '&' or trailing '&' as needed, used for fife=w<n>.
func stripParamPrefix(s, prefix string) string {
	idx := strings.Index(s, prefix)
	if idx < 0 {
		return s
	}
	end := idx + len(prefix)
	for end < len(s) && s[end] != '&' {
		end++
	}
	return removeRange(s, idx, end)
}

// stripParam removes an exact "key=value" fragment such as edge=curl.
func stripParam(s, kv string) string {
	idx := strings.Index(s, kv)
	if idx < 0 {
		return s
	}
	end := idx + len(kv)
	return removeRange(s, idx, end)
}

func removeRange(s string, start, end int) string {
	// Also consume a single separating '&' on either side so we don't
	// leave "&&" or a dangling leading '&' behind.
	if start > 0 && s[start-1] == '&' {
		start--
	} else if end < len(s) && s[end] == '&' {
		end++
	}
	return s[:start] + s[end:]
}

func hasParam(s, prefix string) bool {
	return strings.Contains(s, prefix)
}

// googleVariants returns the "as-is" and "zoom=0" URL variants for a raw
// Google image link. Google.fetchVariants tries them one after the
// other; they are not downloaded in parallel.
func googleVariants(raw string) []string {
	enhanced := rewriteGoogleURL(raw)
	zoomed := replaceZoomParam(enhanced, "0")
	if zoomed == enhanced {
		return []string{enhanced}
	}
	return []string{enhanced, zoomed}
}
