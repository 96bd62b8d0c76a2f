package pipeline

import (
	"fmt"
	"net/url"
	"strings"
)

// PayloadKind tags the drop-payload formats different file managers emit
type PayloadKind int

const (
	// PayloadPath is a plain filesystem path.
	PayloadPath PayloadKind = iota

	// PayloadURIList is a text/uri-list body: file:// URIs, one per line,
	// lines starting with '#' being comments.
	PayloadURIList
)

// DropPayload is a dropped or otherwise received file reference, before
// normalization to a single path. The application handles one file at a
// time, so multi-entry URI lists resolve to their first entry.
type DropPayload struct {
	Kind PayloadKind
	Data string
}

// PathPayload wraps a plain path (command-line argument, direct path drop)
func PathPayload(path string) DropPayload {
	return DropPayload{Kind: PayloadPath, Data: path}
}

// URIListPayload wraps a text/uri-list drop body
func URIListPayload(body string) DropPayload {
	return DropPayload{Kind: PayloadURIList, Data: body}
}

// FilePath normalizes the payload to one local filesystem path
func (p DropPayload) FilePath() (string, error) {
	switch p.Kind {
	case PayloadPath:
		path := strings.TrimSpace(p.Data)
		if path == "" {
			return "", fmt.Errorf("empty path payload")
		}
		return path, nil

	case PayloadURIList:
		for _, line := range strings.Split(p.Data, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			return uriToPath(line)
		}
		return "", fmt.Errorf("uri list contains no entries")

	default:
		return "", fmt.Errorf("unknown payload kind: %d", p.Kind)
	}
}

func uriToPath(uri string) (string, error) {
	// Some file managers drop bare paths even under the uri-list target.
	if !strings.Contains(uri, "://") {
		return uri, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid drop uri %q: %w", uri, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported drop uri scheme %q", u.Scheme)
	}
	if u.Path == "" {
		return "", fmt.Errorf("drop uri %q has no path", uri)
	}
	return u.Path, nil
}
