package didprism

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// identifiersPath is the resolution endpoint on Prism Node.
const identifiersPath = "/api/v1.0/identifiers/"

// versionTimeLayout renders versionTime as UTC with second precision,
// the only form the resolver accepts.
const versionTimeLayout = "2006-01-02T15:04:05Z"

// ResolutionOptions are per-call resolution parameters. All fields are
// optional and independent; the zero value requests the latest version.
type ResolutionOptions struct {
	// Resolve a specific version of the DID document by version ID.
	VersionID string
	// Resolve the version that was current at the given instant.
	VersionTime *time.Time
	// Ask the resolver to include the network identifier in the
	// returned identifiers.
	IncludeNetworkIdentifier *bool
}

// buildResolveURL assembles the relative request URL for a resolution
// call. The ledger argument is the already-resolved ledger (after any
// default fallback); pass "" to omit it. Query parameters are appended
// in a fixed order, each only when set.
func buildResolveURL(did string, opts *ResolutionOptions, ledger string) string {
	var b strings.Builder
	b.WriteString(identifiersPath)
	b.WriteString(url.PathEscape(did))

	// url.Values.Encode sorts keys, so the query string is built by
	// hand to keep the parameter order stable.
	sep := byte('?')
	addParam := func(key, value string) {
		b.WriteByte(sep)
		sep = '&'
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(value))
	}

	if opts != nil {
		if opts.VersionID != "" {
			addParam("versionId", opts.VersionID)
		}
		if opts.VersionTime != nil {
			addParam("versionTime", opts.VersionTime.UTC().Format(versionTimeLayout))
		}
		if opts.IncludeNetworkIdentifier != nil {
			addParam("includeNetworkIdentifier", strconv.FormatBool(*opts.IncludeNetworkIdentifier))
		}
	}
	if ledger != "" {
		addParam("ledger", ledger)
	}

	return b.String()
}
