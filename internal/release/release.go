// Package release checks GitHub for newer notifier builds. Versions
// compare by semver first, with the embedded commit hash as a
// tiebreaker when the tags match.
package release

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"unpod-notifier/internal/logging"
)

const (
	// PageURL is the browser-facing releases page, the fallback open
	// target when an API result carries no HTML URL of its own.
	PageURL = "https://github.com/unpod/notifier/releases/latest"

	apiURL        = "https://api.github.com/repos/unpod/notifier/releases/latest"
	checkInterval = 30 * time.Minute
	fetchTimeout  = 10 * time.Second
)

// Release is the slice of the GitHub latest-release payload the
// notifier acts on.
type Release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
	Draft   bool   `json:"draft"`
}

// Version is a parsed build tag: a dotted numeric triple plus whatever
// commit hash rode along in the tag metadata.
type Version struct {
	Major int
	Minor int
	Patch int
	Hash  string
}

// ParseVersion accepts "v1.2.3", "1.4", and describe-style
// "v0.9.1-12-gabc1234f" or "v2.0.0+deadbeef" forms. Anything that is
// not a dotted numeric version fails, which is how dev builds opt out
// of update checks.
func ParseVersion(raw string) (Version, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Version{}, false
	}
	s = strings.TrimPrefix(strings.TrimPrefix(s, "v"), "V")
	hash := ""
	if i := strings.IndexAny(s, "+-"); i >= 0 {
		hash = commitHash(s[i+1:])
		s = s[:i]
	}
	parts := strings.Split(s, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return Version{}, false
	}
	var nums [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return Version{}, false
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2], Hash: hash}, true
}

// commitHash digs a hex commit id out of tag metadata like
// "12-gabc1234f" or "deadbeef". Returns "" when nothing qualifies.
func commitHash(meta string) string {
	meta = strings.TrimSpace(strings.ToLower(meta))
	if meta == "" {
		return ""
	}
	fields := strings.FieldsFunc(meta, func(r rune) bool {
		return (r < '0' || r > '9') && (r < 'a' || r > 'z')
	})
	for _, field := range fields {
		candidate := strings.TrimPrefix(field, "g")
		if len(candidate) < 7 || len(candidate) > 40 || !isHex(candidate) {
			continue
		}
		return candidate
	}
	return ""
}

func isHex(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

// ShouldOffer reports whether latest is worth offering over current,
// with a short reason tag for the logs. Equal semver falls back to the
// commit hash, but only when both sides carry one.
func ShouldOffer(current Version, latest Version) (bool, string) {
	if latest.newerThan(current) {
		return true, "latest_semver_newer"
	}
	if latest.sameTriple(current) && latest.Hash != "" && current.Hash != "" && latest.Hash != current.Hash {
		return true, "same_semver_different_hash"
	}
	return false, "latest_not_newer"
}

func (v Version) newerThan(o Version) bool {
	if v.Major != o.Major {
		return v.Major > o.Major
	}
	if v.Minor != o.Minor {
		return v.Minor > o.Minor
	}
	return v.Patch > o.Patch
}

func (v Version) sameTriple(o Version) bool {
	return v.Major == o.Major && v.Minor == o.Minor && v.Patch == o.Patch
}

// Supersedes reports whether latestTag is strictly newer than a tag the
// user already dismissed. Tags that do not parse as versions only
// supersede when they differ case-insensitively.
func Supersedes(latestTag string, dismissedTag string) bool {
	latest, latestOK := ParseVersion(latestTag)
	dismissed, dismissedOK := ParseVersion(dismissedTag)
	if latestOK && dismissedOK {
		newer, _ := ShouldOffer(dismissed, latest)
		return newer
	}
	return !strings.EqualFold(strings.TrimSpace(latestTag), strings.TrimSpace(dismissedTag))
}

// FetchLatest asks the GitHub API for the newest published release.
func FetchLatest(parent context.Context) (Release, error) {
	ctx, cancel := context.WithTimeout(parent, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return Release{}, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "unpod-notifier")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Release{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Release{}, fmt.Errorf("github api status %d", resp.StatusCode)
	}

	var latest Release
	if err := json.NewDecoder(resp.Body).Decode(&latest); err != nil {
		return Release{}, err
	}
	return latest, nil
}

// Watch checks immediately and then on a fixed interval until ctx ends,
// invoking offer for every release worth surfacing over buildVersion.
// Fetch failures, drafts, and unparseable tags log at debug and wait
// for the next tick. A buildVersion that is not semver disables
// checking entirely.
func Watch(ctx context.Context, logger *logging.Logger, buildVersion string, offer func(Release)) {
	current, ok := ParseVersion(buildVersion)
	if !ok {
		logger.Debug("skipping update checks: build version is not semver", logging.Field("version", buildVersion))
		return
	}

	check := func() {
		latest, err := FetchLatest(ctx)
		if err != nil {
			logger.Debug("update check failed", logging.Field("error", err.Error()))
			return
		}
		if latest.Draft {
			logger.Debug("update check skipped draft release", logging.Field("tag", latest.TagName))
			return
		}
		latestVersion, valid := ParseVersion(latest.TagName)
		if !valid {
			logger.Debug("update check skipped: latest tag is not semver", logging.Field("tag", latest.TagName))
			return
		}
		offerIt, reason := ShouldOffer(current, latestVersion)
		logger.Debug(
			"update check compared versions",
			logging.Field("current_version", buildVersion),
			logging.Field("latest_tag", latest.TagName),
			logging.Field("offer", offerIt),
			logging.Field("reason", reason),
		)
		if offerIt {
			offer(latest)
		}
	}

	check()
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}
