package menus

import (
	"context"
	"strconv"
	"strings"
	"time"

	"coop-site/internal/shared/metrics"
	"coop-site/internal/shared/telemetry"
)

// Resolved is the URL the public site should render for one week.
// FileName is empty when the week has no record.
type Resolved struct {
	Week      int
	FileName  string
	URL       string
	UpdatedAt time.Time
}

// Resolver computes menu URLs from recorded state only; it never probes storage.
type Resolver struct {
	Repo Repo
	now  func() time.Time
}

// NewResolver constructs a Resolver.
func NewResolver(repo Repo) *Resolver {
	return &Resolver{Repo: repo, now: time.Now}
}

// ResolveAll returns exactly one entry per week, in week order. Record store
// errors degrade every week to its default path.
func (r *Resolver) ResolveAll(ctx context.Context) []Resolved {
	slots, err := AllSlots(ctx, r.Repo)
	if err != nil {
		metrics.IncResolveFallback()
		telemetry.Warn("menu.resolve.fallback", map[string]any{
			"error": err,
		})
	}
	stamp := r.now().UnixMilli()
	out := make([]Resolved, 0, len(slots))
	for _, slot := range slots {
		out = append(out, resolveSlot(slot, stamp))
	}
	return out
}

func resolveSlot(slot Slot, stamp int64) Resolved {
	res := Resolved{Week: slot.Week, FileName: slot.FileName, UpdatedAt: slot.UpdatedAt}
	switch {
	case slot.RemoteURL != "":
		res.URL = withCacheBuster(slot.RemoteURL, stamp)
	case slot.FilePath != "":
		res.URL = withCacheBuster(slot.FilePath, stamp)
	default:
		res.FileName = ""
		res.URL = DefaultPath(slot.Week)
	}
	return res
}

// withCacheBuster appends t=<stamp> to the query, keeping any fragment last.
func withCacheBuster(rawURL string, stamp int64) string {
	base, fragment, hasFragment := strings.Cut(rawURL, "#")
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
		if strings.HasSuffix(base, "?") || strings.HasSuffix(base, "&") {
			sep = ""
		}
	}
	out := base + sep + "t=" + strconv.FormatInt(stamp, 10)
	if hasFragment {
		out += "#" + fragment
	}
	return out
}
