package marketplace

import (
	"context"
	"strings"
)

type agentFilter func(a *RegisteredAgent) bool

// Discover filters the catalog in a fixed order: free text, category, tags,
// skill, protocol, name, status, minimum reputation. VerifiedOnly is applied
// to the computed views afterwards, then the result is paginated.
func (o *Orchestrator) Discover(ctx context.Context, c Criteria) (DiscoveryResult, error) {
	if err := ctx.Err(); err != nil {
		return DiscoveryResult{}, err
	}

	o.mu.RLock()
	entries := make([]agentEntry, 0, len(o.order))
	for _, id := range o.order {
		entries = append(entries, o.agents[id].snapshot())
	}
	o.mu.RUnlock()

	filters := c.filters()
	var views []MarketplaceView
outer:
	for i := range entries {
		for _, keep := range filters {
			if !keep(&entries[i].agent) {
				continue outer
			}
		}
		v := o.view(entries[i])
		if c.VerifiedOnly && v.VerificationStatus != Verified {
			continue
		}
		views = append(views, v)
	}

	total := len(views)
	offset := c.Offset
	if offset < 0 {
		offset = 0
	}
	limit := c.Limit
	if limit == 0 {
		limit = o.opts.DefaultLimit
	}
	end := total
	if limit > 0 && offset < total && limit < total-offset {
		end = offset + limit
	}
	page := []MarketplaceView{}
	if offset < total {
		page = append(page, views[offset:end]...)
	}
	return DiscoveryResult{Agents: page, Total: total}, nil
}

func (c Criteria) filters() []agentFilter {
	var fs []agentFilter
	if q := strings.ToLower(strings.TrimSpace(c.Query)); q != "" {
		fs = append(fs, func(a *RegisteredAgent) bool {
			if contains(a.Name, q) || contains(a.Description, q) {
				return true
			}
			for _, s := range a.Skills {
				if contains(s.Name, q) {
					return true
				}
				for _, t := range s.Tags {
					if contains(t, q) {
						return true
					}
				}
			}
			return false
		})
	}
	if c.Category != "" {
		fs = append(fs, func(a *RegisteredAgent) bool {
			for _, s := range a.Skills {
				if strings.EqualFold(s.Category, c.Category) {
					return true
				}
			}
			return false
		})
	}
	if len(c.Tags) > 0 {
		fs = append(fs, func(a *RegisteredAgent) bool {
			for _, s := range a.Skills {
				for _, have := range s.Tags {
					for _, want := range c.Tags {
						if strings.EqualFold(have, want) {
							return true
						}
					}
				}
			}
			return false
		})
	}
	if q := strings.ToLower(c.Skill); q != "" {
		fs = append(fs, func(a *RegisteredAgent) bool {
			for _, s := range a.Skills {
				if contains(s.Name, q) || contains(s.ID, q) {
					return true
				}
			}
			return false
		})
	}
	if q := strings.ToLower(c.Protocol); q != "" {
		fs = append(fs, func(a *RegisteredAgent) bool {
			for _, p := range a.Protocols {
				if contains(p, q) {
					return true
				}
			}
			return false
		})
	}
	if q := strings.ToLower(c.Name); q != "" {
		fs = append(fs, func(a *RegisteredAgent) bool { return contains(a.Name, q) })
	}
	if c.Status != "" {
		fs = append(fs, func(a *RegisteredAgent) bool { return a.Status == c.Status })
	}
	if c.MinReputation > 0 {
		fs = append(fs, func(a *RegisteredAgent) bool { return a.ReputationScore >= c.MinReputation })
	}
	return fs
}

// contains is a case-insensitive substring test; needle must be lower case.
func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}
