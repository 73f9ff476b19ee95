// Package routing scores leads from their activities, assigns them a
// category and forwards qualified leads to the external marketing CRM.
package routing

import (
	"command_center_backend/platform/config"
)

const (
	// MaxScore caps every lead score.
	MaxScore = 100
	// QualifyThreshold is the minimum score for a lead to be routed.
	QualifyThreshold = 50
	// CategoryGeneral is assigned when no category matches.
	CategoryGeneral = "general"
)

// Activity is one counted engagement signal, e.g. {formSubmit, 1}.
type Activity struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// Category is a tenant lead category. The scan order of a profile's
// categories decides which one a lead lands in.
type Category struct {
	Name     string   `json:"name"`
	MinScore int      `json:"minScore,omitempty"`
	Tags     []string `json:"tags"`
	AssignTo string   `json:"assignTo,omitempty"`
	Priority string   `json:"priority,omitempty"`
}

// Profile is the routing table of one tenant.
type Profile struct {
	BusinessID string
	Weights    map[string]int
	Categories []Category
}

// ProfilesFromConfig converts the routing section of the tenants file.
func ProfilesFromConfig(file *config.TenantsFile) map[string]Profile {
	out := make(map[string]Profile, len(file.Routing))
	for tenant, rt := range file.Routing {
		p := Profile{
			BusinessID: rt.BusinessID,
			Weights:    make(map[string]int, len(rt.Weights)),
			Categories: make([]Category, 0, len(rt.Categories)),
		}
		for k, v := range rt.Weights {
			p.Weights[k] = v
		}
		for _, c := range rt.Categories {
			p.Categories = append(p.Categories, Category{
				Name:     c.Name,
				MinScore: c.MinScore,
				Tags:     append([]string(nil), c.Tags...),
				AssignTo: c.AssignTo,
				Priority: c.Priority,
			})
		}
		out[tenant] = p
	}
	return out
}

// Scorer computes lead scores from per-tenant weight tables.
type Scorer struct {
	profiles map[string]Profile
}

// NewScorer creates a scorer over the given tenant profiles.
func NewScorer(profiles map[string]Profile) *Scorer {
	return &Scorer{profiles: profiles}
}

// Profile returns the routing table of tenant.
func (s *Scorer) Profile(tenant string) (Profile, bool) {
	p, ok := s.profiles[tenant]
	return p, ok
}

// Score sums weight x count over the tenant's weight table and clamps the
// total into [0, MaxScore]. Unknown tenants and activity types score zero and
// a count below one counts once. The sum is taken in float64 so that no
// count or weight can wrap it.
func (s *Scorer) Score(tenant string, activities []Activity) int {
	p, ok := s.profiles[tenant]
	if !ok {
		return 0
	}

	var total float64
	for _, a := range activities {
		weight, ok := p.Weights[a.Type]
		if !ok {
			continue
		}
		count := a.Count
		if count < 1 {
			count = 1
		}
		total += float64(weight) * float64(count)
	}
	return clampScore(total)
}

func clampScore(total float64) int {
	switch {
	case total >= MaxScore:
		return MaxScore
	case total <= 0:
		return 0
	default:
		return int(total)
	}
}
