package routing

import (
	"strings"
	"time"
)

// Lead is the contact being qualified.
type Lead struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Source    string `json:"source,omitempty"`
}

// QualifiedLead is a lead with its score and category decision.
type QualifiedLead struct {
	Lead        Lead       `json:"lead"`
	Score       int        `json:"score"`
	Category    string     `json:"category"`
	Qualified   bool       `json:"qualified"`
	Routing     *Category  `json:"routing,omitempty"`
	Activities  []Activity `json:"activities"`
	QualifiedAt time.Time  `json:"qualifiedAt"`
}

// Qualifier scores a lead and picks its category.
type Qualifier struct {
	scorer *Scorer
	now    func() time.Time
}

// NewQualifier creates a qualifier backed by scorer.
func NewQualifier(scorer *Scorer) *Qualifier {
	return &Qualifier{scorer: scorer, now: time.Now}
}

// Qualify scores the lead and scans the tenant's categories in order.
// A category whose MinScore is met ends the scan. Otherwise a category whose
// tags match an activity becomes the candidate and the scan continues, so a
// later tag match replaces an earlier one.
func (q *Qualifier) Qualify(tenant string, lead Lead, activities []Activity) QualifiedLead {
	score := q.scorer.Score(tenant, activities)

	out := QualifiedLead{
		Lead:        lead,
		Score:       score,
		Category:    CategoryGeneral,
		Qualified:   score >= QualifyThreshold,
		Activities:  activities,
		QualifiedAt: q.now().UTC(),
	}

	profile, ok := q.scorer.Profile(tenant)
	if !ok {
		return out
	}

	for i := range profile.Categories {
		c := profile.Categories[i]
		if c.MinScore > 0 && score >= c.MinScore {
			out.Category = c.Name
			out.Routing = &c
			break
		}
		if tagsMatch(c.Tags, activities) {
			out.Category = c.Name
			out.Routing = &c
		}
	}
	return out
}

// tagsMatch reports whether any lower-cased activity type contains the
// first hyphen segment of any tag.
func tagsMatch(tags []string, activities []Activity) bool {
	for _, a := range activities {
		activity := strings.ToLower(a.Type)
		for _, tag := range tags {
			segment, _, _ := strings.Cut(tag, "-")
			if strings.Contains(activity, segment) {
				return true
			}
		}
	}
	return false
}
