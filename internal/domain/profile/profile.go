// Package profile models the structured profile record delivered by the
// enrichment pipeline and its projection into qualification text.
package profile

import "strings"

// Position is one work experience entry.
type Position struct {
	Title       string `json:"title"`
	CompanyName string `json:"company_name"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// Education is one education entry.
type Education struct {
	SchoolName   string `json:"school_name"`
	Degree       string `json:"degree"`
	FieldOfStudy string `json:"field_of_study"`
}

// Profile is a typed view of the enrichment payload. Unknown keys are
// dropped at the boundary; missing fields stay zero-valued.
type Profile struct {
	PublicIdentifier string      `json:"public_identifier"`
	Headline         string      `json:"headline"`
	Summary          string      `json:"summary"`
	LocationName     string      `json:"location_name"`
	IndustryName     string      `json:"industry_name"`
	Positions        []Position  `json:"positions"`
	Educations       []Education `json:"educations"`
}

// Text projects the profile into a single lowercase blob used for both
// embedding and oracle prompting. Field order is fixed: headline, summary,
// location, industry, then title/company/location/description per position
// and school/degree/field per education, in listed order. Missing fields
// contribute empty strings so the joined shape stays stable; identical
// input yields byte-identical output.
func (p *Profile) Text() string {
	parts := []string{
		p.Headline,
		p.Summary,
		p.LocationName,
		p.IndustryName,
	}

	for _, pos := range p.Positions {
		parts = append(parts, pos.Title, pos.CompanyName, pos.Location, pos.Description)
	}
	for _, edu := range p.Educations {
		parts = append(parts, edu.SchoolName, edu.Degree, edu.FieldOfStudy)
	}

	return strings.ToLower(strings.Join(parts, " "))
}

// Empty reports whether the projection carries no usable text.
func (p *Profile) Empty() bool {
	return strings.TrimSpace(p.Text()) == ""
}

// CurrentCompany returns the company of the first listed position, the
// promotion prerequisite for qualified leads.
func (p *Profile) CurrentCompany() string {
	if len(p.Positions) == 0 {
		return ""
	}
	return p.Positions[0].CompanyName
}
