package model

// PetAnalysis is the structured trait profile produced by the image
// analysis stage.
type PetAnalysis struct {
	Species               Species        `json:"species"`
	Breed                 string         `json:"breed,omitempty"`
	Expression            string         `json:"expression,omitempty"`
	Posture               string         `json:"posture,omitempty"`
	PersonalityDimensions map[string]int `json:"personalityDimensions"`
	DominantTraits        []string       `json:"dominantTraits"`
	Vibe                  string         `json:"vibe,omitempty"`
}

// CareerProfile maps a trait profile onto a human profession.
type CareerProfile struct {
	JobTitle          string            `json:"jobTitle"`
	Seniority         Seniority         `json:"seniority"`
	Industry          string            `json:"industry,omitempty"`
	WorkStyle         string            `json:"workStyle,omitempty"`
	AttireStyle       AttireStyle       `json:"attireStyle"`
	BackgroundSetting BackgroundSetting `json:"backgroundSetting"`
	ConfidenceScore   int               `json:"confidenceScore"`
}

// CareerTrajectory describes past, present and future of the invented career.
type CareerTrajectory struct {
	Past    string `json:"past"`
	Present string `json:"present"`
	Future  string `json:"future"`
}

// IdentityPackage is the full professional identity synthesized from
// the trait and career profiles.
type IdentityPackage struct {
	HumanName        string           `json:"humanName"`
	JobTitle         string           `json:"jobTitle"`
	Seniority        Seniority        `json:"seniority"`
	Bio              string           `json:"bio"`
	Skills           []string         `json:"skills"`
	CareerTrajectory CareerTrajectory `json:"careerTrajectory"`
	SimilarityScore  float64          `json:"similarityScore"`
}
