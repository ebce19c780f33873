package model

// Job status
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether no further transitions are permitted.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Species
type Species string

const (
	SpeciesDog     Species = "dog"
	SpeciesCat     Species = "cat"
	SpeciesHamster Species = "hamster"
	SpeciesFish    Species = "fish"
	SpeciesReptile Species = "reptile"
	SpeciesOther   Species = "other"
)

// Seniority levels
type Seniority string

const (
	SeniorityEntry     Seniority = "entry-level"
	SeniorityMid       Seniority = "mid-level"
	SenioritySenior    Seniority = "senior"
	SeniorityExecutive Seniority = "executive"
)

// Attire styles
type AttireStyle string

const (
	AttireSuit           AttireStyle = "suit"
	AttireBusinessCasual AttireStyle = "business_casual"
	AttireCreative       AttireStyle = "creative"
	AttireScrubs         AttireStyle = "scrubs"
)

// Background settings
type BackgroundSetting string

const (
	BackgroundCornerOffice  BackgroundSetting = "corner_office"
	BackgroundOpenOffice    BackgroundSetting = "open_office"
	BackgroundLinkedinBlue  BackgroundSetting = "linkedin_blue"
	BackgroundCreativeSpace BackgroundSetting = "creative_space"
)
