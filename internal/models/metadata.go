package models

// Off-chain metadata documents pinned to the content-addressed store. The
// on-chain accounts reference them by URI only; the rest of the system treats
// those URIs as opaque strings.

// CompanyDetails describes the organisation behind a project.
type CompanyDetails struct {
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	IndustryFocus    []string `json:"industryFocus,omitempty"`
	VerifiedDocument string   `json:"verifiedDocument,omitempty"`
}

// DocumentSet references a pinned bundle of supporting files.
type DocumentSet struct {
	Description string `json:"description"`
	URI         string `json:"uri,omitempty"`
}

// ProjectMetadata is the pinned document backing Project.MetadataURI.
type ProjectMetadata struct {
	Title                string         `json:"title"`
	Description          string         `json:"description"`
	Location             string         `json:"location"`
	RequiredSkills       []string       `json:"requiredSkills,omitempty"`
	Company              string         `json:"company"`
	CompanyDetails       CompanyDetails `json:"companyDetails"`
	Category             string         `json:"category"`
	ManagerName          string         `json:"managerName,omitempty"`
	ManagerWalletAddress string         `json:"managerWalletAddress"`
	RequiredLabourers    int            `json:"required_labourer_count"`
	ProjectImage         string         `json:"projectImage,omitempty"`
	StartDate            string         `json:"startDate,omitempty"`
	ApplicationDeadline  string         `json:"application_deadline,omitempty"`
	RelevantDocuments    DocumentSet    `json:"relevant_documents"`
}

// UserMetadata is the pinned document backing UserAccount.MetadataURI.
type UserMetadata struct {
	Name              string   `json:"name"`
	Bio               string   `json:"bio,omitempty"`
	ProfileImage      string   `json:"profileImage,omitempty"`
	Languages         []string `json:"languages,omitempty"`
	Location          string   `json:"location,omitempty"`
	Experience        []string `json:"experience,omitempty"`
	Skillsets         []string `json:"skillsets,omitempty"`
	Certifications    []string `json:"certifications,omitempty"`
	Availability      string   `json:"availability,omitempty"`
	HourlyRate        float64  `json:"hourlyRate,omitempty"`
	RelevantDocuments []string `json:"relevantDocuments,omitempty"`
}

// WorkReportMetadata is the pinned document backing WorkVerification.MetadataURI.
type WorkReportMetadata struct {
	Description         string   `json:"description"`
	HoursWorked         int      `json:"hours_worked"`
	TasksCompleted      []string `json:"tasks_completed"`
	ChallengesFaced     string   `json:"challenges_faced,omitempty"`
	NextDayPlan         string   `json:"next_day_plan,omitempty"`
	WorkImages          string   `json:"work_images,omitempty"`
	SupportingDocuments string   `json:"supporting_documents,omitempty"`
}
