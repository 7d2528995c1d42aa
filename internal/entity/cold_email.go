package entity

// ColdEmail is an audit row appended when a prospect is marked or unmarked as cold-emailed.
type ColdEmail struct {
	HospitalID string `json:"hospital_id"`
	ActedBy    string `json:"acted_by"`
	Note       string `json:"note"`
}
