package domain

// MaxFilterSessionIDs bounds FilterOptions.SessionIDs.
const MaxFilterSessionIDs = 100

// FilterOptions lists the distinct values present in the in-memory buffer,
// used by dashboards to populate filter controls.
type FilterOptions struct {
	SourceApps     []string `json:"source_apps"`
	SessionIDs     []string `json:"session_ids"`
	HookEventTypes []string `json:"hook_event_types"`
}
