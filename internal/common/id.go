package common

import (
	"github.com/google/uuid"
)

// NewRunID generates a unique scrape run ID with the "run_" prefix
// Format: run_<uuid>
func NewRunID() string {
	return "run_" + uuid.New().String()
}

// NewReportID generates a unique change report ID with the "chg_" prefix
// Format: chg_<uuid>
func NewReportID() string {
	return "chg_" + uuid.New().String()
}

// NewContentID generates a unique content item ID with the "page_" prefix
// Format: page_<uuid>
func NewContentID() string {
	return "page_" + uuid.New().String()
}
